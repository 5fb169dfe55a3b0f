package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"trip-counter-service/utils"
)

// Live runs the counter update protocol: it turns inbound client messages
// into validated store mutations, audit records, cache refreshes and
// fan-out broadcasts. Every error is answered to the requester alone;
// nothing here may take down another client's connection.
type Live struct {
	store    *CounterStore
	cache    *SnapshotCache
	registry *Registry
	gate     *Gate
	zone     string
}

// NewLive wires the live protocol over its collaborators
func NewLive(store *CounterStore, cache *SnapshotCache, registry *Registry, gate *Gate, zone string) *Live {
	return &Live{
		store:    store,
		cache:    cache,
		registry: registry,
		gate:     gate,
		zone:     zone,
	}
}

// Registry exposes the connection registry for the transport layer
func (l *Live) Registry() *Registry {
	return l.registry
}

// Gate exposes the availability gate for the transport layer
func (l *Live) Gate() *Gate {
	return l.gate
}

// HandleMessage processes one raw inbound text frame from conn
func (l *Live) HandleMessage(conn Conn, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		l.registry.Send(conn, NewErrorMessage(http.StatusBadRequest, "Malformed message"))
		return
	}

	switch msg.Type {
	case MsgNameSubmission:
		l.handleNameSubmission(conn, msg)
	case MsgDateSelection:
		l.handleDateSelection(conn, msg)
	case MsgAction:
		l.handleAction(conn, msg)
	default:
		l.registry.Send(conn, NewErrorMessage(http.StatusBadRequest, "Invalid message type"))
	}
}

// handleNameSubmission binds the display name and replies with today's
// snapshot list. An unwarmed date is a not-found error, never an empty list.
func (l *Live) handleNameSubmission(conn Conn, msg ClientMessage) {
	if msg.Name == "" {
		l.registry.Send(conn, NewErrorMessage(http.StatusBadRequest, "Name must not be empty"))
		return
	}
	l.registry.Identify(conn, msg.Name)

	today, err := utils.TodayInZone(l.zone)
	if err != nil {
		log.Printf("Resolve today failed: %v", err)
		l.registry.Send(conn, NewErrorMessage(http.StatusInternalServerError, "Server error, please try again later"))
		return
	}
	l.sendRegionData(conn, today)
}

// handleDateSelection replies with the snapshot list for an explicitly
// chosen date
func (l *Live) handleDateSelection(conn Conn, msg ClientMessage) {
	if !l.registry.IsIdentified(conn) {
		l.registry.Send(conn, NewErrorMessage(http.StatusBadRequest, "Please submit your name first"))
		return
	}
	if !utils.ValidDateKey(msg.Date) {
		l.registry.Send(conn, NewErrorMessage(http.StatusBadRequest, "Date must be YYYY-MM-DD"))
		return
	}
	l.sendRegionData(conn, msg.Date)
}

func (l *Live) sendRegionData(conn Conn, date string) {
	snapshots, ok := l.cache.Get(date)
	if !ok {
		l.registry.Send(conn, NewErrorMessage(http.StatusNotFound, fmt.Sprintf("No counter data for %s", date)))
		return
	}
	l.registry.Send(conn, NewRegionDataMessage(snapshots))
}

// handleAction validates and applies one bounded counter mutation, then
// audits, refreshes the date's cache entry and broadcasts the result to
// every live connection.
func (l *Live) handleAction(conn Conn, msg ClientMessage) {
	userName, ok := l.registry.Name(conn)
	if !ok {
		l.registry.Send(conn, NewErrorMessage(http.StatusBadRequest, "Please submit your name first"))
		return
	}

	if !l.gate.IsEnabled() {
		l.registry.Send(conn, NewErrorMessage(http.StatusServiceUnavailable, "Service is under maintenance"))
		return
	}

	if !msg.Action.Valid() {
		l.registry.Send(conn, NewErrorMessage(http.StatusBadRequest, "Invalid action type"))
		return
	}

	counter, err := l.store.CounterByID(msg.ID)
	if err != nil {
		if errors.Is(err, ErrCounterNotFound) {
			l.registry.Send(conn, NewErrorMessage(http.StatusNotFound, fmt.Sprintf("Counter ID %d does not exist", msg.ID)))
			return
		}
		log.Printf("Counter lookup failed for %d: %v", msg.ID, err)
		l.registry.Send(conn, NewErrorMessage(http.StatusInternalServerError, "Server error, please try again later"))
		return
	}

	// The counter's date must be a served cache bucket. Absence here means
	// the date was never warmed (maintenance window, horizon not covered),
	// which is a different condition than a bad id.
	date := counter.Date
	snapshots, ok := l.cache.Get(date)
	if !ok {
		l.registry.Send(conn, NewErrorMessage(http.StatusServiceUnavailable, fmt.Sprintf("Date %s is not currently served", date)))
		return
	}

	var snapshot *Snapshot
	for i := range snapshots {
		if snapshots[i].ID == msg.ID {
			snapshot = &snapshots[i]
			break
		}
	}
	if snapshot == nil {
		// Cache and store diverged; the refresh after the next successful
		// mutation converges them
		l.registry.Send(conn, NewErrorMessage(http.StatusNotFound, fmt.Sprintf("Counter ID %d does not exist", msg.ID)))
		return
	}

	oldValue, newValue, err := l.store.ApplyDelta(msg.ID, msg.Action)
	if err != nil {
		switch {
		case errors.Is(err, ErrBoundExceeded):
			l.registry.Send(conn, NewErrorMessage(http.StatusForbidden, "Update rejected, counter is outside the allowed trip range"))
		case errors.Is(err, ErrCounterNotFound):
			l.registry.Send(conn, NewErrorMessage(http.StatusNotFound, fmt.Sprintf("Counter ID %d does not exist", msg.ID)))
		default:
			log.Printf("Counter update failed for %d: %v", msg.ID, err)
			l.registry.Send(conn, NewErrorMessage(http.StatusInternalServerError, "Server error, please try again later"))
		}
		return
	}

	// Audit failures must not block the committed mutation
	content := fmt.Sprintf("%s changed %s %s on %s from %d to %d",
		userName, snapshot.Area, snapshot.CounterTime, utils.DateLabel(date), oldValue, newValue)
	if _, err := l.store.AppendRecord(date, snapshot.CounterTime, content); err != nil {
		log.Printf("Audit append failed: %v", err)
	}

	refreshed, err := l.cache.Refresh(date)
	if err != nil {
		// The write is committed; the stale entry stays visible and the
		// requester is told to retry the read
		log.Printf("Cache refresh failed for %s: %v", date, err)
		l.registry.Send(conn, NewErrorMessage(http.StatusInternalServerError, "Update saved but refresh failed, please reload"))
		return
	}

	l.registry.Broadcast(CounterUpdateMessage{
		Type:        "counterUpdate",
		Area:        snapshot.Area,
		CounterTime: snapshot.CounterTime,
		Counter:     newValue,
		ChangedBy:   userName,
		Timestamp:   utils.FormatTimestamp(msg.Timestamp, l.zone),
		RegionData:  refreshed,
		Status:      200,
	})
}
