package services

import (
	"log"
	"sync"
)

// SnapshotCache is the in-process view of counter snapshots keyed by
// YYYY-MM-DD date. It is the single source the live protocol reads from;
// the store stays authoritative and any entry can be rebuilt from it.
type SnapshotCache struct {
	mu      sync.RWMutex
	entries map[string][]Snapshot
	store   *CounterStore
}

// NewSnapshotCache returns an empty cache backed by store
func NewSnapshotCache(store *CounterStore) *SnapshotCache {
	return &SnapshotCache{
		entries: make(map[string][]Snapshot),
		store:   store,
	}
}

// Warm loads the snapshot lists for the given dates from the store. On a
// query failure the remaining dates are still attempted and the first
// error is returned; already-present entries for failed dates are kept.
func (c *SnapshotCache) Warm(dates []string) error {
	var firstErr error
	for _, date := range dates {
		if _, err := c.Refresh(date); err != nil {
			log.Printf("Cache warm failed for %s: %v", date, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Refresh re-queries one date and replaces its entry, returning the new
// list. On failure the previous entry is left untouched so an update
// already applied to the store is not lost from client view; the caller
// may retry.
func (c *SnapshotCache) Refresh(date string) ([]Snapshot, error) {
	snapshots, err := c.store.SnapshotsByDate(date)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[date] = snapshots
	c.mu.Unlock()
	return snapshots, nil
}

// Get returns the cached list for a date. Absence means the date was never
// warmed and must be surfaced as not-found, not as an empty list.
func (c *SnapshotCache) Get(date string) ([]Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshots, ok := c.entries[date]
	return snapshots, ok
}

// Clear drops every entry; used when the availability gate closes
func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]Snapshot)
	c.mu.Unlock()
}

// Dates returns the currently warmed date keys
func (c *SnapshotCache) Dates() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dates := make([]string, 0, len(c.entries))
	for date := range c.entries {
		dates = append(dates, date)
	}
	return dates
}
