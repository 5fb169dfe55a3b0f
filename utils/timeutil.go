package utils

import (
	"fmt"
	"time"
)

const (
	DateKeyLayout   = "2006-01-02" // cache keys, stored dates
	DateLabelLayout = "2006/01/02" // client-facing date labels
	SlotLayout      = "15:04"      // HH:MM time slots
)

// DateInZone returns the calendar date of t in the given IANA zone as a
// YYYY-MM-DD key. The service never keys dates by the host zone.
func DateInZone(t time.Time, zone string) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("load zone %q: %w", zone, err)
	}
	return t.In(loc).Format(DateKeyLayout), nil
}

// TodayInZone is DateInZone for the current instant
func TodayInZone(zone string) (string, error) {
	return DateInZone(time.Now(), zone)
}

// DateRangeFrom returns startDate plus the following days as YYYY-MM-DD
// keys, startDate included (days = 0 yields just startDate).
func DateRangeFrom(startDate string, days int) ([]string, error) {
	start, err := time.Parse(DateKeyLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", startDate, err)
	}
	dates := make([]string, 0, days+1)
	for i := 0; i <= days; i++ {
		dates = append(dates, start.AddDate(0, 0, i).Format(DateKeyLayout))
	}
	return dates, nil
}

// DateLabel converts a YYYY-MM-DD key to the YYYY/MM/DD display form the
// browser clients render
func DateLabel(dateKey string) string {
	t, err := time.Parse(DateKeyLayout, dateKey)
	if err != nil {
		return dateKey
	}
	return t.Format(DateLabelLayout)
}

// ValidDateKey reports whether s is a well-formed YYYY-MM-DD date
func ValidDateKey(s string) bool {
	_, err := time.Parse(DateKeyLayout, s)
	return err == nil
}

// ValidSlot reports whether s is a well-formed HH:MM slot label
func ValidSlot(s string) bool {
	_, err := time.Parse(SlotLayout, s)
	return err == nil
}

// FormatTimestamp renders a client-supplied Unix millisecond timestamp as
// "YYYY/MM/DD - HH:mm:ss" in the given zone. A zero or negative timestamp
// falls back to the current time so broadcasts always carry a usable label.
func FormatTimestamp(millis int64, zone string) string {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	t := time.Now()
	if millis > 0 {
		t = time.UnixMilli(millis)
	}
	return t.In(loc).Format("2006/01/02 - 15:04:05")
}
