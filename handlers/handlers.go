package handlers

import (
	"log"
	"trip-counter-service/services"
)

// Package-wide service wiring. main assembles the services once at startup
// and hands them to the handler layer here; tests construct their own.
var (
	liveService  *services.Live
	counterStore *services.CounterStore
	cache        *services.SnapshotCache
	gate         *services.Gate
)

// Setup injects the service objects the handlers operate on
func Setup(live *services.Live, store *services.CounterStore, snapshotCache *services.SnapshotCache, availabilityGate *services.Gate) {
	liveService = live
	counterStore = store
	cache = snapshotCache
	gate = availabilityGate
}

// refreshCachedDate re-queries one date's cache bucket after an
// administrative edit, but only when that date is currently served.
func refreshCachedDate(date string) {
	if _, ok := cache.Get(date); !ok {
		return
	}
	if _, err := cache.Refresh(date); err != nil {
		log.Printf("Cache refresh after admin edit failed for %s: %v", date, err)
	}
}
