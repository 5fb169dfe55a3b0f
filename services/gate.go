package services

import (
	"log"
	"sync"
	"trip-counter-service/utils"
)

// Gate is the global maintenance toggle. While disabled, new connections
// are refused and mutations rejected; disabling clears the snapshot cache
// and enabling re-warms it from the store. Both transitions are
// administrator-triggered only.
type Gate struct {
	mu      sync.RWMutex
	enabled bool

	cache    *SnapshotCache
	zone     string
	warmDays int
}

// NewGate returns a disabled gate; call Enable to open service
func NewGate(cache *SnapshotCache, zone string, warmDays int) *Gate {
	return &Gate{cache: cache, zone: zone, warmDays: warmDays}
}

// Enable opens the gate and warms the cache for today plus the configured
// forward window. The gate opens even if warming partially fails; the
// failed dates stay unserved until refreshed.
func (g *Gate) Enable() error {
	today, err := utils.TodayInZone(g.zone)
	if err != nil {
		return err
	}
	dates, err := utils.DateRangeFrom(today, g.warmDays)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.enabled = true
	g.mu.Unlock()

	if err := g.cache.Warm(dates); err != nil {
		log.Printf("Gate enabled with partial cache warm: %v", err)
		return err
	}
	log.Printf("Gate enabled, cache warmed for %d date(s)", len(dates))
	return nil
}

// Disable closes the gate and drops every cache entry
func (g *Gate) Disable() {
	g.mu.Lock()
	g.enabled = false
	g.mu.Unlock()

	g.cache.Clear()
	log.Println("Gate disabled, cache cleared")
}

// IsEnabled reports whether the service is accepting connections
func (g *Gate) IsEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled
}
