package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"silo-backend/internal/models"
)

// cacheEntry holds the last-known-good reading for one probe
type cacheEntry struct {
	reading  *models.Reading
	storedAt time.Time
}

// Cache keeps the last-known-good reading per (device, probe).
// Last write wins by reading timestamp. The cache is advisory: it
// serves reads when live paths are down and is never consulted for
// control decisions.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

// NewCache creates a cache; readings older than ttl are stale
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

func cacheKey(deviceID, probeType string) string {
	return deviceID + "/" + probeType
}

// Update stores a reading unless a newer one is already cached
func (c *Cache) Update(reading *models.Reading) {
	key := cacheKey(reading.DeviceID, reading.ProbeType)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok && existing.reading.Timestamp.After(reading.Timestamp) {
		return
	}
	c.entries[key] = &cacheEntry{reading: reading, storedAt: time.Now()}
}

// Get returns the cached reading for a probe and whether it is stale
func (c *Cache) Get(deviceID, probeType string) (reading *models.Reading, stale bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[cacheKey(deviceID, probeType)]
	if !found {
		return nil, false, false
	}
	return entry.reading, time.Since(entry.reading.Timestamp) > c.ttl, true
}

// Latest returns the freshest cached reading for a device across probes
func (c *Cache) Latest(deviceID string) (reading *models.Reading, stale bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *cacheEntry
	for _, probe := range []string{models.ProbeCore, models.ProbeAmbient} {
		if entry, found := c.entries[cacheKey(deviceID, probe)]; found {
			if best == nil || entry.reading.Timestamp.After(best.reading.Timestamp) {
				best = entry
			}
		}
	}
	if best == nil {
		return nil, false, false
	}
	return best.reading, time.Since(best.reading.Timestamp) > c.ttl, true
}

// Len returns the number of cached probes
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartJanitor evicts entries that stayed stale past the eviction grace.
// Runs until the context is cancelled.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	log.Println("TelemetryCache: Janitor started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("TelemetryCache: Janitor stopped")
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

// evictExpired drops entries stale for more than twice the TTL
func (c *Cache) evictExpired() {
	cutoff := time.Now().Add(-2 * c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.reading.Timestamp.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}
