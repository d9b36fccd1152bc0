package services

import (
	"sync"
	"time"
)

// Cache timeouts, mirroring how often the underlying data actually changes.
const (
	settingsCacheTTL   = 5 * time.Minute // settings change rarely
	scoreboardCacheTTL = 5 * time.Second // live standings, seconds-scale staleness is fine
)

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// memoryCache is a minimal TTL cache for the handful of hot read paths
// (active settings, per-age-group scoreboards). Entries are overwritten on
// recompute and dropped eagerly on invalidation.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]cacheEntry)}
}

func (c *memoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (c *memoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *memoryCache) Delete(keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}
