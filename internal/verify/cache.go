package verify

import (
	"sync"
	"time"
)

// Cache stores normalized registry details keyed by NPI number. It is
// injected into the Verifier so the eviction policy stays pluggable.
type Cache interface {
	Get(key string) (map[string]any, bool)
	Put(key string, details map[string]any)
	Evict(key string)
}

type cacheEntry struct {
	details  map[string]any
	storedAt time.Time
}

// MemoryCache is a process-wide in-memory Cache with optional time-based
// expiry. Concurrent writers for the same key race last-writer-wins, which
// is acceptable since payloads for one identifier are idempotent.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewMemoryCache creates a MemoryCache. A zero ttl disables expiry.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached details for key if present and unexpired.
func (c *MemoryCache) Get(key string) (map[string]any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		c.Evict(key)
		return nil, false
	}
	return entry.details, true
}

// Put stores details for key, replacing any previous entry.
func (c *MemoryCache) Put(key string, details map[string]any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{details: details, storedAt: c.now()}
	c.mu.Unlock()
}

// Evict removes key from the cache.
func (c *MemoryCache) Evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of live entries, for metrics and tests.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
