package bus

import (
	"sync"
	"time"
)

// DedupeCache remembers recently seen message keys so webhook retries
// and double-taps don't get processed twice. Entries expire after the
// TTL; when the cache is full the oldest entries are evicted.
type DedupeCache struct {
	ttl        time.Duration
	maxEntries int

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDedupeCache creates a dedupe cache with the given TTL and capacity.
func NewDedupeCache(ttl time.Duration, maxEntries int) *DedupeCache {
	return &DedupeCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		seen:       make(map[string]time.Time),
	}
}

// IsDuplicate reports whether key was seen within the TTL, and records
// it either way.
func (c *DedupeCache) IsDuplicate(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if at, ok := c.seen[key]; ok && now.Sub(at) < c.ttl {
		return true
	}

	if len(c.seen) >= c.maxEntries {
		c.evictLocked(now)
	}

	c.seen[key] = now
	return false
}

// Forget removes a key so a later retry of the same message is not
// treated as a duplicate. Used when processing fails after the key was
// recorded but before the message reached the buffer.
func (c *DedupeCache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, key)
}

// evictLocked drops expired entries, then oldest entries if still full.
// Caller must hold c.mu.
func (c *DedupeCache) evictLocked(now time.Time) {
	for k, at := range c.seen {
		if now.Sub(at) >= c.ttl {
			delete(c.seen, k)
		}
	}

	for len(c.seen) >= c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		for k, at := range c.seen {
			if oldestKey == "" || at.Before(oldestAt) {
				oldestKey, oldestAt = k, at
			}
		}
		delete(c.seen, oldestKey)
	}
}

// Len reports the current number of tracked keys.
func (c *DedupeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
