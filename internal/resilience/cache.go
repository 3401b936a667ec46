// Package resilience bundles the request cache, the retry executor and the
// concurrency limiter that wrap calls into the downstream services.
package resilience

import (
	"sync"
	"time"
)

// CacheStats is a point-in-time view of cache effectiveness counters.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// Cache is a capacity- and time-bounded request cache. Entries expire once
// their age exceeds the TTL regardless of capacity pressure; when the cache
// is full the least-recently-accessed entry is evicted. There is no
// single-flight guarantee: concurrent identical misses recompute.
type Cache struct {
	mu         sync.Mutex
	data       map[string]*cacheEntry
	maxEntries int
	ttl        time.Duration
	stats      CacheStats

	now func() time.Time // test hook
}

type cacheEntry struct {
	value      string
	insertTime time.Time
	accessTime time.Time
}

// NewCache creates a cache bounded to maxEntries entries and the given TTL.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		data:       make(map[string]*cacheEntry, maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the cached value for the fingerprint. Entries older than the
// TTL are treated as absent and removed.
func (c *Cache) Get(fingerprint string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[fingerprint]
	if !exists {
		c.stats.Misses++
		return "", false
	}

	if c.now().Sub(entry.insertTime) > c.ttl {
		delete(c.data, fingerprint)
		c.stats.Misses++
		return "", false
	}

	entry.accessTime = c.now()
	c.stats.Hits++
	return entry.value, true
}

// Put stores a value under the fingerprint, evicting the least-recently-
// accessed entry when the cache is at capacity.
func (c *Cache) Put(fingerprint, value string) {
	if fingerprint == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[fingerprint]; !exists && len(c.data) >= c.maxEntries {
		c.evictOldest()
	}

	now := c.now()
	c.data[fingerprint] = &cacheEntry{
		value:      value,
		insertTime: now,
		accessTime: now,
	}
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	return stats
}

// evictOldest removes the entry least likely to be reused, approximated by
// access time. Caller holds the lock.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.data {
		if oldestKey == "" || entry.accessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessTime
		}
	}

	if oldestKey != "" {
		delete(c.data, oldestKey)
		c.stats.Evictions++
	}
}
