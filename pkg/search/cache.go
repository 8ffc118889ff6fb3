package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// resultCache is a small LRU cache with TTL for search responses. A
// content reload clears it wholesale rather than invalidating entries.
type resultCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	order      []string // LRU order, most recent at the end
	maxSize    int
	defaultTTL time.Duration
}

type cacheEntry struct {
	results   *Results
	createdAt time.Time
	ttl       time.Duration
}

func (e *cacheEntry) expired() bool {
	return time.Since(e.createdAt) > e.ttl
}

func newResultCache(maxSize int, defaultTTL time.Duration) *resultCache {
	return &resultCache{
		entries:    make(map[string]*cacheEntry),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
	}
}

func (c *resultCache) get(key string) (*Results, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if entry.expired() {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return entry.results, true
}

func (c *resultCache) put(key string, results *Results) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{results: results, createdAt: time.Now(), ttl: c.defaultTTL}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictLRU()
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *resultCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *resultCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *resultCache) evictLRU() {
	if len(c.order) == 0 {
		return
	}
	lru := c.order[0]
	delete(c.entries, lru)
	c.order = c.order[1:]
}

// cacheKey derives a deterministic key from the full request
func cacheKey(req Request) string {
	data, _ := json.Marshal(req)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
