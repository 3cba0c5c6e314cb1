package llm

import (
	"sync"
	"time"
)

// cacheEntry is one cached embedding vector.
type cacheEntry struct {
	expiry time.Time
	vector []float32
}

// embeddingCache provides thread-safe in-process caching of embeddings so a
// batch never re-embeds the same normalized text twice. The durable cache
// lives in storage; this one just saves round-trips within a process.
type embeddingCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newEmbeddingCache creates a new cache with the specified TTL.
func newEmbeddingCache(ttl time.Duration) *embeddingCache {
	if ttl == 0 {
		ttl = 15 * time.Minute // Default TTL
	}

	cache := &embeddingCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// get retrieves a vector from the cache if it exists and hasn't expired.
func (c *embeddingCache) get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(entry.expiry) {
		return nil, false
	}

	return entry.vector, true
}

// set stores a vector in the cache.
func (c *embeddingCache) set(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		vector: vector,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *embeddingCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (c *embeddingCache) Close() {
	close(c.stopCh)
}
