package metadata

import (
	"sync"
	"time"
)

// DefaultTTL is how long a fetched metadata document is served before a
// refresh is attempted.
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	meta      *AgentMetadata
	fetchedAt time.Time
}

// Cache is a TTL cache of metadata documents keyed by agent base URL.
// Failed fetches are never stored; only successful documents age out.
// Concurrent writers for the same key race harmlessly (last fetch wins).
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached document for baseURL if it is younger than the TTL.
func (c *Cache) Get(baseURL string) (*AgentMetadata, bool) {
	c.mu.RLock()
	entry, ok := c.entries[baseURL]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.meta, true
}

// Set stores a successfully fetched document with the current timestamp.
func (c *Cache) Set(baseURL string, meta *AgentMetadata) {
	c.mu.Lock()
	c.entries[baseURL] = cacheEntry{meta: meta, fetchedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate drops the entry for baseURL, forcing the next resolution to
// fetch fresh metadata. Used by the administrative force-refresh action.
func (c *Cache) Invalidate(baseURL string) {
	c.mu.Lock()
	delete(c.entries, baseURL)
	c.mu.Unlock()
}

// Len reports the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
