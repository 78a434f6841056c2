package cache

import (
	"context"
	"sync"
	"time"
)

// Defaults for LocalCache.
const (
	DefaultLocalMaxEntries = 10000
	DefaultLocalTTL        = time.Hour
)

type localItem struct {
	entry   *Entry
	expires time.Time
}

// LocalCache keeps entries in process memory. When full, an arbitrary entry
// is evicted to make room.
type LocalCache struct {
	mu         sync.Mutex
	items      map[string]localItem
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewLocalCache creates an in-memory cache. Non-positive arguments select
// the defaults.
func NewLocalCache(maxEntries int, ttl time.Duration) *LocalCache {
	if maxEntries <= 0 {
		maxEntries = DefaultLocalMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultLocalTTL
	}
	return &LocalCache{
		items:      make(map[string]localItem),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns a copy of the entry stored under key.
func (c *LocalCache) Get(_ context.Context, key string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, nil
	}
	if c.now().After(item.expires) {
		delete(c.items, key)
		return nil, nil
	}
	return cloneEntry(item.entry), nil
}

// Set stores a copy of entry under key.
func (c *LocalCache) Set(_ context.Context, key string, entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		for k := range c.items {
			delete(c.items, k)
			break
		}
	}
	c.items[key] = localItem{entry: cloneEntry(entry), expires: c.now().Add(c.ttl)}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close is a no-op for local cache.
func (c *LocalCache) Close() error {
	return nil
}
