package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryCleanupInterval is how often expired entries are purged.
const memoryCleanupInterval = 10 * time.Minute

// MemoryCache keeps entries in process memory. It suits long-running batch
// conversions (several volumes of one series) where the same cover or
// credits pages recur.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates an in-memory cache whose entries expire after
// defaultTTL unless Set is given a positive ttl.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &MemoryCache{items: gocache.New(defaultTTL, memoryCleanupInterval)}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		c.items.Delete(key)
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores a copy of data.
func (c *MemoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	d := gocache.DefaultExpiration
	if ttl > 0 {
		d = ttl
	}
	c.items.Set(key, append([]byte(nil), data...), d)
	return nil
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

// Close drops every entry.
func (c *MemoryCache) Close() error {
	c.items.Flush()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
