// Package cache stores prepared page images so repeated conversions of the
// same source skip the image pipeline.
//
// Entries are opaque byte slices addressed by keys built with a [Keyer].
// Four backends implement [Cache]:
//   - [FileCache]: JSON entries under the user cache directory (CLI default)
//   - [MemoryCache]: process-local, expiring entries
//   - [RedisCache]: shared cache for several machines converting the same library
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use; pages are prepared in
// parallel and all hit the same cache.
type Cache interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// TTLPanel is how long a prepared page stays cached.
const TTLPanel = 30 * 24 * time.Hour

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)
