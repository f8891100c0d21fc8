package cache

import (
	"context"
	"fmt"
	"time"
)

// Config selects and configures a cache backend.
type Config struct {
	Backend  string        // file, memory, redis or none
	Dir      string        // FileCache root
	RedisURL string        // RedisCache address
	TTL      time.Duration // MemoryCache default expiry
}

// Open builds the backend named by cfg.Backend. An empty backend means file.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache: directory is required")
		}
		c, err := NewFileCache(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendMemory:
		return NewMemoryCache(cfg.TTL), nil
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis cache: url is required")
		}
		c, err := NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return NewNullCache(), nil
	}
	return nil, fmt.Errorf("invalid cache backend: %q (must be one of: file, memory, redis, none)", cfg.Backend)
}
