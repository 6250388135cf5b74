package cache

import (
	"context"
	"fmt"
	"time"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
// Implementations are safe for concurrent use.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options selects a backend
type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New builds the configured backend. "none" returns a nil cache.
func New(ctx context.Context, opts Options) (BytesCache, error) {
	switch opts.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewTTLCache(), nil
	case "redis":
		rc := NewRedisCache(RedisConfig{Addr: opts.RedisAddr, Password: opts.RedisPassword, DB: opts.RedisDB})
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, fmt.Errorf("redis ping %s: %w", opts.RedisAddr, err)
		}
		return rc, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
}
