package cache

import (
	"context"
	"time"

	pkgcache "heliowatch/pkg/cache"
)

// lastGoodTTL bounds how long a stale fallback value stays servable.
const lastGoodTTL = 24 * time.Hour

// ResultCache caches analysis section results. Every successful write
// also refreshes a long-lived "last good" copy, which is served marked
// stale when the model backend fails.
type ResultCache struct {
	inner pkgcache.Service
}

// NewResultCache wraps a cache backend.
func NewResultCache(inner pkgcache.Service) *ResultCache {
	return &ResultCache{inner: inner}
}

// Put stores value under key with ttl and refreshes the last-good copy.
func (c *ResultCache) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.inner.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.inner.Set(ctx, lastGoodKey(key), value, lastGoodTTL)
}

// Get fetches the fresh value. Returns pkgcache.ErrCacheMiss when the
// entry is absent or expired.
func (c *ResultCache) Get(ctx context.Context, key string, dest interface{}) error {
	return c.inner.Get(ctx, key, dest)
}

// GetLastGood fetches the most recent successful value regardless of
// the fresh TTL.
func (c *ResultCache) GetLastGood(ctx context.Context, key string, dest interface{}) error {
	return c.inner.Get(ctx, lastGoodKey(key), dest)
}

func lastGoodKey(key string) string {
	return key + ":last"
}
