// Package lookupcache wraps an expiring cache around an injected fetch
// function, so callers read through the cache without knowing its policy.
package lookupcache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache memoizes a keyed lookup with a TTL. Errors are never cached.
type Cache[T any] struct {
	store *cache.Cache
	load  func(ctx context.Context, key string) (T, error)
}

func New[T any](ttl time.Duration, load func(ctx context.Context, key string) (T, error)) *Cache[T] {
	return &Cache[T]{
		store: cache.New(ttl, ttl*2),
		load:  load,
	}
}

// Get returns the cached value for key, loading and caching it on a miss.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	if cached, ok := c.store.Get(key); ok {
		return cached.(T), nil
	}
	value, err := c.load(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	c.store.Set(key, value, cache.DefaultExpiration)
	return value, nil
}

// Refresh loads the value bypassing the cache and stores the result.
func (c *Cache[T]) Refresh(ctx context.Context, key string) (T, error) {
	value, err := c.load(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	c.store.Set(key, value, cache.DefaultExpiration)
	return value, nil
}

// Put seeds the cache, e.g. after a write.
func (c *Cache[T]) Put(key string, value T) {
	c.store.Set(key, value, cache.DefaultExpiration)
}

// Invalidate drops the key.
func (c *Cache[T]) Invalidate(key string) {
	c.store.Delete(key)
}
