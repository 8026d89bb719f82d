// Package shortcache is an in-process TTL cache placed in front of upstream content APIs.
// The TTL is fixed at construction; entries expire on their own and are never persisted.
package shortcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache: fixed-TTL key/value cache with read-through loading
type Cache[V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]entry[V]
	sf    singleflight.Group
}

// Option customizes a Cache.
type Option[V any] func(*Cache[V])

// WithClock overrides the time source (tests).
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache whose entries live for ttl (<= 0 falls back to one second).
func New[V any](ttl time.Duration, opts ...Option[V]) *Cache[V] {
	if ttl <= 0 {
		ttl = time.Second
	}
	c := &Cache[V]{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key while it is younger than the TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(ent.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return ent.value, true
}

// Set stores value under key, replacing any previous value and restarting its TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Delete drops key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts live entries and drops expired ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, ent := range c.items {
		if !now.Before(ent.expiresAt) {
			delete(c.items, key)
		}
	}
	return len(c.items)
}

// TTL returns the fixed lifetime of entries.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// GetOrLoad returns the cached value or calls load once per key across concurrent callers.
// Errors are not cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	result, err, _ := c.sf.Do(key, func() (any, error) {
		if value, ok := c.Get(key); ok {
			return value, nil
		}
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		c.Set(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}
