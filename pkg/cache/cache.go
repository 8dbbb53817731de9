// Package cache is a small keyed query cache. Concurrent misses for the same
// key share one fetch, entries expire after a TTL and can be invalidated so
// the next read refetches.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value      interface{}
	expiration time.Time
}

// Cache maps string keys to fetched values
type Cache struct {
	mu         sync.Mutex
	data       map[string]entry
	group      singleflight.Group
	ttl        time.Duration
	generation map[string]uint64
	now        func() time.Time
}

// New creates a cache whose entries live for ttl
func New(ttl time.Duration) *Cache {
	return &Cache{
		data:       make(map[string]entry),
		generation: make(map[string]uint64),
		ttl:        ttl,
		now:        time.Now,
	}
}

// FetchFunc loads the value for a key
type FetchFunc func(ctx context.Context) (interface{}, error)

// GetOrCreate returns the cached value for key or runs fetch once for all
// concurrent callers and caches its result. Errors are not cached.
//
// The shared fetch does not inherit the caller's cancellation: a caller
// whose ctx ends gets ctx.Err() at once while the fetch carries on for the
// others. Bound it with a transport timeout.
func (c *Cache) GetOrCreate(ctx context.Context, key string, fetch FetchFunc) (interface{}, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		c.mu.Lock()
		gen := c.generation[key]
		c.mu.Unlock()

		v, err := fetch(detached)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// an invalidation during the fetch makes this result stale
		if c.generation[key] == gen {
			c.data[key] = entry{value: v, expiration: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) lookup(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if !e.expiration.After(c.now()) {
		delete(c.data, key)
		return nil, false
	}
	return e.value, true
}

// Invalidate drops key so the next GetOrCreate refetches
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.generation[key]++
}
