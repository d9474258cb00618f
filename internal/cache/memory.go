package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps resolution hints in process memory.
type MemoryCache struct {
	counters
	store *gocache.Cache
}

// NewMemoryCache creates an in-process cache; expired items are purged every cleanupInterval.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &MemoryCache{store: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *MemoryCache) Get(_ context.Context, code string) (*Resolution, bool, error) {
	v, ok := c.store.Get(Key(code))
	if !ok {
		c.record(false)
		return nil, false, nil
	}
	r := v.(Resolution)
	c.record(true)
	return &r, true, nil
}

func (c *MemoryCache) Set(_ context.Context, code string, r Resolution, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(Key(code), r, ttl)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, codes ...string) error {
	for _, code := range codes {
		c.store.Delete(Key(code))
	}
	return nil
}

func (c *MemoryCache) Stats() Stats { return c.snapshot() }
