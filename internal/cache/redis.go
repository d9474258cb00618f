package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares resolution hints between service instances.
type RedisCache struct {
	counters
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, code string) (*Resolution, bool, error) {
	data, err := c.client.Get(ctx, Key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(false)
		return nil, false, nil
	}
	if err != nil {
		c.record(false)
		return nil, false, fmt.Errorf("redis get %s: %w", code, err)
	}

	var r Resolution
	if err := json.Unmarshal(data, &r); err != nil {
		c.record(false)
		return nil, false, fmt.Errorf("decode cached resolution %s: %w", code, err)
	}
	c.record(true)
	return &r, true, nil
}

func (c *RedisCache) Set(ctx context.Context, code string, r Resolution, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode resolution: %w", err)
	}
	if err := c.client.Set(ctx, Key(code), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", code, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = Key(code)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Stats() Stats { return c.snapshot() }
