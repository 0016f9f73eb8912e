// Package tokencache is the Redis-backed implementation of tokens.Cache.
package tokencache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairwaymarket/teesheet/internal/tokens"
)

// RedisCache stores provider tokens under TTL-bounded keys. The TTL passed by
// the token manager is already shorter than the provider's own expiry.
type RedisCache struct {
	client *redis.Client
}

func New(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", tokens.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("tokencache: get %s: %w", key, err)
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("tokencache: set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("tokencache: delete %s: %w", key, err)
	}
	return nil
}
