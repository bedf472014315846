package breach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RangeCache stores range responses by hash prefix. Keys are the 5-character
// prefix only, so a cache holds nothing more than the upstream already saw.
type RangeCache interface {
	// Get returns the cached body for prefix; ok is false on a miss.
	Get(ctx context.Context, prefix string) (body string, ok bool, err error)
	Set(ctx context.Context, prefix, body string) error
}

const rangeKeyPrefix = "breach:range:"

// RedisRangeCache is a RangeCache shared by every server instance.
type RedisRangeCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisRangeCache(rdb redis.UniversalClient, ttl time.Duration) *RedisRangeCache {
	return &RedisRangeCache{rdb: rdb, ttl: ttl}
}

func (c *RedisRangeCache) key(prefix string) string {
	return rangeKeyPrefix + prefix
}

func (c *RedisRangeCache) Get(ctx context.Context, prefix string) (string, bool, error) {
	body, err := c.rdb.Get(ctx, c.key(prefix)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("range cache get: %w", err)
	}
	return body, true, nil
}

func (c *RedisRangeCache) Set(ctx context.Context, prefix, body string) error {
	if err := c.rdb.Set(ctx, c.key(prefix), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("range cache set: %w", err)
	}
	return nil
}
