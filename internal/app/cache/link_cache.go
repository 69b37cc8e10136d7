package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "link:"

	// LinkTTL bounds the staleness window of a cached binding. The entry is a
	// performance optimization over the system of record, never a durability
	// guarantee.
	LinkTTL = 30 * 24 * time.Hour

	// opTimeout keeps a degraded Redis from slowing the redirect path.
	opTimeout = 500 * time.Millisecond
)

// LinkCache maps short codes to destination URLs with an explicit TTL.
// Absence always means "unknown", never "does not exist".
type LinkCache interface {
	Get(ctx context.Context, code string) (url string, ok bool, err error)
	Set(ctx context.Context, code, url string) error
	Delete(ctx context.Context, code string) error
}

type redisLinkCache struct {
	rdb *redis.Client
}

// NewRedisLinkCache returns a LinkCache backed by the given Redis client.
func NewRedisLinkCache(rdb *redis.Client) LinkCache {
	return &redisLinkCache{rdb: rdb}
}

func key(code string) string {
	return keyPrefix + code
}

func (c *redisLinkCache) Get(ctx context.Context, code string) (string, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	url, err := c.rdb.Get(opCtx, key(code)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %s: %w", code, err)
	}
	return url, true, nil
}

func (c *redisLinkCache) Set(ctx context.Context, code, url string) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(opCtx, key(code), url, LinkTTL).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", code, err)
	}
	return nil
}

func (c *redisLinkCache) Delete(ctx context.Context, code string) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Del(opCtx, key(code)).Err(); err != nil {
		return fmt.Errorf("cache: delete %s: %w", code, err)
	}
	return nil
}
