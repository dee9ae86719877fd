package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/ports"
)

// RedisCache is the production KV store. Keys are namespaced with an
// optional prefix; the logical "<kind>:<date>" key is kept as-is after it.
type RedisCache struct {
	rdb       *redis.Client
	keyPrefix string
}

var _ ports.Cache = (*RedisCache)(nil)

func NewRedisCache(rdb *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{rdb: rdb, keyPrefix: keyPrefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	storeKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	value, err := c.rdb.Get(ctx, c.fullKey(storeKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "redis get")
	}
	return value, true, nil
}

// Set stores value; ttl <= 0 keeps the key without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	storeKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}

	if err := c.rdb.Set(ctx, c.fullKey(storeKey), value, ttl).Err(); err != nil {
		return errs.Wrap(err, "redis set")
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errs.Wrap(err, "redis ping")
	}
	return nil
}

func (c *RedisCache) fullKey(key string) string {
	return c.keyPrefix + key
}
