// redis_store.go — go-redis v9 adapter for Store.
package ratelimit

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore prefixes every key so the limiter can share a Redis with the cache.
type RedisStore struct {
	c      *goredis.Client
	prefix string
}

func NewRedisStore(c *goredis.Client, prefix string) *RedisStore {
	return &RedisStore{c: c, prefix: prefix}
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.c.Incr(ctx, s.prefix+key).Result()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.c.Expire(ctx, s.prefix+key, ttl).Err()
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.c.TTL(ctx, s.prefix+key).Result()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	return s.c.Del(ctx, prefixed...).Err()
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.c.Set(ctx, s.prefix+key, value, expiration).Err()
}
