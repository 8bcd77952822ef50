// Package cache holds short-lived JSON payloads (the anonymous home page,
// resolved episode sources) in Redis when available and in process memory
// otherwise.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourflock/nekostream/internal/metrics"
)

// Backend is implemented by MemoryCache and RedisCache.
type Backend interface {
	// Get returns (value, found, error).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Dial connects to redisURL (redis://[:password@]host:port/db) and pings it.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// New returns a RedisCache over client, or a MemoryCache when client is nil.
func New(client *redis.Client, prefix string) Backend {
	if client == nil {
		return NewMemoryCache(1000, time.Minute)
	}
	return NewRedisCache(client, prefix)
}

// GetJSON decodes the cached value at key into v. Undecodable entries are
// treated as misses. Lookups are counted under the key's leading segment
// ("home:anon" counts as "home").
func GetJSON(ctx context.Context, b Backend, key string, v interface{}) bool {
	name, _, _ := strings.Cut(key, ":")
	data, found, err := b.Get(ctx, key)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache get failed")
	}
	if err != nil || !found || json.Unmarshal(data, v) != nil {
		metrics.CacheLookups.WithLabelValues(name, "miss").Inc()
		return false
	}
	metrics.CacheLookups.WithLabelValues(name, "hit").Inc()
	return true
}

// SetJSON encodes v and stores it for ttl. Failures are logged, not returned:
// a cache write never fails the request that produced the value.
func SetJSON(ctx context.Context, b Backend, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}
	if err := b.Set(ctx, key, data, ttl); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}
