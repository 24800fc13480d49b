// Package cache keeps the dashboard aggregates in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/NICValidator/internal/config"
	"github.com/JonMunkholm/NICValidator/internal/core"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = core.ErrCacheMiss

// scanBatch is the COUNT hint used while scanning keys to invalidate.
const scanBatch = 100

// Stats is a JSON cache under a key prefix. It implements core.StatsCache.
type Stats struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New connects to cfg.RedisURL. It returns nil, nil when caching is disabled.
func New(ctx context.Context, cfg config.CacheConfig) (*Stats, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewStats(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewStats wraps an existing client. A ttl <= 0 stores keys without expiry.
func NewStats(client redis.UniversalClient, prefix string, ttl time.Duration) *Stats {
	return &Stats{client: client, prefix: prefix, ttl: ttl}
}

func (s *Stats) key(k string) string {
	return s.prefix + k
}

// Get decodes the value stored at key into dest.
func (s *Stats) Get(ctx context.Context, key string, dest any) error {
	k := s.key(key)
	b, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("cache get %s: %w", k, err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", k, err)
	}
	return nil
}

// Set stores value at key as JSON.
func (s *Stats) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	k := s.key(key)
	if err := s.client.Set(ctx, k, b, max(s.ttl, 0)).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", k, err)
	}
	return nil
}

// Invalidate deletes every key under the prefix.
func (s *Stats) Invalidate(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *Stats) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Stats) Close() error {
	return s.client.Close()
}
