// Package cache holds the optional Redis read-through cache for aggregate view
// counts. It is never a source of truth: entries expire after a short TTL.
//
// View totals only grow, so writes are raise-only. A fill computed from an
// older database read can never replace a larger count already cached.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-blog-engagement/internal/config"
)

const keyPrefix = "views:"

// raiseScript sets KEYS[1] to ARGV[1] unless it already holds a number that is
// at least as large. ARGV[2] is the TTL in milliseconds; "0" means no expiry.
var raiseScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]))
if cur ~= nil and cur >= tonumber(ARGV[1]) then
  return 0
end
if ARGV[2] == '0' then
  redis.call('SET', KEYS[1], ARGV[1])
else
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
end
return 1
`)

// Key returns the Redis key holding the cached count for slug.
func Key(slug string) string { return keyPrefix + slug }

// CountCache caches per-slug view totals in Redis.
type CountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New dials Redis from cfg and verifies the connection with a PING.
func New(ctx context.Context, cfg config.RedisConfig) (*CountCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewWithClient(client, cfg.CountTTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *CountCache {
	return &CountCache{client: client, ttl: ttl}
}

// GetMany returns the cached counts it finds. Missing or malformed entries are
// simply absent from the result.
func (c *CountCache) GetMany(ctx context.Context, slugs []string) (map[string]int64, error) {
	hits := make(map[string]int64, len(slugs))
	if len(slugs) == 0 {
		return hits, nil
	}
	keys := make([]string, len(slugs))
	for i, s := range slugs {
		keys[i] = Key(s)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		hits[slugs[i]] = n
	}
	return hits, nil
}

// SetMany stores counts with the configured TTL in one pipeline round-trip.
// An entry already holding a count >= the new one is left untouched.
func (c *CountCache) SetMany(ctx context.Context, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}
	ttl := strconv.FormatInt(ttlMillis(c.ttl), 10)
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for slug, n := range counts {
			raiseScript.Eval(ctx, p, []string{Key(slug)}, n, ttl)
		}
		return nil
	})
	return err
}

// ttlMillis converts ttl for the raise script: non-positive means no expiry,
// anything shorter than a millisecond rounds up to one.
func ttlMillis(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	if ms := ttl.Milliseconds(); ms > 0 {
		return ms
	}
	return 1
}

// Invalidate drops the cached count for slug.
func (c *CountCache) Invalidate(ctx context.Context, slug string) error {
	return c.client.Del(ctx, Key(slug)).Err()
}

// Close releases the underlying client.
func (c *CountCache) Close() error { return c.client.Close() }
