package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "webhook:ratelimit:"

// RateLimitStore counts requests per caller per fixed time window in Redis.
// One counter per (key, window) pair; counters expire on their own, so a
// quiet caller leaves nothing behind.
type RateLimitStore struct {
	client *goredis.Client
	now    func() time.Time
}

// NewRateLimitStore creates a Redis-backed fixed-window rate limit store.
func NewRateLimitStore(client *goredis.Client) *RateLimitStore {
	return &RateLimitStore{client: client, now: time.Now}
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// Allow records one request under key and reports whether it fits the limit.
// The counter and its expiry are sent in one pipeline round trip. The window
// boundary is aligned to the epoch, so every caller shares the same reset
// instant; the expiry carries a one second margin past the boundary.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error) {
	windowSecs := int64(window.Seconds())
	windowStart := s.now().Unix() / windowSecs * windowSecs
	counterKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowStart)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit counter for %q: %w", key, err)
	}

	count := incr.Val()
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   windowStart + windowSecs,
	}, nil
}
