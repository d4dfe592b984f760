package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore tracks per-caller request counts in Redis using fixed windows.
type RateLimitStore struct {
	client *goredis.Client
}

func NewRateLimitStore(client *goredis.Client) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// RateLimitResult is the outcome of a single Allow check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix seconds when the current window closes
}

// Allow counts a request against the fixed window identified by key and
// window. Keys are bucketed by window number; each bucket expires one second
// after its window closes so stale counters do not accumulate.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error) {
	windowSecs := int64(window.Seconds())
	bucket := time.Now().Unix() / windowSecs
	counterKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

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
		ResetAt:   (bucket + 1) * windowSecs,
	}, nil
}
