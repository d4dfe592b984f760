package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SettlementCache implements ports.SettlementCache using Redis. It fronts
// the database's conditional status transition: a cache hit means the
// reference was already settled and the webhook is a replay.
type SettlementCache struct {
	client *goredis.Client
	prefix string
}

// NewSettlementCache creates a new Redis-backed settlement cache.
func NewSettlementCache(client *goredis.Client) *SettlementCache {
	return &SettlementCache{
		client: client,
		prefix: "settlement:",
	}
}

// Get retrieves the recorded status for a deposit reference.
// Returns "", nil if the reference has not been recorded.
func (c *SettlementCache) Get(ctx context.Context, reference string) (string, error) {
	val, err := c.client.Get(ctx, c.prefix+reference).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis settlement get: %w", err)
	}
	return val, nil
}

// Set records a deposit's settled status with TTL.
func (c *SettlementCache) Set(ctx context.Context, reference, status string, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+reference, status, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis settlement set: %w", err)
	}
	return nil
}
