package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const fundingKeyPrefix = "escrow:idem:"

// IdempotencyCache remembers confirmed funding results by funding key
// (wallet id plus transaction reference). It is a fast path only: the wallet
// row in Postgres stays authoritative for duplicate detection.
type IdempotencyCache struct {
	client goredis.UniversalClient
}

func NewIdempotencyCache(client goredis.UniversalClient) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// Get returns nil, nil on a miss.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, fundingKeyPrefix+key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading funding %s: %w", key, err)
	}
	return val, nil
}

// Set records value only if the key is absent. A funding key maps to a single
// credit, so the first recorded result wins when replicas race.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.SetNX(ctx, fundingKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("recording funding %s: %w", key, err)
	}
	return nil
}
