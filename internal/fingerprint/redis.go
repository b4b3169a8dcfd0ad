// SPDX-License-Identifier: MIT

package fingerprint

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fp:"

// RedisStore backs the fingerprint window with Redis so that multiple intake
// workers share one deduplication set. SET NX with a TTL gives the atomic
// test-and-set; Redis expiry replaces the janitor.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and verifies the Redis backend.
func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("fingerprint: redis connection failed: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) SeenOrInsert(ctx context.Context, hash string) (Result, error) {
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+hash, time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return Fresh, fmt.Errorf("fingerprint: setnx: %w", err)
	}
	if ok {
		return Fresh, nil
	}
	return Duplicate, nil
}

// PurgeExpired is a no-op: Redis evicts entries via key TTL.
func (s *RedisStore) PurgeExpired(ctx context.Context) (int, error) { return 0, nil }

func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
