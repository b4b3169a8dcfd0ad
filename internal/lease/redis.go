// SPDX-License-Identifier: MIT

package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "lease:"

// acquireScript is an atomic insert-if-absent with owner-scoped renewal.
// Returns 1 when the caller holds the lease afterwards, 0 on contention.
var acquireScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == false then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
  return 1
end
if v == ARGV[1] then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
  return 1
end
return 0
`)

// releaseScript is a compare-and-delete: only the holding token may release.
// Returns 1 released, 0 not owner, -1 absent.
var releaseScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == false then
  return -1
end
if v == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`)

// RedisManager coordinates leases across processes. Expiry is enforced by
// Redis key TTL, so a crashed owner stalls a group for at most the lease TTL.
type RedisManager struct {
	client *redis.Client
}

// NewRedisManager connects and verifies the Redis backend.
func NewRedisManager(client *redis.Client) (*RedisManager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("lease: redis connection failed: %w", err)
	}
	return &RedisManager{client: client}, nil
}

func (m *RedisManager) Acquire(ctx context.Context, groupID, owner string, ttl time.Duration) (bool, error) {
	res, err := acquireScript.Run(ctx, m.client, []string{redisKeyPrefix + groupID}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("lease: acquire %s: %w", groupID, err)
	}
	return res == 1, nil
}

func (m *RedisManager) Release(ctx context.Context, groupID, owner string) (ReleaseResult, error) {
	res, err := releaseScript.Run(ctx, m.client, []string{redisKeyPrefix + groupID}, owner).Int()
	if err != nil {
		return Absent, fmt.Errorf("lease: release %s: %w", groupID, err)
	}
	switch res {
	case 1:
		return Released, nil
	case 0:
		return NotOwner, nil
	default:
		return Absent, nil
	}
}

func (m *RedisManager) Status(ctx context.Context, groupID string) (Status, error) {
	key := redisKeyPrefix + groupID
	owner, err := m.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("lease: status %s: %w", groupID, err)
	}
	ttl, err := m.client.PTTL(ctx, key).Result()
	if err != nil {
		return Status{}, fmt.Errorf("lease: status ttl %s: %w", groupID, err)
	}
	st := Status{Held: true, Holder: owner}
	if ttl > 0 {
		st.ExpiresAt = time.Now().Add(ttl)
	}
	return st, nil
}

func (m *RedisManager) AnyActive(ctx context.Context) (bool, error) {
	n, err := m.ActiveCount(ctx)
	return n > 0, err
}

func (m *RedisManager) ActiveCount(ctx context.Context) (int, error) {
	var cursor uint64
	count := 0
	for {
		keys, next, err := m.client.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("lease: scan: %w", err)
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

func (m *RedisManager) Close() error { return m.client.Close() }

var _ Manager = (*RedisManager)(nil)
