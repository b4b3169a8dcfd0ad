// SPDX-License-Identifier: MIT

package lease

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisManager(t *testing.T) (*RedisManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	m, err := NewRedisManager(client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, mr
}

func TestRedisAcquireExclusive(t *testing.T) {
	m, _ := newRedisManager(t)
	ctx := context.Background()

	ok, err := m.Acquire(ctx, "g1", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Acquire(ctx, "g1", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAcquireReentrant(t *testing.T) {
	m, _ := newRedisManager(t)
	ctx := context.Background()

	ok, err := m.Acquire(ctx, "g1", "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.Acquire(ctx, "g1", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "same owner re-acquires and renews")
}

func TestRedisLeaseExpires(t *testing.T) {
	m, mr := newRedisManager(t)
	ctx := context.Background()

	ok, err := m.Acquire(ctx, "g1", "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = m.Acquire(ctx, "g1", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is takeable")
}

func TestRedisRelease(t *testing.T) {
	m, _ := newRedisManager(t)
	ctx := context.Background()

	_, err := m.Acquire(ctx, "g1", "owner-a", time.Minute)
	require.NoError(t, err)

	res, err := m.Release(ctx, "g1", "stale")
	require.NoError(t, err)
	assert.Equal(t, NotOwner, res)

	res, err = m.Release(ctx, "g1", "owner-a")
	require.NoError(t, err)
	assert.Equal(t, Released, res)

	res, err = m.Release(ctx, "g1", "owner-a")
	require.NoError(t, err)
	assert.Equal(t, Absent, res)
}

func TestRedisStatusAndCounts(t *testing.T) {
	m, _ := newRedisManager(t)
	ctx := context.Background()

	st, err := m.Status(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, st.Held)

	_, err = m.Acquire(ctx, "g1", "owner-a", time.Minute)
	require.NoError(t, err)
	_, err = m.Acquire(ctx, "g2", "owner-b", time.Minute)
	require.NoError(t, err)

	st, err = m.Status(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, st.Held)
	assert.Equal(t, "owner-a", st.Holder)
	assert.False(t, st.ExpiresAt.IsZero())

	n, err := m.ActiveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err := m.AnyActive(ctx)
	require.NoError(t, err)
	assert.True(t, active)
}
