package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitStoreForTest(t *testing.T) *RateLimitStore {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	return NewRateLimitStore(client)
}

func TestRateLimitStore_AllowsWithinLimit(t *testing.T) {
	store := newRateLimitStoreForTest(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := store.Allow(ctx, "client-a:dispatch", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.EqualValues(t, 5, result.Limit)
	}
}

func TestRateLimitStore_BlocksOverLimit(t *testing.T) {
	store := newRateLimitStoreForTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Allow(ctx, "client-b:dispatch", 3, time.Minute)
		require.NoError(t, err)
	}

	result, err := store.Allow(ctx, "client-b:dispatch", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.EqualValues(t, 0, result.Remaining)
	assert.Greater(t, result.ResetAt, time.Now().Unix()-1)
}

func TestRateLimitStore_KeysAreIndependent(t *testing.T) {
	store := newRateLimitStoreForTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Allow(ctx, "client-c:dispatch", 3, time.Minute)
		require.NoError(t, err)
	}
	blocked, err := store.Allow(ctx, "client-c:dispatch", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	other, err := store.Allow(ctx, "client-d:dispatch", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestRateLimitStore_RemainingCountsDown(t *testing.T) {
	store := newRateLimitStoreForTest(t)
	ctx := context.Background()

	first, err := store.Allow(ctx, "client-e:dispatch", 3, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, first.Remaining)

	second, err := store.Allow(ctx, "client-e:dispatch", 3, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, second.Remaining)
}
