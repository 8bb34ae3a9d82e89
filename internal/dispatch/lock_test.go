// internal/dispatch/lock_test.go
package dispatch

import (
	"context"
	"testing"
	"time"

	"afterevent-mailer/internal/common/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLock(t *testing.T, ttl time.Duration) (*RedisRunLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRunLock(client, ttl), mr
}

func TestRedisRunLock_AcquireOncePerDay(t *testing.T) {
	lock, mr := newTestRedisLock(t, 36*time.Hour)
	ctx := context.Background()
	day := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)

	ok, err := lock.Acquire(ctx, day, "run-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, day, "run-2")
	require.NoError(t, err)
	assert.False(t, ok, "same day must only be granted once")

	// the marker records which run claimed the day
	val, err := mr.Get("afterevent:run:2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, "run-1", val)
}

func TestRedisRunLock_DistinctDaysAreIndependent(t *testing.T) {
	lock, _ := newTestRedisLock(t, 36*time.Hour)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC), "run-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC), "run-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRunLock_MarkerExpires(t *testing.T) {
	lock, mr := newTestRedisLock(t, 36*time.Hour)
	ctx := context.Background()
	day := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)

	ok, err := lock.Acquire(ctx, day, "run-1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 36*time.Hour, mr.TTL("afterevent:run:2026-08-30"))

	mr.FastForward(37 * time.Hour)
	ok, err = lock.Acquire(ctx, day, "run-2")
	require.NoError(t, err)
	assert.True(t, ok, "an expired marker frees the day")
}

func TestRedisRunLock_BackendError(t *testing.T) {
	lock, mr := newTestRedisLock(t, time.Hour)
	mr.Close()

	ok, err := lock.Acquire(context.Background(), time.Now(), "run-1")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRunLockFailed, errors.CodeOf(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestNoopRunLock_AlwaysGrants(t *testing.T) {
	lock := NoopRunLock{}
	for i := 0; i < 3; i++ {
		ok, err := lock.Acquire(context.Background(), time.Now(), "run")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
