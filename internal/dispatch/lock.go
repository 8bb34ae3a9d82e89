// internal/dispatch/lock.go
package dispatch

import (
	"context"
	"fmt"
	"time"

	"afterevent-mailer/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

// RunLock guards the daily dispatch so a given calendar day is processed at
// most once, across process restarts included.
type RunLock interface {
	// Acquire claims the run for day. It returns false when the day's run
	// already happened or is in progress elsewhere.
	Acquire(ctx context.Context, day time.Time, runID string) (bool, error)
}

const lockKeyPrefix = "afterevent:run:"

// RedisRunLock implements RunLock with a per-day SET NX key. The key is left
// behind as the "already ran" marker and expires after the TTL, which must
// comfortably exceed one day's schedule drift.
type RedisRunLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRunLock(client *redis.Client, ttl time.Duration) *RedisRunLock {
	return &RedisRunLock{client: client, ttl: ttl}
}

func (l *RedisRunLock) Acquire(ctx context.Context, day time.Time, runID string) (bool, error) {
	key := lockKeyPrefix + day.Format("2006-01-02")
	ok, err := l.client.SetNX(ctx, key, runID, l.ttl).Result()
	if err != nil {
		return false, errors.NewRunLockFailedError(fmt.Errorf("setnx %s: %w", key, err))
	}
	return ok, nil
}

// NoopRunLock always grants the run. Used for one-shot manual invocations.
type NoopRunLock struct{}

func (NoopRunLock) Acquire(context.Context, time.Time, string) (bool, error) {
	return true, nil
}
