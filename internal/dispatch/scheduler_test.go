// internal/dispatch/scheduler_test.go
package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"afterevent-mailer/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock hands out a controllable tick channel and a frozen now.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	tick chan time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, tick: make(chan time.Time)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) After(time.Duration) <-chan time.Time { return c.tick }

type fakeRunner struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (r *fakeRunner) Run(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	return r.err
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func TestNewScheduler_RejectsBadScheduleTime(t *testing.T) {
	_, err := NewScheduler(&fakeRunner{}, "6 am", time.UTC, RealClock(), logger.NewTestLogger(t))
	assert.Error(t, err)
}

func TestScheduler_NextRun(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	s, err := NewScheduler(&fakeRunner{}, "06:00:00", berlin, RealClock(), logger.NewTestLogger(t))
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before schedule time fires today",
			now:  time.Date(2026, 8, 30, 3, 15, 0, 0, berlin),
			want: time.Date(2026, 8, 30, 6, 0, 0, 0, berlin),
		},
		{
			name: "after schedule time fires tomorrow",
			now:  time.Date(2026, 8, 30, 6, 0, 1, 0, berlin),
			want: time.Date(2026, 8, 31, 6, 0, 0, 0, berlin),
		},
		{
			name: "exactly at schedule time fires tomorrow",
			now:  time.Date(2026, 8, 30, 6, 0, 0, 0, berlin),
			want: time.Date(2026, 8, 31, 6, 0, 0, 0, berlin),
		},
		{
			name: "utc input converted to schedule location",
			now:  time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC), // 04:00 in Berlin
			want: time.Date(2026, 8, 30, 6, 0, 0, 0, berlin),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, s.NextRun(tt.now).Equal(tt.want),
				"got %v, want %v", s.NextRun(tt.now), tt.want)
		})
	}
}

func TestScheduler_TickFiresRunner(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 30, 5, 0, 0, 0, time.UTC))
	runner := &fakeRunner{}

	s, err := NewScheduler(runner, "06:00:00", time.UTC, clock, logger.NewTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	clock.tick <- clock.Now()
	clock.tick <- clock.Now()

	cancel()
	<-done
	assert.Equal(t, 2, runner.count())
}

func TestScheduler_RunnerErrorKeepsScheduling(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 30, 5, 0, 0, 0, time.UTC))
	runner := &fakeRunner{err: context.DeadlineExceeded}

	s, err := NewScheduler(runner, "06:00:00", time.UTC, clock, logger.NewTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	clock.tick <- clock.Now()
	clock.tick <- clock.Now()

	cancel()
	<-done
	assert.Equal(t, 2, runner.count(), "an error on one tick must not stop the loop")
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 30, 5, 0, 0, 0, time.UTC))
	s, err := NewScheduler(&fakeRunner{}, "06:00:00", time.UTC, clock, logger.NewTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	// wait for the loop to reach its select before poking it again
	for !s.started.Load() {
		time.Sleep(time.Millisecond)
	}

	returned := make(chan struct{})
	go func() {
		s.Start(ctx) // second Start returns immediately
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("second Start did not return")
	}

	cancel()
	<-done
}
