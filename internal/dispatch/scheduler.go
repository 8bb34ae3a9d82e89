// internal/dispatch/scheduler.go
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"afterevent-mailer/internal/common/logger"
)

// Clock abstracts the wall clock so scheduler tests can simulate ticks
// without real waits.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the production Clock.
func RealClock() Clock { return realClock{} }

// Runner is the work a scheduler tick triggers.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler fires the dispatcher once per day at a fixed wall-clock time.
// Ticks run synchronously, so a slow run delays (and effectively drops) an
// overlapping tick instead of running concurrently with it. Missed days are
// not caught up.
type Scheduler struct {
	runner   Runner
	clock    Clock
	logger   logger.Logger
	location *time.Location

	hour, minute, second int

	started atomic.Bool
}

func NewScheduler(runner Runner, scheduleTime string, location *time.Location, clock Clock, log logger.Logger) (*Scheduler, error) {
	at, err := time.Parse("15:04:05", scheduleTime)
	if err != nil {
		return nil, fmt.Errorf("schedule time %q: %w", scheduleTime, err)
	}

	return &Scheduler{
		runner:   runner,
		clock:    clock,
		logger:   log.WithFields(map[string]interface{}{"component": "scheduler"}),
		location: location,
		hour:     at.Hour(),
		minute:   at.Minute(),
		second:   at.Second(),
	}, nil
}

// Start blocks, firing the runner at each daily schedule time until ctx is
// cancelled. Starting an already started scheduler is a no-op, which makes
// registration idempotent.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		s.logger.Warn("scheduler already started, ignoring", nil)
		return
	}
	defer s.started.Store(false)

	for {
		next := s.NextRun(s.clock.Now())
		s.logger.Info("next dispatch scheduled", map[string]interface{}{
			"at": next.Format(time.RFC3339),
		})

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(next.Sub(s.clock.Now())):
			if err := s.runner.Run(ctx); err != nil {
				s.logger.Warn("scheduled dispatch was skipped", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// NextRun returns the first schedule time strictly after t.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	local := t.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(),
		s.hour, s.minute, s.second, 0, s.location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
