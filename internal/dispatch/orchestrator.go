// internal/dispatch/orchestrator.go
package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"afterevent-mailer/internal/common/errors"
	"afterevent-mailer/internal/common/logger"
	"afterevent-mailer/internal/common/mail"
	"afterevent-mailer/internal/common/metrics"
	"afterevent-mailer/internal/events"
	"afterevent-mailer/internal/models"
	"afterevent-mailer/internal/settings"
	"afterevent-mailer/internal/template"

	"github.com/google/uuid"
)

// Dispatcher drives one daily follow-up cycle: select yesterday's events,
// keep approved bookings, render the templates and send one email per
// booking. All collaborators are injected; the dispatcher holds no state
// between runs beyond the overlap guard.
type Dispatcher struct {
	store       settings.Store
	provider    events.Provider
	mailer      mail.Mailer
	lock        RunLock
	logger      logger.Logger
	location    *time.Location
	sendTimeout time.Duration
	now         func() time.Time

	running atomic.Bool
}

type Option func(*Dispatcher)

// WithNowFunc overrides the time source, used by tests.
func WithNowFunc(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(
	store settings.Store,
	provider events.Provider,
	mailer mail.Mailer,
	lock RunLock,
	location *time.Location,
	sendTimeout time.Duration,
	log logger.Logger,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		provider:    provider,
		mailer:      mailer,
		lock:        lock,
		logger:      log.WithFields(map[string]interface{}{"component": "dispatch"}),
		location:    location,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes one dispatch cycle. It never returns an error for conditions
// the batch design absorbs (disabled feature, provider failure, per-booking
// send failures); the returned error is reserved for overlap/lock refusals
// so the caller can log the skip.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		d.logger.Warn("dispatch cycle already in progress, dropping tick", nil)
		return errors.NewRunLockHeldError("in-process")
	}
	defer d.running.Store(false)

	runID := uuid.New().String()
	started := d.now()
	log := d.logger.WithFields(map[string]interface{}{"runId": runID})

	// Both day values are fixed once, up front, so a run spanning midnight
	// cannot drift.
	today := started.In(d.location)
	yesterday := today.AddDate(0, 0, -1)

	acquired, err := d.lock.Acquire(ctx, today, runID)
	if err != nil {
		// A broken lock backend should not silence the batch on a
		// single-instance deployment. Log loudly and carry on.
		log.Error("run lock backend unavailable, proceeding without it", map[string]interface{}{
			"error": err.Error(),
		})
	} else if !acquired {
		log.Info("dispatch already ran for this day, skipping", map[string]interface{}{
			"day": today.Format("2006-01-02"),
		})
		metrics.DispatchRuns.WithLabelValues(metrics.OutcomeLockHeld).Inc()
		return errors.NewRunLockHeldError(today.Format("2006-01-02"))
	}

	cfg, err := d.store.Load(ctx)
	if err != nil {
		// Load hands back usable defaults alongside the error.
		log.Warn("settings unavailable, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if !cfg.Enabled {
		log.Info("follow-up mail is disabled, nothing to do", nil)
		metrics.DispatchRuns.WithLabelValues(metrics.OutcomeDisabled).Inc()
		return nil
	}

	evts, err := d.provider.EventsEndedOn(ctx, yesterday)
	if err != nil {
		// Provider absence and "no events" are the same to this batch.
		log.Error("event provider unavailable, treating as zero events", map[string]interface{}{
			"day":   yesterday.Format("2006-01-02"),
			"error": err.Error(),
		})
		metrics.DispatchRuns.WithLabelValues(metrics.OutcomeProviderError).Inc()
		return nil
	}

	if len(evts) == 0 {
		log.Info("no events ended yesterday", map[string]interface{}{
			"day": yesterday.Format("2006-01-02"),
		})
		metrics.DispatchRuns.WithLabelValues(metrics.OutcomeNoEvents).Inc()
		return nil
	}

	var sent, failed int
	for _, event := range evts {
		metrics.EventsSelected.Inc()
		s, f := d.dispatchEvent(ctx, log, cfg, event)
		sent += s
		failed += f
	}

	metrics.DispatchRuns.WithLabelValues(metrics.OutcomeCompleted).Inc()
	metrics.DispatchRunDuration.Observe(d.now().Sub(started).Seconds())

	log.Info("dispatch cycle finished", map[string]interface{}{
		"day":    yesterday.Format("2006-01-02"),
		"events": len(evts),
		"sent":   sent,
		"failed": failed,
	})
	return nil
}

// dispatchEvent sends the follow-up to every approved booking of one event.
// Failures are counted and logged per booking, never propagated.
func (d *Dispatcher) dispatchEvent(ctx context.Context, log logger.Logger, cfg models.Settings, event models.Event) (sent, failed int) {
	locationScope := template.Scope{Name: "location", Values: event.Location.Placeholders()}
	eventScope := template.Scope{Name: "event", Values: event.Placeholders()}

	for _, booking := range event.Bookings {
		blog := log.WithFields(map[string]interface{}{
			"eventId":   event.ID,
			"bookingId": booking.ID,
		})

		if !booking.Eligible() {
			metrics.BookingsSkipped.WithLabelValues(metrics.SkipNotApproved).Inc()
			blog.Debug("booking not approved, skipping", map[string]interface{}{
				"status": booking.Status.String(),
			})
			continue
		}
		if booking.Attendee.Email == "" {
			metrics.BookingsSkipped.WithLabelValues(metrics.SkipNoRecipient).Inc()
			blog.Warn("approved booking has no attendee email, skipping", nil)
			continue
		}
		if !mail.ValidAddress(booking.Attendee.Email) {
			metrics.BookingsSkipped.WithLabelValues(metrics.SkipInvalidEmail).Inc()
			blog.Warn("attendee email is not a valid address, skipping", map[string]interface{}{
				"email": booking.Attendee.Email,
			})
			continue
		}

		bookingScope := template.Scope{Name: "booking", Values: booking.Placeholders()}
		msg := mail.Message{
			To:          booking.Attendee.Email,
			Subject:     template.Render(cfg.Subject, locationScope, eventScope, bookingScope),
			Body:        template.Render(cfg.Body, locationScope, eventScope, bookingScope),
			ContentType: mail.ContentTypeHTML,
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err := d.mailer.Send(sendCtx, msg)
		cancel()
		if err != nil {
			failed++
			metrics.SendFailures.WithLabelValues(string(errors.CodeOf(err))).Inc()
			blog.Error("follow-up send failed", map[string]interface{}{
				"to":    booking.Attendee.Email,
				"error": err.Error(),
			})
			continue
		}

		sent++
		metrics.EmailsSent.Inc()
		blog.Info("follow-up sent", map[string]interface{}{"to": booking.Attendee.Email})
	}

	return sent, failed
}

// SendTest sends the currently configured templates to one address without
// placeholder substitution, mirroring the admin "send test email" action.
func (d *Dispatcher) SendTest(ctx context.Context, to string) error {
	if !mail.ValidAddress(to) {
		return errors.NewInvalidRecipientError(to)
	}

	cfg, err := d.store.Load(ctx)
	if err != nil {
		d.logger.Warn("settings unavailable, test email uses defaults", map[string]interface{}{
			"error": err.Error(),
		})
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.mailer.Send(sendCtx, mail.Message{
		To:          to,
		Subject:     cfg.Subject,
		Body:        cfg.Body,
		ContentType: mail.ContentTypeHTML,
	})
}
