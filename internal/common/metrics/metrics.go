// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Total number of daily dispatch runs by outcome",
		},
		[]string{"outcome"},
	)

	DispatchRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "dispatch_run_duration_seconds",
			Help: "Duration of a full dispatch run in seconds",
		},
	)

	EventsSelected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_events_selected_total",
			Help: "Total number of events selected for follow-up",
		},
	)

	EmailsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_emails_sent_total",
			Help: "Total number of follow-up emails sent",
		},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_send_failures_total",
			Help: "Total number of per-booking send failures by error code",
		},
		[]string{"error_code"},
	)

	BookingsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_bookings_skipped_total",
			Help: "Total number of bookings skipped by reason",
		},
		[]string{"reason"},
	)
)

// Run outcomes for DispatchRuns.
const (
	OutcomeCompleted     = "completed"
	OutcomeDisabled      = "disabled"
	OutcomeNoEvents      = "no_events"
	OutcomeProviderError = "provider_error"
	OutcomeLockHeld      = "lock_held"
)

// Skip reasons for BookingsSkipped.
const (
	SkipNotApproved  = "not_approved"
	SkipNoRecipient  = "no_recipient"
	SkipInvalidEmail = "invalid_email"
)
