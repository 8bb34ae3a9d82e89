// internal/events/provider.go
package events

import (
	"context"
	"time"

	"afterevent-mailer/internal/models"
)

// Provider returns the events that ended on a given calendar day, with
// location and bookings attached. Implementations must keep the returned
// ordering stable across identical calls.
type Provider interface {
	EventsEndedOn(ctx context.Context, day time.Time) ([]models.Event, error)
}
