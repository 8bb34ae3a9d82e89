// internal/events/postgres.go
package events

import (
	"context"
	"database/sql"
	"time"

	"afterevent-mailer/internal/common/errors"
	"afterevent-mailer/internal/common/logger"
	"afterevent-mailer/internal/models"
)

const (
	eventsEndedOnQuery = `
		SELECT e.id, e.name, e.start_at, e.end_at,
		       COALESCE(l.id, 0), COALESCE(l.name, ''), COALESCE(l.address, ''), COALESCE(l.town, '')
		FROM events e
		LEFT JOIN locations l ON l.id = e.location_id
		WHERE e.end_at::date = $1::date
		ORDER BY e.id`

	bookingsForEventQuery = `
		SELECT b.id, b.status, b.spaces, COALESCE(b.comment, ''),
		       COALESCE(a.name, ''), COALESCE(a.email, '')
		FROM bookings b
		LEFT JOIN attendees a ON a.id = b.attendee_id
		WHERE b.event_id = $1
		ORDER BY b.id`
)

// PostgresProvider loads events, locations and bookings from the events
// database.
type PostgresProvider struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresProvider(db *sql.DB, log logger.Logger) *PostgresProvider {
	return &PostgresProvider{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "events"}),
	}
}

// EventsEndedOn returns all events whose end date equals the calendar date
// of day, each populated with its location and bookings. An event without a
// location or without bookings is still returned.
func (p *PostgresProvider) EventsEndedOn(ctx context.Context, day time.Time) ([]models.Event, error) {
	date := day.Format("2006-01-02")

	rows, err := p.db.QueryContext(ctx, eventsEndedOnQuery, date)
	if err != nil {
		return nil, errors.NewEventQueryFailedError(err)
	}
	defer rows.Close()

	var evts []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(
			&e.ID, &e.Name, &e.StartAt, &e.EndAt,
			&e.Location.ID, &e.Location.Name, &e.Location.Address, &e.Location.Town,
		); err != nil {
			return nil, errors.NewEventQueryFailedError(err)
		}
		evts = append(evts, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewEventQueryFailedError(err)
	}

	for i := range evts {
		bookings, err := p.bookingsForEvent(ctx, evts[i].ID)
		if err != nil {
			return nil, err
		}
		evts[i].Bookings = bookings
	}

	return evts, nil
}

func (p *PostgresProvider) bookingsForEvent(ctx context.Context, eventID int64) ([]models.Booking, error) {
	rows, err := p.db.QueryContext(ctx, bookingsForEventQuery, eventID)
	if err != nil {
		return nil, errors.NewBookingQueryFailedError(eventID, err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var (
			b          models.Booking
			wireStatus int
		)
		if err := rows.Scan(&b.ID, &wireStatus, &b.Spaces, &b.Comment,
			&b.Attendee.Name, &b.Attendee.Email); err != nil {
			return nil, errors.NewBookingQueryFailedError(eventID, err)
		}
		b.EventID = eventID
		b.Status = models.BookingStatusFromWire(wireStatus)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewBookingQueryFailedError(eventID, err)
	}

	return bookings, nil
}
