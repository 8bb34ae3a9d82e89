// internal/models/booking.go
package models

import "strconv"

// BookingStatus is the approval state of a booking. The events database
// stores an integer column; use BookingStatusFromWire at that boundary.
type BookingStatus int

const (
	BookingStatusUnknown BookingStatus = iota
	BookingStatusPending
	BookingStatusApproved
	BookingStatusRejected
	BookingStatusCancelled
)

// Wire values as stored by the events database. 1 means approved; this
// mapping is an external contract and must not change.
const (
	wirePending   = 0
	wireApproved  = 1
	wireRejected  = 2
	wireCancelled = 3
)

// BookingStatusFromWire maps the database integer onto the internal enum.
// Unrecognized values map to BookingStatusUnknown.
func BookingStatusFromWire(v int) BookingStatus {
	switch v {
	case wirePending:
		return BookingStatusPending
	case wireApproved:
		return BookingStatusApproved
	case wireRejected:
		return BookingStatusRejected
	case wireCancelled:
		return BookingStatusCancelled
	default:
		return BookingStatusUnknown
	}
}

func (s BookingStatus) String() string {
	switch s {
	case BookingStatusPending:
		return "pending"
	case BookingStatusApproved:
		return "approved"
	case BookingStatusRejected:
		return "rejected"
	case BookingStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Booking is one attendee's registration record for an event.
type Booking struct {
	ID       int64         `json:"id"`
	EventID  int64         `json:"eventId"`
	Status   BookingStatus `json:"status"`
	Spaces   int           `json:"spaces"`
	Comment  string        `json:"comment"`
	Attendee Attendee      `json:"attendee"`
}

type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Eligible reports whether a follow-up email may be sent for this booking.
// Only approved bookings are eligible; any other status, including unknown
// future values, is excluded.
func (b Booking) Eligible() bool {
	return b.Status == BookingStatusApproved
}

// Placeholders returns the booking-scope placeholder values.
func (b Booking) Placeholders() map[string]string {
	return map[string]string{
		"BOOKINGNAME":    b.Attendee.Name,
		"BOOKINGEMAIL":   b.Attendee.Email,
		"BOOKINGSPACES":  strconv.Itoa(b.Spaces),
		"BOOKINGCOMMENT": b.Comment,
	}
}
