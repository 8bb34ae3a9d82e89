// internal/models/event.go
package models

import "time"

// Event is one calendar event as loaded from the events database, with its
// location and bookings already attached. Instances live for a single
// dispatch run and are discarded afterwards.
type Event struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	StartAt  time.Time `json:"startAt"`
	EndAt    time.Time `json:"endAt"`
	Location Location  `json:"location"`
	Bookings []Booking `json:"bookings"`
}

// Placeholders returns the event-scope placeholder values.
func (e Event) Placeholders() map[string]string {
	return map[string]string{
		"EVENTNAME":      e.Name,
		"EVENTSTARTDATE": formatDate(e.StartAt),
		"EVENTENDDATE":   formatDate(e.EndAt),
	}
}

type Location struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Town    string `json:"town"`
}

// Placeholders returns the location-scope placeholder values.
func (l Location) Placeholders() map[string]string {
	return map[string]string{
		"LOCATIONNAME":    l.Name,
		"LOCATIONADDRESS": l.Address,
		"LOCATIONTOWN":    l.Town,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
