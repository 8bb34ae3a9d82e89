// internal/models/settings.go
package models

// Settings is the follow-up email configuration record. It is a singleton
// loaded once at the start of each dispatch run and treated as read-only for
// the run's duration.
type Settings struct {
	Enabled bool   `json:"enabled"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

const (
	DefaultSubject = "Thank You for Attending #_EVENTNAME"
	DefaultBody    = `<p>Dear #_BOOKINGNAME,</p>
<p>Please take a few minutes to evaluate the event you recently attended, <strong>#_EVENTNAME</strong>, using the following form: <a href="#">#</a>.</p>
<p>Thank you for your attendance and participation!</p>`
)

// DefaultSettings is the fallback used whenever the settings store is empty,
// unreachable, or holds a record that fails validation.
func DefaultSettings() Settings {
	return Settings{
		Enabled: true,
		Subject: DefaultSubject,
		Body:    DefaultBody,
	}
}
