// internal/common/mail/mailer.go
package mail

import (
	"context"
	"strings"
)

// Content types passed to Send. Dispatch mail is always HTML.
const (
	ContentTypeHTML = "text/html"
	ContentTypeText = "text/plain"
)

// Message is one outgoing email. Messages are transient: constructed per
// eligible booking, handed to a Mailer, never persisted.
type Message struct {
	To          string
	Subject     string
	Body        string
	ContentType string
}

// Mailer sends a single message. Implementations must respect ctx deadlines
// so one stuck send cannot stall a whole dispatch batch.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ValidAddress performs the basic shape check applied before handing an
// address to the transport.
func ValidAddress(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	if len(parts[0]) == 0 || len(parts[1]) == 0 {
		return false
	}
	if !strings.Contains(parts[1], ".") {
		return false
	}
	return true
}
