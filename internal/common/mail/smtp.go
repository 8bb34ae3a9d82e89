// internal/common/mail/smtp.go
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"afterevent-mailer/internal/common/config"
	"afterevent-mailer/internal/common/errors"
	"afterevent-mailer/internal/common/logger"
)

// SMTPMailer sends messages through a plain or STARTTLS SMTP relay.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	from   string
	logger logger.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, from string, log logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		from:   from,
		logger: log.WithFields(map[string]interface{}{"mailer": "smtp"}),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !ValidAddress(msg.To) {
		return errors.NewInvalidRecipientError(msg.To)
	}
	if err := ctx.Err(); err != nil {
		return errors.NewMailSendFailedError(err)
	}

	raw := m.buildRawMessage(msg)

	// net/smtp has no context support; run the transaction in a goroutine
	// and abandon it when ctx expires so the batch keeps moving.
	done := make(chan error, 1)
	go func() {
		done <- m.transact(msg.To, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.NewMailSendFailedError(err)
		}
		m.logger.Debug("message accepted by relay", map[string]interface{}{
			"to":        msg.To,
			"messageId": m.messageID(msg.To),
		})
		return nil
	case <-ctx.Done():
		return errors.NewMailSendFailedError(ctx.Err())
	}
}

func (m *SMTPMailer) buildRawMessage(msg Message) []byte {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	contentType := msg.ContentType
	if contentType == "" {
		contentType = ContentTypeText
	}
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=UTF-8\r\n", contentType))

	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	return []byte(b.String())
}

func (m *SMTPMailer) transact(to string, raw []byte) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if m.cfg.UseTLS {
		return m.sendWithTLS(addr, auth, to, raw)
	}
	return smtp.SendMail(addr, auth, m.from, []string{to}, raw)
}

func (m *SMTPMailer) sendWithTLS(addr string, auth smtp.Auth, to string, raw []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: m.cfg.Host}
	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(m.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

func (m *SMTPMailer) messageID(to string) string {
	return fmt.Sprintf("<%d.%s@%s>", time.Now().UnixNano(), localPart(to), m.cfg.Host)
}

// localPart extracts a sanitized local part for message IDs.
func localPart(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) == 0 {
		return "user"
	}
	local := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, parts[0])
	if len(local) > 10 {
		local = local[:10]
	}
	if local == "" {
		return "user"
	}
	return local
}
