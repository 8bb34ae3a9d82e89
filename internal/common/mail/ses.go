// internal/common/mail/ses.go
package mail

import (
	"context"

	appconfig "afterevent-mailer/internal/common/config"
	"afterevent-mailer/internal/common/errors"
	"afterevent-mailer/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the slice of the SES client the mailer uses, split out for
// mocking in tests.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends messages through Amazon SES.
type SESMailer struct {
	client SESAPI
	from   string
	logger logger.Logger
}

func NewSESMailer(ctx context.Context, cfg appconfig.SESConfig, from string, log logger.Logger) (*SESMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}
	return &SESMailer{
		client: ses.NewFromConfig(awsCfg),
		from:   from,
		logger: log.WithFields(map[string]interface{}{"mailer": "ses"}),
	}, nil
}

// NewSESMailerWithClient wires an existing client, used by tests.
func NewSESMailerWithClient(client SESAPI, from string, log logger.Logger) *SESMailer {
	return &SESMailer{
		client: client,
		from:   from,
		logger: log.WithFields(map[string]interface{}{"mailer": "ses"}),
	}
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	if !ValidAddress(msg.To) {
		return errors.NewInvalidRecipientError(msg.To)
	}

	body := &types.Body{}
	if msg.ContentType == ContentTypeHTML {
		body.Html = &types.Content{Data: aws.String(msg.Body)}
	} else {
		body.Text = &types.Content{Data: aws.String(msg.Body)}
	}

	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body:    body,
		},
		Source: aws.String(m.from),
	})
	if err != nil {
		return errors.NewMailSendFailedError(err)
	}

	m.logger.Debug("message accepted by SES", map[string]interface{}{
		"to":        msg.To,
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}
