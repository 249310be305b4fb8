// Package notify delivers user notifications by mail, either directly over
// SMTP or through the message queue and a worker.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"github.com/yelpcamp/apiserver/config"
	"github.com/yelpcamp/apiserver/internal/services"
)

// ErrUndeliverable marks notifications that no retry can deliver, such as
// one addressed to a malformed recipient.
var ErrUndeliverable = errors.New("notification is undeliverable")

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends notifications as plain-text mail over SMTP.
type Mailer struct {
	client sender
	from   string
}

// NewMailer constructs an SMTP mailer from config. Authentication is used
// when a username is configured.
func NewMailer(cfg config.MailConfig) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &Mailer{client: client, from: cfg.From}, nil
}

func (m *Mailer) Send(ctx context.Context, n services.Notification) error {
	msg, err := m.message(n)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *Mailer) message(n services.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("%w: invalid sender %q: %v", ErrUndeliverable, m.from, err)
	}
	if err := msg.To(n.To); err != nil {
		return nil, fmt.Errorf("%w: invalid recipient %q: %v", ErrUndeliverable, n.To, err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, n.Body)
	return msg, nil
}
