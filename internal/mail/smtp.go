package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gopkgmail "gopkg.in/gomail.v2"
)

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
}

// SMTP sends over a single SMTP connection, one message per recipient.
type SMTP struct {
	dialer *gopkgmail.Dialer
}

// NewSMTP creates an SMTP sender.
func NewSMTP(cfg SMTPConfig) *SMTP {
	d := gopkgmail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	return &SMTP{dialer: d}
}

// Send implements Sender.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	conn, err := s.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", s.dialer.Host, err)
	}
	defer conn.Close()

	var errs []error
	for _, addr := range msg.To {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := gopkgmail.Send(conn, buildSMTPMessage(msg, addr)); err != nil {
			slog.Warn("smtp: message rejected", "to", addr, "err", err)
			errs = append(errs, failure(addr, err))
			continue
		}
		slog.Debug("smtp: message sent", "to", addr)
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrSendFailed}, errs...)...)
	}
	return nil
}

func buildSMTPMessage(msg Message, to string) *gopkgmail.Message {
	m := gopkgmail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetHeader("To", to)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	if msg.Tag != "" {
		m.SetHeader("X-Tag", msg.Tag)
	}
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/html", msg.HTML)
	}
	return m
}
