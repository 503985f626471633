package mail

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/resend/resend-go/v2"
)

// Resend sends through the Resend API, one request per recipient.
type Resend struct {
	client *resend.Client
}

// NewResend creates a Resend sender.
func NewResend(apiKey string) *Resend {
	return &Resend{client: resend.NewClient(apiKey)}
}

var tagUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Send implements Sender.
func (r *Resend) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	var errs []error
	for _, addr := range msg.To {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := &resend.SendEmailRequest{
			From:    msg.From(),
			To:      []string{addr},
			Subject: msg.Subject,
			Html:    msg.HTML,
			Text:    msg.Text,
			ReplyTo: msg.ReplyTo,
			Tags:    resendTags(msg),
		}
		sent, err := r.client.Emails.SendWithContext(ctx, req)
		if err != nil {
			slog.Warn("resend: message rejected", "to", addr, "err", err)
			errs = append(errs, failure(addr, err))
			continue
		}
		slog.Debug("resend: message accepted", "to", addr, "id", sent.Id)
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrSendFailed}, errs...)...)
	}
	return nil
}

// resendTags maps the message tag and metadata onto Resend tags, which only
// accept ASCII letters, digits, underscores and dashes.
func resendTags(msg Message) []resend.Tag {
	var tags []resend.Tag
	if msg.Tag != "" {
		tags = append(tags, resend.Tag{Name: "category", Value: tagUnsafe.ReplaceAllString(msg.Tag, "_")})
	}
	for k, v := range msg.Metadata {
		tags = append(tags, resend.Tag{
			Name:  tagUnsafe.ReplaceAllString(k, "_"),
			Value: tagUnsafe.ReplaceAllString(v, "_"),
		})
	}
	return tags
}
