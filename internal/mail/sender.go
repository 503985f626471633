package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("email must have at least one recipient")
	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("email must have a subject")
	// ErrNoContent indicates no HTML content was provided.
	ErrNoContent = errors.New("email must have HTML content")
	// ErrSendFailed indicates the provider rejected one or more messages.
	ErrSendFailed = errors.New("failed to send email")
)

// Message is a newsletter email addressed to one or more recipients.
// Each recipient receives an individual copy.
type Message struct {
	FromName  string
	FromEmail string
	ReplyTo   string
	To        []string
	Subject   string
	HTML      string
	Text      string
	Tag       string
	Metadata  map[string]string
}

// From formats the sender as `"Name" <addr>`, or the bare address without a name.
func (m Message) From() string {
	if strings.TrimSpace(m.FromName) == "" {
		return m.FromEmail
	}
	return (&mail.Address{Name: m.FromName, Address: m.FromEmail}).String()
}

// Validate checks the fields every provider needs.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipient
	}
	if strings.TrimSpace(m.Subject) == "" {
		return ErrNoSubject
	}
	if strings.TrimSpace(m.HTML) == "" {
		return ErrNoContent
	}
	if strings.TrimSpace(m.FromEmail) == "" {
		return errors.New("email must have a sender address")
	}
	return nil
}

// Sender delivers a message to every address in Message.To.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// chunk splits addrs into slices of at most n.
func chunk(addrs []string, n int) [][]string {
	var out [][]string
	for len(addrs) > n {
		out = append(out, addrs[:n])
		addrs = addrs[n:]
	}
	if len(addrs) > 0 {
		out = append(out, addrs)
	}
	return out
}

// failure records a rejected recipient for the aggregated send error.
func failure(addr string, err error) error {
	return fmt.Errorf("%s: %w", addr, err)
}
