package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	postmarkBaseURL = "https://api.postmarkapp.com"
	// PostmarkTestToken makes Postmark accept messages without delivering them.
	PostmarkTestToken = "POSTMARK_API_TEST"
	postmarkBatchSize = 500
	// Postmark rejects batch requests above 50 MB.
	postmarkMaxBatchBytes = 50 << 20
)

// Postmark sends through the Postmark batch email API.
type Postmark struct {
	baseURL string
	token   string
	stream  string
	http    *http.Client

	maxBatchBytes int
}

// NewPostmark creates a Postmark sender for the given server token and message stream.
func NewPostmark(token, stream string, timeout time.Duration) *Postmark {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if token == PostmarkTestToken {
		slog.Info("postmark: test mode, emails will not be delivered")
	}
	return &Postmark{
		baseURL: postmarkBaseURL,
		token:   token,
		stream:  stream,
		http:    &http.Client{Timeout: timeout},

		maxBatchBytes: postmarkMaxBatchBytes,
	}
}

// WithBaseURL optionally overrides the API endpoint.
func (p *Postmark) WithBaseURL(baseURL string) *Postmark {
	p2 := *p
	if strings.TrimSpace(baseURL) != "" {
		p2.baseURL = strings.TrimRight(baseURL, "/")
	}
	return &p2
}

type postmarkMessage struct {
	From          string            `json:"From"`
	To            string            `json:"To"`
	ReplyTo       string            `json:"ReplyTo,omitempty"`
	Subject       string            `json:"Subject"`
	HtmlBody      string            `json:"HtmlBody"`
	TextBody      string            `json:"TextBody,omitempty"`
	Tag           string            `json:"Tag,omitempty"`
	Metadata      map[string]string `json:"Metadata,omitempty"`
	MessageStream string            `json:"MessageStream,omitempty"`
}

type postmarkResult struct {
	To        string `json:"To"`
	MessageID string `json:"MessageID"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// Send posts one message per recipient. A batch request carries at most 500
// messages and stays under Postmark's request size cap.
func (p *Postmark) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	var errs []error
	for _, to := range chunk(msg.To, postmarkBatchSize) {
		bodies, err := p.encodeBatches(msg, to)
		if err != nil {
			return fmt.Errorf("encode postmark batch: %w", err)
		}
		for _, body := range bodies {
			if err := p.sendBatch(ctx, body); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrSendFailed}, errs...)...)
	}
	return nil
}

// encodeBatches renders one JSON array per request, starting a new array
// whenever the next message would push the body past maxBatchBytes. A single
// oversized message still goes out alone and Postmark reports it.
func (p *Postmark) encodeBatches(msg Message, to []string) ([][]byte, error) {
	var (
		out   [][]byte
		buf   bytes.Buffer
		count int
	)
	flush := func() {
		if count == 0 {
			return
		}
		buf.WriteByte(']')
		out = append(out, bytes.Clone(buf.Bytes()))
		buf.Reset()
		count = 0
	}
	for _, addr := range to {
		item, err := json.Marshal(postmarkMessage{
			From:          msg.From(),
			To:            addr,
			ReplyTo:       msg.ReplyTo,
			Subject:       msg.Subject,
			HtmlBody:      msg.HTML,
			TextBody:      msg.Text,
			Tag:           msg.Tag,
			Metadata:      msg.Metadata,
			MessageStream: p.stream,
		})
		if err != nil {
			return nil, err
		}
		if count > 0 && buf.Len()+1+len(item)+1 > p.maxBatchBytes {
			flush()
		}
		if count == 0 {
			buf.WriteByte('[')
		} else {
			buf.WriteByte(',')
		}
		buf.Write(item)
		count++
	}
	flush()
	return out, nil
}

func (p *Postmark) sendBatch(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/email/batch", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.token)
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return errors.New("postmark authentication failed: check the server token")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("postmark batch failed: status=%d body=%s", resp.StatusCode, string(b))
	}
	var results []postmarkResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("decode postmark response: %w", err)
	}
	var errs []error
	for _, r := range results {
		if r.ErrorCode != 0 {
			slog.Warn("postmark: message rejected", "to", r.To, "code", r.ErrorCode, "message", r.Message)
			errs = append(errs, failure(r.To, fmt.Errorf("postmark error %d: %s", r.ErrorCode, r.Message)))
			continue
		}
		slog.Debug("postmark: message accepted", "to", r.To, "message_id", r.MessageID)
	}
	return errors.Join(errs...)
}
