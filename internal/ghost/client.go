package ghost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const acceptVersion = "v5.0"

var (
	// ErrNoPosts is returned when no post matches the query.
	ErrNoPosts = errors.New("ghost: no posts found")
	// ErrMultipleNewsletters is returned when several newsletters are active and none was selected.
	ErrMultipleNewsletters = errors.New("ghost: multiple active newsletters; set ghost.newsletter to a newsletter slug")
	// ErrInvalidAdminKey is returned when the admin API key is not "<id>:<hex secret>".
	ErrInvalidAdminKey = errors.New("ghost: admin api key must be <id>:<hex secret>")
)

// Config holds connection settings for a Ghost site.
type Config struct {
	AdminURL      string
	WebsiteURL    string
	ContentAPIKey string
	AdminAPIKey   string
	Timeout       time.Duration
}

// Client is a minimal HTTP client for the Ghost Content and Admin APIs.
type Client struct {
	adminURL   string
	websiteURL string
	contentKey string
	adminKey   string
	http       *http.Client
	now        func() time.Time
}

// New creates a new Ghost client.
// AdminURL should be the site root, e.g. "https://blog.example.com" (no trailing slash).
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	// Older configs carry the full admin API path.
	admin := strings.TrimRight(cfg.AdminURL, "/")
	admin = strings.TrimSuffix(admin, "/ghost/api/admin")
	website := strings.TrimRight(cfg.WebsiteURL, "/")
	if website == "" {
		website = admin
	}
	return &Client{
		adminURL:   admin,
		websiteURL: website,
		contentKey: cfg.ContentAPIKey,
		adminKey:   cfg.AdminAPIKey,
		http:       &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (c *Client) contentGet(ctx context.Context, path string, q url.Values, out any) error {
	if strings.TrimSpace(c.contentKey) == "" {
		return errors.New("ghost: content api key not configured")
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("key", c.contentKey)
	return c.get(ctx, c.adminURL+"/ghost/api/content"+path+"?"+q.Encode(), "", out)
}

func (c *Client) adminGet(ctx context.Context, path string, q url.Values, out any) error {
	token, err := c.adminToken()
	if err != nil {
		return err
	}
	u := c.adminURL + "/ghost/api/admin" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return c.get(ctx, u, "Ghost "+token, out)
}

func (c *Client) get(ctx context.Context, u, auth string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept-Version", acceptVersion)
	req.Header.Set("Accept", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ghost request %s failed: status=%d body=%s", req.URL.Path, resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ghost response: %w", err)
	}
	return nil
}
