package ghost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type membersResponse struct {
	Members []struct {
		Email string `json:"email"`
	} `json:"members"`
	Meta struct {
		Pagination struct {
			Page  int `json:"page"`
			Pages int `json:"pages"`
		} `json:"pagination"`
	} `json:"meta"`
}

// Members returns the email addresses of all subscribed members.
func (c *Client) Members(ctx context.Context) ([]string, error) {
	const limit = 100
	var emails []string
	for page := 1; ; page++ {
		q := url.Values{
			"limit":  {strconv.Itoa(limit)},
			"page":   {strconv.Itoa(page)},
			"filter": {"subscribed:true"},
		}
		var out membersResponse
		if err := c.adminGet(ctx, "/members/", q, &out); err != nil {
			return nil, fmt.Errorf("fetch members page %d: %w", page, err)
		}
		for _, m := range out.Members {
			if e := strings.TrimSpace(m.Email); e != "" {
				emails = append(emails, e)
			}
		}
		if out.Meta.Pagination.Pages <= page {
			break
		}
	}
	return emails, nil
}

type settingsResponse struct {
	Settings []struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	} `json:"settings"`
}

// Settings returns all site settings flattened to key -> value.
func (c *Client) Settings(ctx context.Context) (map[string]any, error) {
	var out settingsResponse
	if err := c.adminGet(ctx, "/settings/", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch settings: %w", err)
	}
	m := make(map[string]any, len(out.Settings))
	for _, s := range out.Settings {
		if s.Key != "" {
			m[s.Key] = s.Value
		}
	}
	return m, nil
}

type newslettersResponse struct {
	Newsletters []map[string]any `json:"newsletters"`
}

// Newsletter returns the active newsletter's settings. With an empty slug the
// site must have exactly one active newsletter; nil is returned when it has none.
func (c *Client) Newsletter(ctx context.Context, slug string) (map[string]any, error) {
	var out newslettersResponse
	if err := c.adminGet(ctx, "/newsletters/", url.Values{"limit": {"all"}}, &out); err != nil {
		return nil, fmt.Errorf("fetch newsletters: %w", err)
	}
	return pickNewsletter(out.Newsletters, slug)
}

func pickNewsletter(all []map[string]any, slug string) (map[string]any, error) {
	slug = strings.TrimSpace(slug)
	var active []map[string]any
	for _, n := range all {
		if s, _ := n["status"].(string); s != "active" {
			continue
		}
		if slug != "" {
			if ns, _ := n["slug"].(string); ns == slug {
				return n, nil
			}
			continue
		}
		active = append(active, n)
	}
	if slug != "" {
		return nil, fmt.Errorf("ghost: no active newsletter with slug %q", slug)
	}
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		return active[0], nil
	default:
		return nil, ErrMultipleNewsletters
	}
}

// Theme describes an installed theme.
type Theme struct {
	Name      string         `json:"name"`
	Active    bool           `json:"active"`
	Templates []TemplateName `json:"templates"`
	Package   struct {
		Version string `json:"version"`
	} `json:"package"`
}

// TemplateName is a theme template, listed by Ghost either as a bare name or
// as an object with a filename.
type TemplateName string

func (t *TemplateName) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = TemplateName(s)
		return nil
	}
	var obj struct {
		Name     string `json:"name"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Filename != "" {
		*t = TemplateName(obj.Filename)
	} else {
		*t = TemplateName(obj.Name)
	}
	return nil
}

// Themes lists installed themes.
func (c *Client) Themes(ctx context.Context) ([]Theme, error) {
	var out struct {
		Themes []Theme `json:"themes"`
	}
	if err := c.adminGet(ctx, "/themes/", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch themes: %w", err)
	}
	return out.Themes, nil
}

// Site describes the Ghost installation.
type Site struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Version string `json:"version"`
}

// Site fetches basic site information.
func (c *Client) Site(ctx context.Context) (Site, error) {
	var out struct {
		Site Site `json:"site"`
	}
	if err := c.adminGet(ctx, "/site/", nil, &out); err != nil {
		return Site{}, fmt.Errorf("fetch site: %w", err)
	}
	return out.Site, nil
}
