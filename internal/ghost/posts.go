package ghost

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Tag is a Ghost post tag.
type Tag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Author is a Ghost post author.
type Author struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Post represents the subset of Ghost post fields used for the newsletter.
type Post struct {
	ID                  string   `json:"id"`
	UUID                string   `json:"uuid"`
	Slug                string   `json:"slug"`
	Title               string   `json:"title"`
	HTML                string   `json:"html"`
	Plaintext           string   `json:"plaintext"`
	Excerpt             string   `json:"excerpt"`
	CustomExcerpt       string   `json:"custom_excerpt"`
	FeatureImage        string   `json:"feature_image"`
	FeatureImageCaption string   `json:"feature_image_caption"`
	Featured            bool     `json:"featured"`
	URL                 string   `json:"url"`
	PublishedAt         string   `json:"published_at"`
	Tags                []Tag    `json:"tags"`
	Authors             []Author `json:"authors"`
}

// PostQuery narrows the posts considered for the newsletter.
type PostQuery struct {
	DaysBack     int
	FeaturedOnly bool
	FilterTags   []string
	Limit        int  // how many recent posts to fetch before filtering
	AutoInterval bool // replace DaysBack with a window derived from the publishing pace
}

type postsResponse struct {
	Posts []Post `json:"posts"`
}

// RecentPosts fetches posts published within the query window, newest first,
// with featured/tag filters applied.
func (c *Client) RecentPosts(ctx context.Context, q PostQuery) ([]Post, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 15
	}
	params := url.Values{
		"limit":   {strconv.Itoa(limit)},
		"order":   {"published_at desc"},
		"include": {"tags,authors"},
		"formats": {"html,plaintext"},
	}
	if q.AutoInterval {
		q.DaysBack = c.AutoDaysBack(ctx, q.DaysBack)
	}
	if q.DaysBack > 0 {
		cutoff := c.now().AddDate(0, 0, -q.DaysBack).Format("2006-01-02")
		params.Set("filter", "published_at:>="+cutoff)
	}
	var out postsResponse
	if err := c.contentGet(ctx, "/posts/", params, &out); err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	return FilterPosts(out.Posts, q.FeaturedOnly, q.FilterTags), nil
}

const (
	paceWindowDays = 60
	paceSample     = 20
)

// AutoDaysBack derives a look-back window from how often the site published
// over the last 60 days. fallback is returned when the pace cannot be measured.
func (c *Client) AutoDaysBack(ctx context.Context, fallback int) int {
	params := url.Values{
		"limit":  {strconv.Itoa(paceSample)},
		"order":  {"published_at desc"},
		"fields": {"id,published_at"},
		"filter": {"published_at:>=" + c.now().AddDate(0, 0, -paceWindowDays).Format("2006-01-02")},
	}
	var out postsResponse
	if err := c.contentGet(ctx, "/posts/", params, &out); err != nil {
		slog.Warn("ghost: publishing pace unavailable, keeping days_back", "days_back", fallback, "err", err)
		return fallback
	}
	dates := make([]time.Time, 0, len(out.Posts))
	for _, p := range out.Posts {
		if t := p.PublishedTime(); !t.IsZero() {
			dates = append(dates, t)
		}
	}
	days := DaysBackForPace(dates, fallback)
	slog.Info("ghost: auto interval", "posts", len(dates), "days_back", days)
	return days
}

// DaysBackForPace maps the mean gap between consecutive publish dates (newest
// first) to a window: 7 days for near-daily sites, 14 for weekly ones and 30
// otherwise. Fewer than two dates yield fallback.
func DaysBackForPace(published []time.Time, fallback int) int {
	if len(published) < 2 {
		return fallback
	}
	total := 0
	for i := 0; i < len(published)-1; i++ {
		total += int(published[i].Sub(published[i+1]).Hours() / 24)
	}
	avg := float64(total) / float64(len(published)-1)
	switch {
	case avg <= 2:
		return 7
	case avg <= 7:
		return 14
	default:
		return 30
	}
}

// LatestPost returns the most recent post matching the query.
func (c *Client) LatestPost(ctx context.Context, q PostQuery) (Post, error) {
	posts, err := c.RecentPosts(ctx, q)
	if err != nil {
		return Post{}, err
	}
	if len(posts) == 0 {
		return Post{}, ErrNoPosts
	}
	p := posts[0]
	if p.URL != "" && !strings.HasPrefix(p.URL, "http") {
		p.URL = c.websiteURL + p.URL
	}
	return p, nil
}

// FilterPosts keeps featured posts when featuredOnly is set, and posts carrying
// at least one of tags (case-insensitive) when tags is non-empty.
func FilterPosts(posts []Post, featuredOnly bool, tags []string) []Post {
	want := map[string]struct{}{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			want[t] = struct{}{}
		}
	}
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if featuredOnly && !p.Featured {
			continue
		}
		if len(want) > 0 && !hasAnyTag(p, want) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasAnyTag(p Post, want map[string]struct{}) bool {
	for _, t := range p.Tags {
		if _, ok := want[strings.ToLower(t.Name)]; ok {
			return true
		}
	}
	return false
}

// PublishedTime parses the post publish date. The zero time is returned when
// the field is missing or malformed.
func (p Post) PublishedTime() time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(p.PublishedAt))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AuthorName returns the first author's name, or "" when the post has none.
func (p Post) AuthorName() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return p.Authors[0].Name
}
