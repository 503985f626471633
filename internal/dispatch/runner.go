package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ghost-newsletter/internal/ai"
	"ghost-newsletter/internal/content"
	"ghost-newsletter/internal/ghost"
	"ghost-newsletter/internal/mail"
	"ghost-newsletter/internal/newsletter"
	"ghost-newsletter/internal/storage"
)

var (
	// ErrAlreadyDelivered is returned by a live run for a post that was already sent.
	ErrAlreadyDelivered = errors.New("post was already delivered to subscribers")
	// ErrNoSubscribers is returned by a live run when Ghost has no subscribed members.
	ErrNoSubscribers = errors.New("no subscribed members")
	// ErrNoTestAddress is returned by a dry run with neither a test address nor a sender address.
	ErrNoTestAddress = errors.New("dry run needs ghost.test_email or mail.from_email")
)

const (
	emailTag     = "newsletter"
	preheaderLen = 140
)

// Source is the content-management side of a run.
type Source interface {
	LatestPost(ctx context.Context, q ghost.PostQuery) (ghost.Post, error)
	Settings(ctx context.Context) (map[string]any, error)
	Newsletter(ctx context.Context, slug string) (map[string]any, error)
	Members(ctx context.Context) ([]string, error)
}

// Store caches settings between runs and remembers delivered posts.
type Store interface {
	SaveSettings(ctx context.Context, kind string, v map[string]any, ttl time.Duration) error
	LoadSettings(ctx context.Context, kind string) (map[string]any, error)
	IsDelivered(ctx context.Context, postID string) (bool, error)
	MarkDelivered(ctx context.Context, d storage.Delivery) error
}

// Options configures a run.
type Options struct {
	Live           bool // send to every subscriber; otherwise a dry run to the test address
	Force          bool // resend a post that was already delivered
	Query          ghost.PostQuery
	NewsletterSlug string
	TestEmail      string
	Site           newsletter.Site
	WebsiteDomain  string // UTM source; empty disables tagging
	PreviewPath    string // dry-run HTML output; empty skips the file
	SettingsTTL    time.Duration
	Interval       newsletter.Interval // how the issue is dated; empty means weekly
}

// Runner performs one newsletter run. Store and Summarizer are optional.
type Runner struct {
	Source     Source
	Sender     mail.Sender
	Store      Store
	Summarizer ai.Summarizer
	Template   *newsletter.Template // nil uses the embedded template
	Options    Options

	Now func() time.Time
}

// Result describes a completed run.
type Result struct {
	RunID       string
	Live        bool
	PostID      string
	PostTitle   string
	Subject     string
	Recipients  int
	PreviewPath string
}

// Run fetches the latest post, renders it and sends it. Only a missing post,
// a render failure or a delivery failure aborts the run; settings problems
// fall back to cached or default values.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	res := Result{RunID: uuid.NewString(), Live: r.Options.Live}
	log := slog.With("run_id", res.RunID, "live", res.Live)

	post, err := r.Source.LatestPost(ctx, r.Options.Query)
	if err != nil {
		return res, fmt.Errorf("fetch latest post: %w", err)
	}
	res.PostID, res.PostTitle = post.ID, post.Title
	log.Info("dispatch: post selected", "id", post.ID, "title", post.Title, "published_at", post.PublishedAt)

	if r.Options.Live && !r.Options.Force && r.Store != nil {
		done, err := r.Store.IsDelivered(ctx, post.ID)
		if err != nil {
			log.Warn("dispatch: delivery check failed", "err", err)
		} else if done {
			return res, fmt.Errorf("%w: %s (use --force to send again)", ErrAlreadyDelivered, post.Title)
		}
	}

	branding := r.settings(ctx, "branding", r.Source.Settings)
	nl := r.settings(ctx, "newsletter", func(ctx context.Context) (map[string]any, error) {
		return r.Source.Newsletter(ctx, r.Options.NewsletterSlug)
	})

	vars, err := r.vars(ctx, post, branding, nl, now)
	if err != nil {
		return res, err
	}
	tpl := r.Template
	if tpl == nil {
		if tpl, err = newsletter.DefaultTemplate(); err != nil {
			return res, err
		}
	}
	email, err := tpl.Render(vars)
	if err != nil {
		return res, fmt.Errorf("render newsletter: %w", err)
	}
	res.Subject = email.Subject

	msg := mail.Message{
		FromName:  vars["sender_name"],
		FromEmail: firstNonEmpty(r.Options.Site.FromEmail, vars["sender_email"]),
		ReplyTo:   vars["reply_to"],
		Subject:   email.Subject,
		HTML:      email.HTML,
		Text:      plainText(post, vars["post_url"]),
		Tag:       emailTag,
		Metadata:  map[string]string{"run_id": res.RunID, "post_id": post.ID},
	}

	if !r.Options.Live {
		return r.dryRun(ctx, log, res, msg)
	}
	return r.live(ctx, log, res, msg, now)
}

func (r *Runner) dryRun(ctx context.Context, log *slog.Logger, res Result, msg mail.Message) (Result, error) {
	if path := r.Options.PreviewPath; path != "" {
		if err := writePreview(path, msg.HTML); err != nil {
			log.Warn("dispatch: could not write preview", "path", path, "err", err)
		} else {
			res.PreviewPath = path
			log.Info("dispatch: preview written", "path", path)
		}
	}
	to := firstNonEmpty(r.Options.TestEmail, msg.FromEmail)
	if to == "" {
		return res, ErrNoTestAddress
	}
	msg.To = []string{to}
	log.Info("dispatch: dry run, sending test email", "to", to, "subject", msg.Subject)
	if err := r.Sender.Send(ctx, msg); err != nil {
		return res, fmt.Errorf("send test email: %w", err)
	}
	res.Recipients = 1
	return res, nil
}

func (r *Runner) live(ctx context.Context, log *slog.Logger, res Result, msg mail.Message, now time.Time) (Result, error) {
	members, err := r.Source.Members(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch members: %w", err)
	}
	members = dedupe(members)
	if len(members) == 0 {
		return res, ErrNoSubscribers
	}
	msg.To = members
	log.Info("dispatch: sending newsletter", "recipients", len(members), "subject", msg.Subject)
	if err := r.Sender.Send(ctx, msg); err != nil {
		return res, fmt.Errorf("send newsletter: %w", err)
	}
	res.Recipients = len(members)
	if r.Store != nil {
		d := storage.Delivery{
			PostID:     res.PostID,
			Title:      res.PostTitle,
			Subject:    res.Subject,
			Recipients: len(members),
			RunID:      res.RunID,
			SentAt:     now.UTC(),
		}
		if err := r.Store.MarkDelivered(ctx, d); err != nil {
			log.Warn("dispatch: could not record delivery", "err", err)
		}
	}
	return res, nil
}

// settings fetches one settings object, refreshing the cache on success and
// falling back to it on failure. A nil result means hardcoded defaults.
func (r *Runner) settings(ctx context.Context, kind string, fetch func(context.Context) (map[string]any, error)) map[string]any {
	v, err := fetch(ctx)
	if err == nil {
		if v != nil && r.Store != nil {
			if err := r.Store.SaveSettings(ctx, kind, v, r.Options.SettingsTTL); err != nil {
				slog.Warn("dispatch: could not cache settings", "kind", kind, "err", err)
			}
		}
		return v
	}
	if errors.Is(err, ghost.ErrMultipleNewsletters) {
		slog.Warn("dispatch: several active newsletters, set ghost.newsletter to pick one; using defaults", "err", err)
		return nil
	}
	slog.Warn("dispatch: settings fetch failed", "kind", kind, "err", err)
	if r.Store == nil {
		return nil
	}
	cached, cerr := r.Store.LoadSettings(ctx, kind)
	if cerr != nil {
		slog.Warn("dispatch: settings cache unavailable", "kind", kind, "err", cerr)
		return nil
	}
	if cached != nil {
		slog.Info("dispatch: using cached settings", "kind", kind)
	}
	return cached
}

func (r *Runner) vars(ctx context.Context, post ghost.Post, branding, nl map[string]any, now time.Time) (newsletter.Vars, error) {
	body, err := content.Process(post.HTML)
	if err != nil {
		return nil, fmt.Errorf("process post content: %w", err)
	}
	if r.Options.WebsiteDomain != "" {
		if body, err = content.AddUTM(body, r.Options.WebsiteDomain, now); err != nil {
			return nil, fmt.Errorf("tag links: %w", err)
		}
	}
	postURL := post.URL
	if r.Options.WebsiteDomain != "" {
		postURL = content.TagURL(postURL, r.Options.WebsiteDomain, now)
	}

	vars := newsletter.Resolver{Site: r.Options.Site}.Resolve(branding, nl)
	return vars.WithPost(newsletter.Post{
		Title:        post.Title,
		HTML:         body,
		URL:          postURL,
		FeatureImage: post.FeatureImage,
		Author:       post.AuthorName(),
		Excerpt:      r.preheader(ctx, post),
		PublishedAt:  post.PublishedTime(),
	}, now).WithIssue(r.Options.Interval, now), nil
}

// preheader prefers the author's custom excerpt, then a generated one, then
// the start of the post.
func (r *Runner) preheader(ctx context.Context, post ghost.Post) string {
	if s := strings.TrimSpace(post.CustomExcerpt); s != "" {
		return s
	}
	if r.Summarizer != nil {
		text := firstNonEmpty(post.Plaintext, content.PlainText(post.HTML))
		s, err := r.Summarizer.Preheader(ctx, post.Title, text)
		if err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		if err != nil {
			slog.Warn("dispatch: preheader generation failed", "err", err)
		}
	}
	if s := strings.TrimSpace(post.Excerpt); s != "" {
		return content.Preview(s, preheaderLen)
	}
	return content.Preview(post.HTML, preheaderLen)
}

func plainText(post ghost.Post, url string) string {
	text := firstNonEmpty(strings.TrimSpace(post.Plaintext), content.PlainText(post.HTML))
	var b strings.Builder
	b.WriteString(post.Title)
	b.WriteString("\n\n")
	b.WriteString(text)
	if url != "" {
		b.WriteString("\n\nRead online: ")
		b.WriteString(url)
	}
	return b.String()
}

func writePreview(path, html string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(html), 0o644)
}

func dedupe(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
