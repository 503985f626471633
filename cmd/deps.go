package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"ghost-newsletter/internal/ai"
	"ghost-newsletter/internal/config"
	"ghost-newsletter/internal/dispatch"
	"ghost-newsletter/internal/ghost"
	"ghost-newsletter/internal/mail"
	"ghost-newsletter/internal/newsletter"
	"ghost-newsletter/internal/redisclient"
	"ghost-newsletter/internal/storage"
)

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return d, nil
}

// newGhostClient builds the Ghost API client. Content access needs the content
// key; admin endpoints need the admin key.
func newGhostClient(cfg config.Config, needAdmin bool) (*ghost.Client, error) {
	if cfg.Ghost.AdminURL == "" {
		return nil, fmt.Errorf("ghost config missing: set ghost.admin_url (or GHOST_ADMIN_URL)")
	}
	if needAdmin && cfg.Ghost.AdminAPIKey == "" {
		return nil, fmt.Errorf("ghost config missing: set ghost.admin_api_key (or GHOST_ADMIN_API_KEY)")
	}
	tm, err := parseDuration("ghost.timeout", cfg.Ghost.Timeout)
	if err != nil {
		return nil, err
	}
	return ghost.New(ghost.Config{
		AdminURL:      cfg.Ghost.AdminURL,
		WebsiteURL:    cfg.Ghost.WebsiteURL,
		ContentAPIKey: cfg.Ghost.ContentAPIKey,
		AdminAPIKey:   cfg.Ghost.AdminAPIKey,
		Timeout:       tm,
	}), nil
}

// openStore connects to Redis when configured. The returned close func is never nil.
func openStore(cfg config.Config) (*storage.RedisStore, func(), error) {
	if !redisclient.Enabled(cfg.Redis) {
		return nil, func() {}, nil
	}
	rdb := redisclient.New(cfg.Redis)
	return storage.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
}

func newSummarizer(cfg config.Config) ai.Summarizer {
	if cfg.OpenAI.APIKey == "" {
		return nil
	}
	s, err := ai.NewOpenAI(ai.Config{APIKey: cfg.OpenAI.APIKey, Model: cfg.OpenAI.Model, BaseURL: cfg.OpenAI.BaseURL})
	if err != nil {
		slog.Warn("openai disabled", "err", err)
		return nil
	}
	return s
}

func loadTemplate(path string) (*newsletter.Template, error) {
	if path == "" {
		return newsletter.DefaultTemplate()
	}
	return newsletter.LoadTemplate(path)
}

func siteFromConfig(cfg config.Config) newsletter.Site {
	return newsletter.Site{
		Name:          cfg.Mail.FromName,
		FromEmail:     cfg.Mail.FromEmail,
		ReplyTo:       cfg.Mail.ReplyTo,
		SupportEmail:  cfg.Mail.SupportEmail,
		FooterAddress: cfg.Mail.FooterAddress,
		WebsiteURL:    cfg.Ghost.WebsiteURL,
		ArchiveURL:    cfg.Newsletter.ArchiveURL,
	}
}

// newRunner wires a dispatch.Runner from configuration. The caller must call
// the returned close func.
func newRunner(cfg config.Config, live, force bool) (*dispatch.Runner, func(), error) {
	gc, err := newGhostClient(cfg, true)
	if err != nil {
		return nil, nil, err
	}
	tm, err := parseDuration("ghost.timeout", cfg.Ghost.Timeout)
	if err != nil {
		return nil, nil, err
	}
	sender, err := mail.New(cfg.Mail, tm)
	if err != nil {
		return nil, nil, err
	}
	tpl, err := loadTemplate(cfg.Newsletter.TemplatePath)
	if err != nil {
		return nil, nil, err
	}
	ttl, err := parseDuration("redis.settings_ttl", cfg.Redis.SettingsTTL)
	if err != nil {
		return nil, nil, err
	}
	interval, err := newsletter.ParseInterval(cfg.Newsletter.Interval)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	domain := ""
	if cfg.Newsletter.UTM {
		domain = cfg.Mail.WebsiteDomain
	}
	r := &dispatch.Runner{
		Source:     gc,
		Sender:     sender,
		Summarizer: newSummarizer(cfg),
		Template:   tpl,
		Options: dispatch.Options{
			Live:  live,
			Force: force,
			Query: ghost.PostQuery{
				DaysBack:     cfg.Newsletter.DaysBack,
				FeaturedOnly: cfg.Newsletter.FeaturedOnly,
				FilterTags:   cfg.Newsletter.FilterTags,
				AutoInterval: cfg.Newsletter.AutoInterval,
			},
			NewsletterSlug: cfg.Ghost.Newsletter,
			TestEmail:      cfg.Ghost.TestEmail,
			Site:           siteFromConfig(cfg),
			WebsiteDomain:  domain,
			PreviewPath:    cfg.Newsletter.PreviewPath,
			SettingsTTL:    ttl,
			Interval:       interval,
		},
	}
	// A nil *RedisStore must not become a non-nil interface.
	if store != nil {
		r.Store = store
	}
	return r, closeStore, nil
}
