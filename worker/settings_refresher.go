package worker

import (
	"context"
	"log/slog"
	"time"
)

// SettingsSource fetches the Ghost settings objects the newsletter is styled with.
type SettingsSource interface {
	Settings(ctx context.Context) (map[string]any, error)
	Newsletter(ctx context.Context, slug string) (map[string]any, error)
}

// SettingsCache stores settings objects by kind.
type SettingsCache interface {
	SaveSettings(ctx context.Context, kind string, v map[string]any, ttl time.Duration) error
}

// SettingsRefresher keeps the settings cache warm between scheduled sends so a
// run can fall back to recent values when Ghost is unreachable.
type SettingsRefresher struct {
	Source         SettingsSource
	Cache          SettingsCache
	NewsletterSlug string
	TTL            time.Duration
	Interval       time.Duration
}

func (w *SettingsRefresher) Start(ctx context.Context) error {
	if w.TTL <= 0 {
		w.TTL = 24 * time.Hour
	}
	if w.Interval <= 0 {
		w.Interval = w.TTL / 2
	}

	// initial run
	w.runOnce(ctx)

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SettingsRefresher) runOnce(ctx context.Context) {
	if v, err := w.Source.Settings(ctx); err != nil {
		slog.Warn("settings-refresher: fetch branding error", "error", err)
	} else {
		w.save(ctx, "branding", v)
	}
	if v, err := w.Source.Newsletter(ctx, w.NewsletterSlug); err != nil {
		slog.Warn("settings-refresher: fetch newsletter error", "error", err)
	} else {
		w.save(ctx, "newsletter", v)
	}
}

func (w *SettingsRefresher) save(ctx context.Context, kind string, v map[string]any) {
	if v == nil {
		return
	}
	if err := w.Cache.SaveSettings(ctx, kind, v, w.TTL); err != nil {
		slog.Error("settings-refresher: cache error", "kind", kind, "error", err)
		return
	}
	slog.Debug("settings-refresher: cached", "kind", kind, "keys", len(v))
}
