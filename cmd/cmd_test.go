package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghost-newsletter/internal/config"
	"ghost-newsletter/internal/dispatch"
	"ghost-newsletter/internal/newsletter"
	"ghost-newsletter/internal/storage"
)

func TestAnalyzeBranding(t *testing.T) {
	r := analyzeBranding(map[string]any{
		"title":        "Acme",
		"description":  "",
		"accent_color": "#ff0000",
		"navigation":   []any{map[string]any{"label": "Home"}},
		"twitter":      nil,
	})
	require.Len(t, r.Groups, len(brandingGroups))
	assert.Equal(t, 1, r.Groups[0].Configured)
	assert.Equal(t, 1, r.Groups[1].Configured)
	assert.Equal(t, 1, r.Groups[2].Configured)
	assert.Equal(t, 5, r.Total)
	assert.Equal(t, 3, r.Configured)
	assert.InDelta(t, 60.0, r.Percent(), 0.001)
	assert.NotContains(t, r.Recommendations, "set an accent color so the newsletter matches the site")
	assert.Contains(t, r.Recommendations, "add social media links")
}

func TestPrintSettings(t *testing.T) {
	var buf bytes.Buffer
	printSettings(&buf, map[string]any{"title": "Acme", "logo": ""}, []string{"title", "logo"})
	assert.Contains(t, buf.String(), "+ title")
	assert.Contains(t, buf.String(), "- logo")
	assert.Contains(t, buf.String(), "(not configured)")
}

func TestNewRunnerRequiresGhost(t *testing.T) {
	var cfg config.Config
	cfg.FillDefaults()
	_, _, err := newRunner(cfg, false, false)
	assert.ErrorContains(t, err, "ghost.admin_url")
}

func TestNewRunnerDryRun(t *testing.T) {
	var cfg config.Config
	cfg.Ghost.AdminURL = "https://blog.example.com"
	cfg.Ghost.AdminAPIKey = "id:0102"
	cfg.Mail.Postmark.ServerToken = "POSTMARK_API_TEST"
	cfg.Mail.WebsiteDomain = "example.com"
	cfg.Newsletter.UTM = true
	cfg.FillDefaults()

	r, closeFn, err := newRunner(cfg, false, false)
	require.NoError(t, err)
	defer closeFn()
	assert.Nil(t, r.Store)
	assert.Nil(t, r.Summarizer)
	assert.False(t, r.Options.Live)
	assert.Equal(t, "example.com", r.Options.WebsiteDomain)
	assert.Equal(t, 30, r.Options.Query.DaysBack)
	assert.Equal(t, "https://blog.example.com", r.Options.Site.WebsiteURL)
	assert.Equal(t, newsletter.Weekly, r.Options.Interval)
	assert.False(t, r.Options.Query.AutoInterval)
}

func TestNewRunnerInterval(t *testing.T) {
	cfg := testConfig()
	cfg.Newsletter.Interval = "Monthly"
	cfg.Newsletter.AutoInterval = true
	cfg.Newsletter.ArchiveURL = "https://blog.example.com/archive/"

	r, closeFn, err := newRunner(cfg, false, false)
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, newsletter.Monthly, r.Options.Interval)
	assert.True(t, r.Options.Query.AutoInterval)
	assert.Equal(t, "https://blog.example.com/archive/", r.Options.Site.ArchiveURL)

	cfg.Newsletter.Interval = "fortnightly"
	_, _, err = newRunner(cfg, false, false)
	assert.ErrorContains(t, err, "fortnightly")
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.Ghost.AdminURL = "https://blog.example.com"
	cfg.Ghost.AdminAPIKey = "id:0102"
	cfg.Mail.Postmark.ServerToken = "POSTMARK_API_TEST"
	cfg.FillDefaults()
	return cfg
}

func TestLiveScheduleNeedsStore(t *testing.T) {
	cfg := testConfig()

	r, closeFn, err := newRunner(cfg, true, false)
	require.NoError(t, err)
	defer closeFn()
	assert.ErrorIs(t, checkScheduleStore(r), errLiveScheduleNeedsStore)

	r.Store = storage.NewRedisStore(nil)
	assert.NoError(t, checkScheduleStore(r))

	r, closeFn2, err := newRunner(cfg, false, false)
	require.NoError(t, err)
	defer closeFn2()
	assert.NoError(t, checkScheduleStore(r))
}

func TestNewsletterJobSkipsDeliveredPost(t *testing.T) {
	job := newsletterJob(func(context.Context) (dispatch.Result, error) {
		return dispatch.Result{PostTitle: "Hello"}, fmt.Errorf("%w: Hello", dispatch.ErrAlreadyDelivered)
	})
	assert.NoError(t, job(context.Background()))

	boom := errors.New("boom")
	job = newsletterJob(func(context.Context) (dispatch.Result, error) {
		return dispatch.Result{}, boom
	})
	assert.ErrorIs(t, job(context.Background()), boom)

	calls := 0
	job = newsletterJob(func(ctx context.Context) (dispatch.Result, error) {
		calls++
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return dispatch.Result{PostTitle: "Hello", Recipients: 3, Live: true}, nil
	})
	assert.NoError(t, job(context.Background()))
	assert.Equal(t, 1, calls)
}
