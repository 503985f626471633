package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghost-newsletter/internal/ghost"
	"ghost-newsletter/internal/mail"
	"ghost-newsletter/internal/newsletter"
	"ghost-newsletter/internal/storage"
)

type fakeSource struct {
	post          ghost.Post
	postErr       error
	settings      map[string]any
	settingsErr   error
	newsletter    map[string]any
	newsletterErr error
	members       []string
	membersCalls  int
}

func (f *fakeSource) LatestPost(context.Context, ghost.PostQuery) (ghost.Post, error) {
	return f.post, f.postErr
}

func (f *fakeSource) Settings(context.Context) (map[string]any, error) {
	return f.settings, f.settingsErr
}

func (f *fakeSource) Newsletter(context.Context, string) (map[string]any, error) {
	return f.newsletter, f.newsletterErr
}

func (f *fakeSource) Members(context.Context) ([]string, error) {
	f.membersCalls++
	return f.members, nil
}

type fakeSender struct {
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

type memStore struct {
	settings  map[string]map[string]any
	delivered map[string]storage.Delivery
}

func newMemStore() *memStore {
	return &memStore{settings: map[string]map[string]any{}, delivered: map[string]storage.Delivery{}}
}

func (m *memStore) SaveSettings(_ context.Context, kind string, v map[string]any, _ time.Duration) error {
	m.settings[kind] = v
	return nil
}

func (m *memStore) LoadSettings(_ context.Context, kind string) (map[string]any, error) {
	return m.settings[kind], nil
}

func (m *memStore) IsDelivered(_ context.Context, id string) (bool, error) {
	_, ok := m.delivered[id]
	return ok, nil
}

func (m *memStore) MarkDelivered(_ context.Context, d storage.Delivery) error {
	m.delivered[d.PostID] = d
	return nil
}

type fakeSummarizer struct{ out string }

func (f fakeSummarizer) Preheader(context.Context, string, string) (string, error) {
	return f.out, nil
}

func testPost() ghost.Post {
	return ghost.Post{
		ID:          "p1",
		Title:       "Hello",
		HTML:        `<p>Body text <a href="https://acme.test/more">more</a></p>`,
		URL:         "https://acme.test/hello/",
		PublishedAt: "2025-08-20T10:00:00.000Z",
		Authors:     []ghost.Author{{Name: "Jane"}},
	}
}

func testRunner(src *fakeSource, snd *fakeSender) *Runner {
	return &Runner{
		Source: src,
		Sender: snd,
		Options: Options{
			TestEmail: "qa@acme.test",
			Site: newsletter.Site{
				Name:       "Acme",
				FromEmail:  "news@acme.test",
				WebsiteURL: "https://acme.test",
			},
		},
		Now: func() time.Time { return time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC) },
	}
}

func TestDryRunSendsOneTestEmail(t *testing.T) {
	src := &fakeSource{
		post:     testPost(),
		settings: map[string]any{"title": "Acme Weekly", "accent_color": "#ff0000"},
		members:  []string{"a@x.test", "b@x.test"},
	}
	snd := &fakeSender{}
	r := testRunner(src, snd)
	r.Options.PreviewPath = filepath.Join(t.TempDir(), "out", "preview.html")

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, snd.sent, 1)
	assert.Equal(t, []string{"qa@acme.test"}, snd.sent[0].To)
	assert.Equal(t, 0, src.membersCalls)
	assert.False(t, res.Live)
	assert.Equal(t, 1, res.Recipients)
	assert.Equal(t, "Acme Weekly: Hello", res.Subject)
	assert.Equal(t, "Acme Weekly: Hello", snd.sent[0].Subject)
	assert.Contains(t, snd.sent[0].HTML, "#ff0000")
	assert.Contains(t, snd.sent[0].HTML, "August 20, 2025")
	assert.Equal(t, "news@acme.test", snd.sent[0].FromEmail)
	assert.Equal(t, "p1", snd.sent[0].Metadata["post_id"])
	assert.NotEmpty(t, res.RunID)

	b, err := os.ReadFile(r.Options.PreviewPath)
	require.NoError(t, err)
	assert.Equal(t, snd.sent[0].HTML, string(b))
}

func TestDryRunFallsBackToSenderAddress(t *testing.T) {
	snd := &fakeSender{}
	r := testRunner(&fakeSource{post: testPost()}, snd)
	r.Options.TestEmail = ""

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snd.sent, 1)
	assert.Equal(t, []string{"news@acme.test"}, snd.sent[0].To)
}

func TestDryRunWithoutAnyAddress(t *testing.T) {
	snd := &fakeSender{}
	r := testRunner(&fakeSource{post: testPost()}, snd)
	r.Options.TestEmail = ""
	r.Options.Site.FromEmail = ""

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoTestAddress)
	assert.Empty(t, snd.sent)
}

func TestPostFailureIsFatal(t *testing.T) {
	snd := &fakeSender{}
	r := testRunner(&fakeSource{postErr: ghost.ErrNoPosts}, snd)

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ghost.ErrNoPosts)
	assert.Empty(t, snd.sent)
}

func TestSettingsFailureUsesDefaults(t *testing.T) {
	src := &fakeSource{
		post:          testPost(),
		settingsErr:   errors.New("status=500"),
		newsletterErr: ghost.ErrMultipleNewsletters,
	}
	snd := &fakeSender{}
	r := testRunner(src, snd)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snd.sent, 1)
	assert.Contains(t, snd.sent[0].HTML, newsletter.DefaultAccentColor)
	assert.Equal(t, "Acme: Hello", res.Subject)
}

func TestSettingsFailureUsesCache(t *testing.T) {
	store := newMemStore()
	store.settings["branding"] = map[string]any{"title": "Cached Title", "accent_color": "#123456"}
	src := &fakeSource{post: testPost(), settingsErr: errors.New("timeout")}
	snd := &fakeSender{}
	r := testRunner(src, snd)
	r.Store = store

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cached Title: Hello", res.Subject)
	assert.Contains(t, snd.sent[0].HTML, "#123456")
}

func TestSettingsSuccessRefreshesCache(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{post: testPost(), settings: map[string]any{"title": "Fresh"}}
	r := testRunner(src, &fakeSender{})
	r.Store = store

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Fresh", store.settings["branding"]["title"])
}

func TestLiveSendsToAllMembers(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{post: testPost(), members: []string{"a@x.test", "B@x.test", "b@x.test", ""}}
	snd := &fakeSender{}
	r := testRunner(src, snd)
	r.Store = store
	r.Options.Live = true

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snd.sent, 1)
	assert.Equal(t, []string{"a@x.test", "B@x.test"}, snd.sent[0].To)
	assert.Equal(t, 2, res.Recipients)
	assert.True(t, res.Live)
	assert.Equal(t, 2, store.delivered["p1"].Recipients)
}

func TestLiveRefusesRepeat(t *testing.T) {
	store := newMemStore()
	store.delivered["p1"] = storage.Delivery{PostID: "p1"}
	src := &fakeSource{post: testPost(), members: []string{"a@x.test"}}
	snd := &fakeSender{}
	r := testRunner(src, snd)
	r.Store = store
	r.Options.Live = true

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
	assert.Empty(t, snd.sent)

	r.Options.Force = true
	_, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, snd.sent, 1)
}

func TestLiveNoSubscribers(t *testing.T) {
	snd := &fakeSender{}
	r := testRunner(&fakeSource{post: testPost()}, snd)
	r.Options.Live = true

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoSubscribers)
	assert.Empty(t, snd.sent)
}

func TestLiveSendFailureIsNotRecorded(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{post: testPost(), members: []string{"a@x.test"}}
	snd := &fakeSender{err: mail.ErrSendFailed}
	r := testRunner(src, snd)
	r.Store = store
	r.Options.Live = true

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, mail.ErrSendFailed)
	assert.Empty(t, store.delivered)
}

func TestUTMTagging(t *testing.T) {
	snd := &fakeSender{}
	r := testRunner(&fakeSource{post: testPost()}, snd)
	r.Options.WebsiteDomain = "acme.test"

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, snd.sent[0].HTML, "https://acme.test/more?utm_source=acme.test&amp;utm_medium=email")
}

func TestIssueDatedByInterval(t *testing.T) {
	snd := &fakeSender{}
	r := testRunner(&fakeSource{post: testPost()}, snd)
	r.Options.Interval = newsletter.Monthly

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snd.sent, 1)
	assert.Contains(t, snd.sent[0].HTML, "August 2025")
	assert.Contains(t, snd.sent[0].HTML, "August 20, 2025")
}

func TestMissingFeatureImageUsesSiteLogo(t *testing.T) {
	snd := &fakeSender{}
	src := &fakeSource{post: testPost(), settings: map[string]any{"logo": "https://acme.test/logo.png"}}
	r := testRunner(src, snd)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, snd.sent[0].HTML, `src="https://acme.test/logo.png"`)
}

func TestPreheaderOrder(t *testing.T) {
	r := testRunner(&fakeSource{}, &fakeSender{})
	p := testPost()

	p.CustomExcerpt = "Custom"
	assert.Equal(t, "Custom", r.preheader(context.Background(), p))

	p.CustomExcerpt = ""
	r.Summarizer = fakeSummarizer{out: "Generated"}
	assert.Equal(t, "Generated", r.preheader(context.Background(), p))

	r.Summarizer = nil
	p.Excerpt = "Ghost excerpt"
	assert.Equal(t, "Ghost excerpt", r.preheader(context.Background(), p))
}
