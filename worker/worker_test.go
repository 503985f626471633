package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("0 9 * * 1")
	require.NoError(t, err)
	// Wednesday 20 August 2025 -> Monday 25 August 2025 09:00
	base := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 8, 25, 9, 0, 0, 0, time.UTC), s.Next(base))

	_, err = ParseSchedule("@daily")
	assert.NoError(t, err)

	for _, bad := range []string{"", "* * *", "60 * * * *", "not a cron expression"} {
		_, err := ParseSchedule(bad)
		assert.Error(t, err, bad)
	}
}

// everyTick fires a fixed interval after the given time.
type everyTick time.Duration

func (e everyTick) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

func TestSchedulerRunsJobUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	s := &Scheduler{
		Name:     "test",
		Schedule: everyTick(5 * time.Millisecond),
		Job: func(context.Context) error {
			if runs.Add(1) == 3 {
				cancel()
			}
			return errors.New("failures do not stop the loop")
		},
	}
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

type fakeSettings struct {
	branding map[string]any
	err      error
}

func (f fakeSettings) Settings(context.Context) (map[string]any, error) { return f.branding, f.err }
func (f fakeSettings) Newsletter(context.Context, string) (map[string]any, error) {
	return map[string]any{"name": "Weekly"}, nil
}

type recordingCache struct {
	mu    sync.Mutex
	saved map[string]map[string]any
}

func (c *recordingCache) SaveSettings(_ context.Context, kind string, v map[string]any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved[kind] = v
	return nil
}

func TestSettingsRefresherRunOnce(t *testing.T) {
	cache := &recordingCache{saved: map[string]map[string]any{}}
	w := &SettingsRefresher{Source: fakeSettings{err: errors.New("down")}, Cache: cache}
	w.runOnce(context.Background())
	assert.NotContains(t, cache.saved, "branding")
	assert.Equal(t, "Weekly", cache.saved["newsletter"]["name"])

	w.Source = fakeSettings{branding: map[string]any{"title": "Acme"}}
	w.runOnce(context.Background())
	assert.Equal(t, "Acme", cache.saved["branding"]["title"])
}

func TestManagerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cache := &recordingCache{saved: map[string]map[string]any{}}
	m := NewManager(&SettingsRefresher{
		Source:   fakeSettings{branding: map[string]any{"title": "Acme"}},
		Cache:    cache,
		Interval: time.Hour,
	})
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}
