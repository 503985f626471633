package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseSchedule parses a five field cron expression (minute hour dom month dow).
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return s, nil
}

// Scheduler runs Job at every activation of Schedule. A failed run is logged
// and the next activation still happens.
type Scheduler struct {
	Name     string
	Schedule cron.Schedule
	Job      func(ctx context.Context) error
	Now      func() time.Time
}

func (s *Scheduler) Start(ctx context.Context) error {
	now := s.now()
	for {
		next := s.Schedule.Next(now)
		if next.IsZero() {
			return fmt.Errorf("%s: schedule never fires", s.Name)
		}
		slog.Info("scheduler: next run", "job", s.Name, "at", next.Format(time.RFC3339))
		t := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		s.runOnce(ctx)
		now = s.now()
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	if err := s.Job(ctx); err != nil {
		slog.Error("scheduler: run failed", "job", s.Name, "err", err)
		return
	}
	slog.Info("scheduler: run complete", "job", s.Name, "took", time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
