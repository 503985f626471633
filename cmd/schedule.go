package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghost-newsletter/internal/dispatch"
	"ghost-newsletter/worker"

	"github.com/spf13/cobra"
)

var scheduleCron string

// errLiveScheduleNeedsStore stops a live schedule that could not remember
// which posts it already sent.
var errLiveScheduleNeedsStore = errors.New("schedule.send needs redis.addr: without a delivery record every tick resends the latest post")

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the newsletter on a cron schedule until interrupted",
	Long: "Runs send on schedule.cron. Each run is a dry run unless schedule.send is true. " +
		"Live schedules need redis.addr; posts recorded there as delivered are skipped, so a schedule " +
		"faster than the publishing pace is safe.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		expr := cfg.Schedule.Cron
		if scheduleCron != "" {
			expr = scheduleCron
		}
		sched, err := worker.ParseSchedule(expr)
		if err != nil {
			return err
		}

		runner, closeFn, err := newRunner(cfg, cfg.Schedule.Send, false)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := checkScheduleStore(runner); err != nil {
			return err
		}

		ws := []worker.Worker{&worker.Scheduler{
			Name:     "newsletter",
			Schedule: sched,
			Job:      newsletterJob(runner.Run),
		}}
		if runner.Store != nil {
			ttl := runner.Options.SettingsTTL
			ws = append(ws, &worker.SettingsRefresher{
				Source:         runner.Source,
				Cache:          runner.Store,
				NewsletterSlug: cfg.Ghost.Newsletter,
				TTL:            ttl,
			})
		}

		slog.Info("schedule: starting", "cron", expr, "live", cfg.Schedule.Send)
		mgr := worker.NewManager(ws...)
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			slog.Info("received signal, shutting down", "signal", s.String())
			cancel()
		}()

		return mgr.Start(ctx)
	},
}

func checkScheduleStore(r *dispatch.Runner) error {
	if r.Options.Live && r.Store == nil {
		return errLiveScheduleNeedsStore
	}
	return nil
}

// newsletterJob adapts a run to the scheduler. A post that already went out
// is logged as a skip rather than a failure.
func newsletterJob(run func(context.Context) (dispatch.Result, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()
		res, err := run(ctx)
		if errors.Is(err, dispatch.ErrAlreadyDelivered) {
			slog.Info("schedule: latest post already delivered, skipping", "post", res.PostTitle)
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("schedule: newsletter sent", "post", res.PostTitle, "recipients", res.Recipients, "live", res.Live)
		return nil
	}
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression overriding schedule.cron")
	rootCmd.AddCommand(scheduleCmd)
}
