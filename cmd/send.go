package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	sendLive         bool
	sendForce        bool
	sendDaysBack     int
	sendFeaturedOnly bool
	sendFilterTags   []string
	sendTemplate     string
	sendInterval     string
	sendAutoInterval bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Render the latest post and email it (dry run unless --send)",
	Long: "Without --send the newsletter is rendered, saved to newsletter.preview_path and sent " +
		"once to ghost.test_email (or mail.from_email). With --send it goes to every subscribed member.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cmd.Flags().Changed("days-back") {
			cfg.Newsletter.DaysBack = sendDaysBack
		}
		if cmd.Flags().Changed("featured-only") {
			cfg.Newsletter.FeaturedOnly = sendFeaturedOnly
		}
		if cmd.Flags().Changed("filter-tags") {
			cfg.Newsletter.FilterTags = sendFilterTags
		}
		if cmd.Flags().Changed("interval") {
			cfg.Newsletter.Interval = sendInterval
		}
		if cmd.Flags().Changed("auto-interval") {
			cfg.Newsletter.AutoInterval = sendAutoInterval
		}
		if sendTemplate != "" {
			cfg.Newsletter.TemplatePath = sendTemplate
		}

		runner, closeFn, err := newRunner(cfg, sendLive, sendForce)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
		defer cancel()

		res, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		mode := "dry run"
		if res.Live {
			mode = "live"
		}
		fmt.Fprintf(out, "Newsletter sent (%s)\n", mode)
		fmt.Fprintf(out, "  Post:       %s\n", res.PostTitle)
		fmt.Fprintf(out, "  Subject:    %s\n", res.Subject)
		fmt.Fprintf(out, "  Recipients: %d\n", res.Recipients)
		if res.PreviewPath != "" {
			fmt.Fprintf(out, "  Preview:    %s\n", res.PreviewPath)
		}
		fmt.Fprintf(out, "  Run:        %s\n", res.RunID)
		return nil
	},
}

func init() {
	sendCmd.Flags().BoolVar(&sendLive, "send", false, "send to all subscribers (default is a dry run)")
	sendCmd.Flags().BoolVar(&sendForce, "force", false, "send even if this post was already delivered")
	sendCmd.Flags().IntVar(&sendDaysBack, "days-back", 30, "only consider posts from the last N days")
	sendCmd.Flags().BoolVar(&sendFeaturedOnly, "featured-only", false, "only consider featured posts")
	sendCmd.Flags().StringSliceVar(&sendFilterTags, "filter-tags", nil, "only consider posts with one of these tags")
	sendCmd.Flags().StringVar(&sendInterval, "interval", "weekly", "newsletter interval used to date the issue: daily, weekly or monthly")
	sendCmd.Flags().BoolVar(&sendAutoInterval, "auto-interval", false, "pick --days-back from how often the site publishes")
	sendCmd.Flags().StringVar(&sendTemplate, "template", "", "email template file (default: embedded template)")
	rootCmd.AddCommand(sendCmd)
}

func joinOrNone(ss []string) string {
	if len(ss) == 0 {
		return "(none)"
	}
	return strings.Join(ss, ", ")
}
