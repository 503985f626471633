package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd lists recent live deliveries recorded in Redis.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently delivered newsletters",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		defer closeFn()
		if store == nil {
			return errors.New("redis is not configured: set redis.addr")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		list, err := store.RecentDeliveries(ctx, historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No deliveries recorded.")
			return nil
		}
		for _, d := range list {
			fmt.Fprintf(out, "%s  %-6d %s  (post %s, run %s)\n", d.SentAt.Local().Format("2006-01-02 15:04"), d.Recipients, d.Subject, d.PostID, d.RunID)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of deliveries to show")
	redisCmd.AddCommand(historyCmd)
}
