package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/id88/everysync/internal/state"
	"github.com/id88/everysync/internal/ui"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent backup runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := state.DefaultPath()
		if err != nil {
			return err
		}
		store, err := state.Open(path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck // nothing useful to do with a close error at exit

		runs, err := store.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
			return nil
		}

		for _, r := range runs {
			status := "ok"
			if !r.OK {
				status = "failed"
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s  %-6s  pairs %d  copied %s  skipped %s  errors %d  %s  %s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				status,
				r.Pairs,
				ui.FormatCount(r.Success),
				ui.FormatCount(r.Skip),
				r.Errors,
				ui.FormatBytes(r.BytesCopied),
				ui.FormatDuration(r.FinishedAt.Sub(r.StartedAt)),
			)
		}
		return nil
	},
}
