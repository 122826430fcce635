package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/id88/everysync/internal/config"
	"github.com/id88/everysync/internal/scan"
	"github.com/id88/everysync/internal/state"
	"github.com/id88/everysync/internal/ui"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the filesystem snapshots for all sources",
	Long: `index walks every configured source once and stores the result in the
state database. Later runs enumerate from the snapshot instead of
walking the tree, which is much faster on large or slow volumes. A
snapshot older than index.maxAgeHours is ignored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		configPath, _ := cmd.Flags().GetString("config") //nolint:errcheck // flag name is hardcoded
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		path, err := state.DefaultPath()
		if err != nil {
			return err
		}
		store, err := state.Open(path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck // nothing useful to do with a close error at exit

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		for _, src := range cfg.SortedSources() {
			g.Go(func() error {
				n, err := scan.BuildSnapshot(ctx, store, src)
				if err != nil {
					return fmt.Errorf("index %s: %w", src, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %s: %s entries\n",
					src, ui.FormatCount(int64(n)))
				return nil
			})
		}
		return g.Wait()
	},
}
