package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/id88/everysync/internal/config"
	"github.com/id88/everysync/internal/engine"
	"github.com/id88/everysync/internal/event"
	"github.com/id88/everysync/internal/exclude"
	"github.com/id88/everysync/internal/logging"
	"github.com/id88/everysync/internal/preflight"
	"github.com/id88/everysync/internal/scan"
	"github.com/id88/everysync/internal/state"
	"github.com/id88/everysync/internal/stats"
	"github.com/id88/everysync/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: main CLI entry point orchestrates flag parsing and run assembly
func run() int {
	var (
		configPath  string
		workers     int
		dryRun      bool
		fullScan    bool
		noIndex     bool
		noProgress  bool
		verbose     bool
		quiet       bool
		bwLimitStr  string
		logDir      string
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "everysync",
		Short: "Incremental one-way backup of configured directory pairs",
		Long: `everysync copies new and changed files from each configured source
directory to its destination, verifying every copy and leaving
up-to-date files untouched. Pairs, exclusion rules and tuning live in
a JSON config file; run "everysync init" to create one.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "everysync %s\n", version)
				return nil
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			userDefaults, err := config.LoadUserDefaults()
			if err != nil {
				slog.Warn("failed to load user defaults", "error", err)
			}
			applyUserDefaults(cmd.Flags(), userDefaults.Defaults,
				&workers, &quiet, &logDir, &bwLimitStr)

			if logDir == "" {
				logDir = cfg.Logs.Dir
			}
			fileLevel, err := logging.ParseLevel(cfg.Logs.Level)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logPath, closeLog, err := logging.Setup(logDir, fileLevel, quiet, verbose)
			if err != nil {
				return fmt.Errorf("set up logging: %w", err)
			}
			defer closeLog() //nolint:errcheck // nothing useful to do with a close error at exit

			if dryRun {
				slog.Info("dry run mode")
			}

			var limiter *rate.Limiter
			if bwLimitStr != "" {
				n, sizeErr := engine.ParseSize(bwLimitStr)
				if sizeErr != nil {
					return fmt.Errorf("invalid --bwlimit: %w", sizeErr)
				}
				if n > 0 {
					limiter = engine.NewBWLimiter(n)
					slog.Debug("bandwidth limit enabled", "bytes_per_sec", n)
				}
			}

			if workers <= 0 {
				workers = cfg.Workers()
			}

			var pairs []engine.Pair
			for _, src := range cfg.SortedSources() {
				pairs = append(pairs, engine.Pair{Source: src, Dest: cfg.Sources[src]})
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			presenter := ui.NewPresenter(ui.Config{
				Writer:     os.Stdout,
				ErrWriter:  os.Stderr,
				Stats:      collector,
				IsTTY:      ui.IsTTY(os.Stderr.Fd()),
				Quiet:      quiet,
				Verbose:    verbose,
				NoProgress: noProgress,
			})
			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(events)
			}()
			shutdown := func() {
				stop()
				close(events)
				presenterWg.Wait()
			}

			if waitErr := waitForVolumes(ctx, cfg, pairs, events); waitErr != nil {
				slog.Error("volumes not ready, aborting", "error", waitErr)
				shutdown()
				return &exitError{code: 1}
			}
			logFreeSpace(pairs)

			matcher, err := exclude.New(cfg.ExcludePatterns...)
			if err != nil {
				shutdown()
				return fmt.Errorf("exclude patterns: %w", err)
			}
			if cfg.ExcludeFile != "" {
				if err := matcher.LoadFile(cfg.ExcludeFile); err != nil {
					shutdown()
					return fmt.Errorf("exclude rules: %w", err)
				}
			}

			store := openStateStore()
			if store != nil {
				defer store.Close() //nolint:errcheck // nothing useful to do with a close error at exit
			}

			walker := &scan.Walker{
				OnError: func(path string, err error) {
					collector.AddScanErrors(1)
					slog.Warn("cannot read entry, skipping", "path", path, "error", err)
				},
				OnFiltered: func(string) { collector.AddFilesFiltered(1) },
			}
			var enumerator scan.Source = walker
			if cfg.Index.Enabled && !noIndex && !fullScan && store != nil {
				enumerator = &scan.Failover{
					Primary: &scan.Snapshot{
						Store:      store,
						MaxAge:     time.Duration(cfg.Index.MaxAgeHours) * time.Hour,
						OnFiltered: func(string) { collector.AddFilesFiltered(1) },
					},
					Fallback: walker,
				}
			}

			filters := scan.Filters{
				MaxPathLength: cfg.MaxPathLength,
				MaxFileSize:   cfg.FileSizeLimitBytes(),
				ModifiedAfter: cfg.ModifiedAfter(time.Now()),
				Exclude:       matcher,
			}
			if fullScan {
				filters.ModifiedAfter = time.Time{}
			}

			slog.Debug("starting run",
				"pairs", len(pairs),
				"workers", workers,
				"enumerator", enumerator.Name(),
				"dry_run", dryRun,
			)

			eng := engine.New(engine.Config{
				Pairs:          pairs,
				Enumerator:     enumerator,
				Filters:        filters,
				Workers:        workers,
				BatchSize:      cfg.Parallel.BatchSize,
				SmallThreshold: cfg.SmallThresholdBytes(),
				MaxPathLength:  cfg.MaxPathLength,
				Overwrite:      cfg.Overwrite,
				DryRun:         dryRun,
				SampleSize:     cfg.VerificationSampleSize,
				Limiter:        limiter,
				Stats:          collector,
				Events:         events,
			})

			startedAt := time.Now()
			result := eng.Run(ctx)
			shutdown()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			if logPath != "" {
				slog.Info("run log written", "path", logPath)
			}
			if !quiet {
				if summary := presenter.Summary(); summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
			}

			recordRun(store, startedAt, result, collector.Snapshot())
			archiveLogs(logDir, cfg)

			if !result.OK {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the job config file")

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().
		IntVarP(&workers, "workers", "n", 0, "copy workers (0 = config value or min(NumCPU*4, 32))")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be copied without writing")
	rootCmd.Flags().
		BoolVar(&fullScan, "full", false, "ignore the incremental window and consider every file")
	rootCmd.Flags().BoolVar(&noIndex, "no-index", false, "skip the snapshot index and walk the tree")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress display")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "per-file output and debug logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().StringVar(&bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	rootCmd.Flags().
		StringVar(&logDir, "log-dir", "", "directory for JSON run logs (default from config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// waitForVolumes blocks until every source root and destination parent
// is reachable. External drives often mount a few seconds after login;
// the original motivation for this tool was nightly backups to exactly
// such drives.
func waitForVolumes(ctx context.Context, cfg config.Config, pairs []engine.Pair, events chan<- event.Event) error {
	seen := make(map[string]struct{}, len(pairs)*2)
	var roots []string
	for _, p := range pairs {
		for _, r := range []string{p.Source, filepath.Dir(p.Dest)} {
			if _, ok := seen[r]; !ok {
				seen[r] = struct{}{}
				roots = append(roots, r)
			}
		}
	}

	var lastMissing string
	onWait := func(missing []string) {
		key := strings.Join(missing, "\x00")
		if key == lastMissing {
			return
		}
		lastMissing = key
		slog.Info("waiting for volumes", "paths", missing)
		for _, p := range missing {
			event.Emit(events, event.Event{Type: event.VolumeWaiting, Path: p})
		}
	}

	timeout := time.Duration(cfg.VolumeWait.TimeoutSeconds) * time.Second
	poll := time.Duration(cfg.VolumeWait.PollSeconds) * time.Second
	return preflight.WaitFor(ctx, roots, timeout, poll, onWait)
}

// logFreeSpace reports remaining space on each destination volume.
// Best effort: unsupported platforms and unreachable paths only log at
// debug level.
func logFreeSpace(pairs []engine.Pair) {
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		parent := filepath.Dir(p.Dest)
		if _, ok := seen[parent]; ok {
			continue
		}
		seen[parent] = struct{}{}
		free, err := preflight.FreeSpace(parent)
		if err != nil {
			slog.Debug("free space unavailable", "path", parent, "error", err)
			continue
		}
		slog.Info("destination free space",
			"path", parent, "free", stats.FormatBytes(int64(free))) //nolint:gosec // G115: volumes beyond 8 EiB do not exist
	}
}

// openStateStore opens the per-user state database. State is optional:
// a failure here degrades to walk-only enumeration and no run history.
func openStateStore() *state.Store {
	path, err := state.DefaultPath()
	if err != nil {
		slog.Warn("state store unavailable", "error", err)
		return nil
	}
	store, err := state.Open(path)
	if err != nil {
		slog.Warn("state store unavailable", "path", path, "error", err)
		return nil
	}
	return store
}

func recordRun(store *state.Store, startedAt time.Time, result engine.Result, snap stats.Snapshot) {
	if store == nil {
		return
	}
	rec := state.Run{
		ID:          uuid.NewString(),
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		OK:          result.OK,
		Pairs:       int64(len(result.Pairs)),
		Success:     int64(result.Outcome.Success), //nolint:gosec // G115: file counts stay far below 2^63
		Skip:        int64(result.Outcome.Skip),    //nolint:gosec // G115
		Errors:      int64(result.Outcome.Error),   //nolint:gosec // G115
		BytesCopied: snap.BytesCopied,
		DirsCreated: snap.DirsCreated,
	}
	// The run context may already be cancelled; the history row should
	// still be written.
	if err := store.RecordRun(context.Background(), rec); err != nil {
		slog.Warn("failed to record run", "error", err)
	}
}

func archiveLogs(logDir string, cfg config.Config) {
	if logDir == "" || cfg.Logs.ArchiveAfterDays <= 0 {
		return
	}
	olderThan := time.Duration(cfg.Logs.ArchiveAfterDays) * 24 * time.Hour
	if err := logging.Archive(logDir, olderThan, cfg.Logs.ArchiveFormat); err != nil {
		slog.Warn("log archive failed", "dir", logDir, "error", err)
	}
}

// applyUserDefaults fills flags the user did not set on the command
// line from the optional per-user defaults file.
func applyUserDefaults(
	flags *pflag.FlagSet,
	defaults config.DefaultFlags,
	workers *int,
	quiet *bool,
	logDir *string,
	bwLimit *string,
) {
	if !flags.Changed("workers") && defaults.Workers != nil {
		*workers = *defaults.Workers
	}
	if !flags.Changed("quiet") && defaults.Quiet != nil {
		*quiet = *defaults.Quiet
	}
	if !flags.Changed("log-dir") && defaults.LogDir != nil {
		*logDir = *defaults.LogDir
	}
	if !flags.Changed("bwlimit") && defaults.BWLimit != nil {
		*bwLimit = *defaults.BWLimit
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
