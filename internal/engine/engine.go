// Package engine implements the synchronization core: the per-file
// update decision, the verified copy primitive, and the parallel
// scheduler that drives both across the enumerated file set.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/id88/everysync/internal/event"
	"github.com/id88/everysync/internal/preflight"
	"github.com/id88/everysync/internal/scan"
	"github.com/id88/everysync/internal/stats"
)

// Pair-level fatal conditions. A fatal skips the pair; the run
// continues with the remaining pairs.
var (
	ErrSourceUnavailable     = errors.New("source root unavailable")
	ErrDestinationUnwritable = errors.New("destination root not writable")
)

// Pair maps one source root to one destination root.
type Pair struct {
	Source string
	Dest   string
}

// Config assembles everything a run needs.
type Config struct {
	Pairs          []Pair
	Enumerator     scan.Source
	Filters        scan.Filters
	Workers        int
	BatchSize      int
	SmallThreshold int64
	MaxPathLength  int
	Overwrite      bool
	DryRun         bool
	SampleSize     int           // copied files to re-verify per pair
	Limiter        *rate.Limiter // nil means unthrottled
	Stats          *stats.Collector
	Events         chan<- event.Event
	OnProgress     func(processed, total int64)
}

// Engine executes one synchronization run across configured pairs.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	return &Engine{cfg: cfg}
}

// PairResult reports one source/destination pair.
type PairResult struct {
	Source  string
	Dest    string
	Outcome Outcome
	Err     error // pair-level fatal, nil when the pair ran
}

// Result aggregates a full run.
type Result struct {
	Pairs   []PairResult
	Outcome Outcome
	OK      bool
}

// Run processes every configured pair in order. Pair-level fatals
// (source unavailable, destination unwritable, enumeration failed on
// all strategies) skip that pair; the run is not OK only when every
// pair failed fatally or the run was cancelled. Per-file errors never
// flip OK, they are visible in the outcome counts.
func (e *Engine) Run(ctx context.Context) Result {
	res := Result{OK: true}
	fatals := 0
	for _, pair := range e.cfg.Pairs {
		pr := e.runPair(ctx, pair)
		res.Pairs = append(res.Pairs, pr)
		res.Outcome = res.Outcome.Add(pr.Outcome)
		if pr.Err != nil {
			fatals++
		}
		if ctx.Err() != nil {
			break
		}
	}
	if len(res.Pairs) > 0 && fatals == len(res.Pairs) {
		res.OK = false
	}
	if ctx.Err() != nil {
		res.OK = false
	}
	return res
}

func (e *Engine) runPair(ctx context.Context, pair Pair) PairResult {
	pr := PairResult{Source: pair.Source, Dest: pair.Dest}
	slog.Info("pair started", "source", pair.Source, "dest", pair.Dest, "dry_run", e.cfg.DryRun)
	event.Emit(e.cfg.Events, event.Event{Type: event.PairStarted, Path: pair.Source, Dest: pair.Dest})

	finish := func() PairResult {
		event.Emit(e.cfg.Events, event.Event{
			Type:  event.PairCompleted,
			Path:  pair.Source,
			Dest:  pair.Dest,
			Total: int64(pr.Outcome.Total()),
			Error: pr.Err,
		})
		return pr
	}

	if !preflight.Available(pair.Source) {
		pr.Err = fmt.Errorf("%w: %s", ErrSourceUnavailable, pair.Source)
		slog.Error("skipping pair", "source", pair.Source, "error", pr.Err)
		return finish()
	}

	if !e.cfg.DryRun {
		if err := os.MkdirAll(pair.Dest, 0o755); err != nil {
			pr.Err = fmt.Errorf("%w: %s: %v", ErrDestinationUnwritable, pair.Dest, err)
			slog.Error("skipping pair", "source", pair.Source, "error", pr.Err)
			return finish()
		}
		if err := preflight.Writable(pair.Dest); err != nil {
			pr.Err = fmt.Errorf("%w: %s: %v", ErrDestinationUnwritable, pair.Dest, err)
			slog.Error("skipping pair", "source", pair.Source, "error", pr.Err)
			return finish()
		}
	}

	event.Emit(e.cfg.Events, event.Event{Type: event.ScanStarted, Path: pair.Source})
	records, err := e.cfg.Enumerator.Enumerate(ctx, pair.Source, e.cfg.Filters)
	if err != nil {
		pr.Err = fmt.Errorf("enumerate %s: %w", pair.Source, err)
		slog.Error("enumeration failed", "source", pair.Source, "error", err)
		return finish()
	}

	var files, bytes int64
	for _, rec := range records {
		if !rec.IsDir {
			files++
			bytes += rec.Size
		}
	}
	e.cfg.Stats.AddFilesTotal(files)
	e.cfg.Stats.AddBytesTotal(bytes)
	slog.Info("scan completed", "source", pair.Source, "files", files, "bytes", bytes)
	event.Emit(e.cfg.Events, event.Event{
		Type:      event.ScanCompleted,
		Path:      pair.Source,
		Total:     files,
		TotalSize: bytes,
	})

	sched := SchedulerConfig{
		Workers:        e.cfg.Workers,
		BatchSize:      e.cfg.BatchSize,
		SmallThreshold: e.cfg.SmallThreshold,
		MaxPathLength:  e.cfg.MaxPathLength,
		Overwrite:      e.cfg.Overwrite,
		DryRun:         e.cfg.DryRun,
		Limiter:        e.cfg.Limiter,
		Stats:          e.cfg.Stats,
		Events:         e.cfg.Events,
		OnProgress:     e.cfg.OnProgress,
	}

	var sampler *reservoir
	if e.cfg.SampleSize > 0 && !e.cfg.DryRun {
		sampler = newReservoir(e.cfg.SampleSize)
		sched.OnSuccess = sampler.Offer
	}

	pr.Outcome = NewScheduler(sched).Run(ctx, records, destMapper(pair))

	if sampler != nil {
		e.verifySample(sampler.Sample())
	}

	slog.Info("pair completed",
		"source", pair.Source,
		"success", pr.Outcome.Success,
		"skip", pr.Outcome.Skip,
		"error", pr.Outcome.Error,
	)
	return finish()
}

// destMapper returns the source to destination path translation for
// one pair: the root-relative path re-joined under the destination
// root. Records resolving outside the source root are rejected rather
// than written to a surprising place.
func destMapper(pair Pair) func(string) (string, error) {
	src := filepath.Clean(pair.Source)
	dst := filepath.Clean(pair.Dest)
	return func(p string) (string, error) {
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return "", fmt.Errorf("relativize %s: %w", p, err)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return "", fmt.Errorf("%s escapes source root %s", p, src)
		}
		return filepath.Join(dst, rel), nil
	}
}
