package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/id88/everysync/internal/event"
	"github.com/id88/everysync/internal/scan"
	"github.com/id88/everysync/internal/stats"
)

// Scheduling defaults.
const (
	DefaultBatchSize      = 100
	DefaultSmallThreshold = 1 << 20 // 1 MiB
	maxDefaultWorkers     = 32
)

// DefaultWorkers returns the default worker pool size.
func DefaultWorkers() int {
	if n := 4 * runtime.NumCPU(); n < maxDefaultWorkers {
		return n
	}
	return maxDefaultWorkers
}

// SchedulerConfig controls classification, batching, and dispatch.
type SchedulerConfig struct {
	Workers        int   // pool size, <=0 means DefaultWorkers()
	BatchSize      int   // small files per batch, <=0 means DefaultBatchSize
	SmallThreshold int64 // files below this many bytes are batched
	MaxPathLength  int
	Overwrite      bool
	DryRun         bool
	Limiter        *rate.Limiter // nil means unthrottled
	Stats          *stats.Collector
	Events         chan<- event.Event
	OnProgress     func(processed, total int64)
	OnSuccess      func(Task) // invoked after each verified copy
}

// Scheduler turns enumerated records into copy work and runs it on a
// bounded worker pool.
type Scheduler struct {
	cfg      SchedulerConfig
	copyOpts copyOptions
}

// NewScheduler applies defaults and returns a ready scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.SmallThreshold <= 0 {
		cfg.SmallThreshold = DefaultSmallThreshold
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	return &Scheduler{
		cfg: cfg,
		copyOpts: copyOptions{
			MaxPathLength: cfg.MaxPathLength,
			Overwrite:     cfg.Overwrite,
			Limiter:       cfg.Limiter,
		},
	}
}

// unit is the dispatch granule: one large file, or one batch of small
// files executed sequentially.
type unit []Task

// Run materializes destination directories, classifies file records
// into units, and executes every unit on the worker pool. It blocks
// until all submitted units have completed and returns the merged
// outcome; Success+Skip+Error equals the number of file records.
//
// Cancellation stops submission of further units. Units already picked
// up run to completion, so every dispatched task is counted exactly
// once even in an interrupted run.
func (s *Scheduler) Run(ctx context.Context, records []scan.FileRecord, destFor func(string) (string, error)) Outcome {
	var dirs, files []scan.FileRecord
	for _, rec := range records {
		if rec.IsDir {
			dirs = append(dirs, rec)
		} else {
			files = append(files, rec)
		}
	}

	s.prepareDirs(ctx, dirs, destFor)

	total := int64(len(files))
	var processed atomic.Int64
	var success, skip, failed atomic.Uint64

	tick := func(n int64) {
		p := processed.Add(n)
		if s.cfg.OnProgress != nil {
			s.cfg.OnProgress(p, total)
		}
		event.Emit(s.cfg.Events, event.Event{Type: event.Progress, Processed: p, Total: total})
	}

	units := s.buildUnits(files, destFor, &failed, tick)

	ch := make(chan unit)
	var wg sync.WaitGroup
	for range s.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range ch {
				out := s.runUnit(ctx, u)
				success.Add(out.Success)
				skip.Add(out.Skip)
				failed.Add(out.Error)
				tick(int64(len(u)))
			}
		}()
	}

feed:
	for _, u := range units {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case ch <- u:
		}
	}
	close(ch)
	wg.Wait()

	return Outcome{Success: success.Load(), Skip: skip.Load(), Error: failed.Load()}
}

// prepareDirs creates destination directories before any file work so
// empty directories survive the sync and parents exist for the
// workers. Only directories that did not exist yet are counted.
func (s *Scheduler) prepareDirs(ctx context.Context, dirs []scan.FileRecord, destFor func(string) (string, error)) {
	for _, rec := range dirs {
		if ctx.Err() != nil {
			return
		}
		dest, err := destFor(rec.Path)
		if err != nil {
			slog.Warn("cannot map directory, skipping", "path", rec.Path, "error", err)
			continue
		}
		if _, err := os.Lstat(dest); err == nil {
			continue
		}
		if !s.cfg.DryRun {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				slog.Warn("cannot create directory", "path", dest, "error", err)
				continue
			}
		}
		s.cfg.Stats.AddDirsCreated(1)
		event.Emit(s.cfg.Events, event.Event{Type: event.DirCreated, Path: rec.Path, Dest: dest})
	}
}

// buildUnits maps file records to tasks and groups them: small files
// into batches of BatchSize, each large file alone. Records whose
// destination cannot be derived are counted as failures immediately so
// the outcome still accounts for every file record.
func (s *Scheduler) buildUnits(files []scan.FileRecord, destFor func(string) (string, error), failed *atomic.Uint64, tick func(int64)) []unit {
	var units []unit
	batch := make(unit, 0, s.cfg.BatchSize)
	for _, rec := range files {
		dest, err := destFor(rec.Path)
		if err != nil {
			slog.Warn("cannot map file, skipping", "path", rec.Path, "error", err)
			s.cfg.Stats.AddFilesFailed(1)
			event.Emit(s.cfg.Events, event.Event{Type: event.FileFailed, Path: rec.Path, Error: err})
			failed.Add(1)
			tick(1)
			continue
		}
		if rec.Size < s.cfg.SmallThreshold {
			batch = append(batch, Task{Record: rec, Dest: dest, Class: Small})
			if len(batch) == s.cfg.BatchSize {
				units = append(units, batch)
				batch = make(unit, 0, s.cfg.BatchSize)
			}
			continue
		}
		units = append(units, unit{{Record: rec, Dest: dest, Class: Large}})
	}
	if len(batch) > 0 {
		units = append(units, batch)
	}
	return units
}

func (s *Scheduler) runUnit(ctx context.Context, u unit) Outcome {
	var out Outcome
	for _, t := range u {
		out = out.Add(s.runTask(ctx, t))
	}
	return out
}

// runTask performs the update decision and, when needed, the verified
// copy for one file. Failures are contained here per task, a panic
// included, so one poisoned file never aborts the rest of its batch.
func (s *Scheduler) runTask(ctx context.Context, t Task) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("unexpected failure processing file", "path", t.Record.Path, "panic", r)
			s.cfg.Stats.AddFilesFailed(1)
			event.Emit(s.cfg.Events, event.Event{Type: event.FileFailed, Path: t.Record.Path, Dest: t.Dest})
			out = Outcome{Error: 1}
		}
	}()

	if !needsUpdate(t.Record, t.Dest) {
		s.cfg.Stats.AddFilesSkipped(1)
		event.Emit(s.cfg.Events, event.Event{Type: event.FileSkipped, Path: t.Record.Path, Dest: t.Dest, Size: t.Record.Size})
		return Outcome{Skip: 1}
	}

	if s.cfg.DryRun {
		s.cfg.Stats.AddFilesCopied(1)
		s.cfg.Stats.AddBytesCopied(t.Record.Size)
		event.Emit(s.cfg.Events, event.Event{Type: event.FileCopied, Path: t.Record.Path, Dest: t.Dest, Size: t.Record.Size})
		return Outcome{Success: 1}
	}

	written, err := copyAndVerify(ctx, t, s.copyOpts)
	if errors.Is(err, ErrPathTooLong) {
		// Over-cap paths are a portability skip, not a failure.
		slog.Warn("path exceeds length cap, skipping", "path", t.Record.Path, "dest", t.Dest)
		s.cfg.Stats.AddFilesSkipped(1)
		event.Emit(s.cfg.Events, event.Event{Type: event.FileSkipped, Path: t.Record.Path, Dest: t.Dest, Size: t.Record.Size})
		return Outcome{Skip: 1}
	}
	if err != nil {
		slog.Warn("copy failed", "path", t.Record.Path, "dest", t.Dest, "error", err)
		s.cfg.Stats.AddFilesFailed(1)
		event.Emit(s.cfg.Events, event.Event{Type: event.FileFailed, Path: t.Record.Path, Dest: t.Dest, Error: err})
		return Outcome{Error: 1}
	}

	s.cfg.Stats.AddFilesCopied(1)
	s.cfg.Stats.AddBytesCopied(written)
	event.Emit(s.cfg.Events, event.Event{Type: event.FileCopied, Path: t.Record.Path, Dest: t.Dest, Size: written})
	if s.cfg.OnSuccess != nil {
		s.cfg.OnSuccess(t)
	}
	return Outcome{Success: 1}
}
