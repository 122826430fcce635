package engine

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/id88/everysync/internal/event"
)

// reservoir keeps a uniform random sample of up to k tasks from a
// stream of unknown length. Offer is safe for concurrent use; workers
// feed it as copies complete.
type reservoir struct {
	mu    sync.Mutex
	k     int
	seen  int
	tasks []Task
}

func newReservoir(k int) *reservoir {
	return &reservoir{k: k, tasks: make([]Task, 0, k)}
}

func (r *reservoir) Offer(t Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen++
	if len(r.tasks) < r.k {
		r.tasks = append(r.tasks, t)
		return
	}
	if i := rand.IntN(r.seen); i < r.k {
		r.tasks[i] = t
	}
}

func (r *reservoir) Sample() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Task(nil), r.tasks...)
}

// verifySample re-hashes a sample of copied files end to end and
// reports any divergence. Mismatches land in stats and the log, not in
// the pair outcome; a source modified after its copy shows up here.
func (e *Engine) verifySample(tasks []Task) {
	for _, t := range tasks {
		e.cfg.Stats.AddVerifySampled(1)
		event.Emit(e.cfg.Events, event.Event{Type: event.VerifySampled, Path: t.Record.Path, Dest: t.Dest})

		srcSum, err := HashFile(t.Record.Path)
		if err != nil {
			slog.Warn("sample verification cannot hash source", "path", t.Record.Path, "error", err)
			continue
		}
		dstSum, err := HashFile(t.Dest)
		if err != nil {
			slog.Warn("sample verification cannot hash destination", "path", t.Dest, "error", err)
			continue
		}
		if srcSum != dstSum {
			e.cfg.Stats.AddVerifyMismatches(1)
			slog.Error("sample verification mismatch", "path", t.Record.Path, "dest", t.Dest)
			event.Emit(e.cfg.Events, event.Event{Type: event.VerifyMismatch, Path: t.Record.Path, Dest: t.Dest})
		}
	}
}
