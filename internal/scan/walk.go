package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Walker enumerates by traversing the tree directly. It is always
// available and serves as the failover target for the indexed source.
type Walker struct {
	// OnError is called for entries that could not be read; the entry
	// is skipped and the walk continues. Nil logs a warning instead.
	OnError func(path string, err error)
	// OnFiltered is called for entries dropped by the filters.
	OnFiltered func(path string)
}

func (w *Walker) Name() string { return "walk" }

func (w *Walker) Available() bool { return true }

// Enumerate walks root depth-first with an explicit directory stack.
// Directories pruned by the filters are never descended into. The root
// itself is not emitted.
func (w *Walker) Enumerate(ctx context.Context, root string, f Filters) ([]FileRecord, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", root)
	}

	var records []FileRecord
	stack := []string{root}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			w.fail(dir, err)
			continue
		}

		for _, entry := range entries {
			p := filepath.Join(dir, entry.Name())

			if entry.IsDir() {
				if f.pruneDir(p) {
					w.filtered(p)
					continue
				}
				info, err := entry.Info()
				if err != nil {
					w.fail(p, err)
					continue
				}
				stack = append(stack, p)
				if f.wantDir(info.ModTime()) {
					records = append(records, FileRecord{
						Path:    p,
						ModTime: info.ModTime(),
						IsDir:   true,
					})
				}
				continue
			}

			if !entry.Type().IsRegular() {
				slog.Debug("skipping irregular entry", "path", p, "type", entry.Type().String())
				continue
			}

			info, err := entry.Info()
			if err != nil {
				w.fail(p, err)
				continue
			}
			if !f.wantFile(p, info.Size(), info.ModTime()) {
				w.filtered(p)
				continue
			}
			records = append(records, FileRecord{
				Path:    p,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}

	return records, nil
}

func (w *Walker) fail(path string, err error) {
	if w.OnError != nil {
		w.OnError(path, err)
		return
	}
	slog.Warn("cannot read entry, skipping", "path", path, "error", err)
}

func (w *Walker) filtered(path string) {
	if w.OnFiltered != nil {
		w.OnFiltered(path)
	}
}
