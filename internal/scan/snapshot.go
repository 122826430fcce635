package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/id88/everysync/internal/state"
)

// Enumeration failures specific to the snapshot source. Distinct from
// an empty result: the failover wrapper re-walks on these.
var (
	ErrNoSnapshot    = errors.New("no snapshot for root")
	ErrStaleSnapshot = errors.New("snapshot is stale")
)

// Snapshot serves records from a persisted filesystem snapshot instead
// of walking the tree. Snapshots are built by BuildSnapshot (the
// `everysync index` command) and age out after MaxAge.
type Snapshot struct {
	Store  *state.Store
	MaxAge time.Duration
	// OnFiltered is called for entries dropped by the filters.
	OnFiltered func(path string)
}

func (s *Snapshot) Name() string { return "index" }

func (s *Snapshot) Available() bool { return s.Store != nil }

// Enumerate loads the stored snapshot for root and applies the filters
// in memory, honoring the same subtree-pruning semantics as the walker.
func (s *Snapshot) Enumerate(ctx context.Context, root string, f Filters) ([]FileRecord, error) {
	info, err := s.Store.Snapshot(ctx, root)
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, root)
	}
	if err != nil {
		return nil, err
	}
	if s.MaxAge > 0 && time.Since(info.BuiltAt) > s.MaxAge {
		return nil, fmt.Errorf("%w: %s built %s ago", ErrStaleSnapshot, root,
			time.Since(info.BuiltAt).Round(time.Minute))
	}

	entries, err := s.Store.LoadSnapshot(ctx, root)
	if err != nil {
		return nil, err
	}

	sep := string(os.PathSeparator)
	var records []FileRecord
	var pruned []string // dir prefixes cut from the result, separator-terminated

entries:
	for _, e := range entries {
		for _, prefix := range pruned {
			if strings.HasPrefix(e.Path, prefix) {
				s.filtered(e.Path)
				continue entries
			}
		}

		mtime := time.Unix(0, e.MtimeNS)
		if e.IsDir {
			if f.pruneDir(e.Path) {
				pruned = append(pruned, e.Path+sep)
				s.filtered(e.Path)
				continue
			}
			if f.wantDir(mtime) {
				records = append(records, FileRecord{Path: e.Path, ModTime: mtime, IsDir: true})
			}
			continue
		}

		if !f.wantFile(e.Path, e.Size, mtime) {
			s.filtered(e.Path)
			continue
		}
		records = append(records, FileRecord{Path: e.Path, Size: e.Size, ModTime: mtime})
	}

	return records, nil
}

func (s *Snapshot) filtered(path string) {
	if s.OnFiltered != nil {
		s.OnFiltered(path)
	}
}

// BuildSnapshot walks root without filters and replaces its stored
// snapshot. Returns the number of entries captured.
func BuildSnapshot(ctx context.Context, store *state.Store, root string) (int, error) {
	w := &Walker{}
	records, err := w.Enumerate(ctx, root, Filters{})
	if err != nil {
		return 0, err
	}

	entries := make([]state.Entry, len(records))
	for i, r := range records {
		entries[i] = state.Entry{
			Path:    r.Path,
			Size:    r.Size,
			MtimeNS: r.ModTime.UnixNano(),
			IsDir:   r.IsDir,
		}
	}
	if err := store.SaveSnapshot(ctx, root, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
