// Package scan enumerates filesystem entries under a source root. Two
// strategies exist: a direct tree walk and a persisted-snapshot index,
// with transparent failover from the index to the walk.
package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/id88/everysync/internal/exclude"
)

// FileRecord identifies one filesystem entry under a scan root.
type FileRecord struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Filters restricts which entries an enumeration yields.
type Filters struct {
	MaxPathLength int       // drop entries with longer full paths; 0 = no cap
	MaxFileSize   int64     // bytes, files only; 0 = unlimited
	ModifiedAfter time.Time // keep entries modified at or after; zero = all
	Exclude       *exclude.Matcher
}

// Source produces the records for one scan root. Enumeration is finite
// and materialized; callers need the full set for classification and
// progress totals.
type Source interface {
	Name() string
	Available() bool
	Enumerate(ctx context.Context, root string, f Filters) ([]FileRecord, error)
}

// wantFile reports whether a regular file passes the filters.
func (f Filters) wantFile(path string, size int64, mtime time.Time) bool {
	if f.MaxPathLength > 0 && len(path) > f.MaxPathLength {
		return false
	}
	if f.Exclude != nil && f.Exclude.Excluded(path) {
		return false
	}
	if f.MaxFileSize > 0 && size > f.MaxFileSize {
		return false
	}
	if !f.ModifiedAfter.IsZero() && mtime.Before(f.ModifiedAfter) {
		return false
	}
	return true
}

// pruneDir reports whether a directory's subtree is skipped entirely.
func (f Filters) pruneDir(path string) bool {
	if f.MaxPathLength > 0 && len(path) > f.MaxPathLength {
		slog.Warn("directory path exceeds length cap, pruning subtree",
			"path", path, "length", len(path), "cap", f.MaxPathLength)
		return true
	}
	if f.Exclude != nil && f.Exclude.Excluded(path) {
		return true
	}
	return false
}

// wantDir reports whether a surviving directory is emitted as a record.
// Traversal into the directory continues either way.
func (f Filters) wantDir(mtime time.Time) bool {
	return f.ModifiedAfter.IsZero() || !mtime.Before(f.ModifiedAfter)
}

// Failover tries the primary source and transparently re-enumerates
// with the fallback when the primary is unavailable or fails.
type Failover struct {
	Primary  Source
	Fallback Source
}

func (s *Failover) Name() string { return s.Primary.Name() }

func (s *Failover) Available() bool {
	return s.Primary.Available() || s.Fallback.Available()
}

func (s *Failover) Enumerate(ctx context.Context, root string, f Filters) ([]FileRecord, error) {
	if s.Primary.Available() {
		records, err := s.Primary.Enumerate(ctx, root, f)
		if err == nil {
			return records, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("enumeration failed, falling back",
			"source", s.Primary.Name(), "fallback", s.Fallback.Name(),
			"root", root, "error", err)
	}
	return s.Fallback.Enumerate(ctx, root, f)
}
