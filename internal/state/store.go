package state

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no snapshot exists for a root.
var ErrNotFound = errors.New("state: not found")

// Entry is one filesystem entry in a persisted snapshot.
type Entry struct {
	Path    string
	Size    int64
	MtimeNS int64
	IsDir   bool
}

// SnapshotInfo describes a stored snapshot of one scan root.
type SnapshotInfo struct {
	Root    string
	BuiltAt time.Time
	Entries int64
}

// Run is one recorded backup run.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	OK          bool
	Pairs       int64
	Success     int64
	Skip        int64
	Errors      int64
	BytesCopied int64
	DirsCreated int64
}

// Store is the SQLite-backed persistent state: filesystem snapshots
// serving the indexed enumerator, plus run history.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the per-user state database location:
// $XDG_STATE_HOME/everysync/state.db, or ~/.local/state/everysync/state.db.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "everysync", "state.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate state dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", "everysync", "state.db"), nil
}

// Open opens (or creates) the state database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_meta (
			root_id  TEXT PRIMARY KEY,
			root     TEXT NOT NULL,
			built_at INTEGER NOT NULL,
			entries  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS snapshots (
			root_id  TEXT NOT NULL,
			path     TEXT NOT NULL,
			size     INTEGER NOT NULL,
			mtime_ns INTEGER NOT NULL,
			is_dir   INTEGER NOT NULL,
			PRIMARY KEY (root_id, path)
		);
		CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER NOT NULL,
			ok           INTEGER NOT NULL,
			pairs        INTEGER NOT NULL,
			success      INTEGER NOT NULL,
			skip         INTEGER NOT NULL,
			error_count  INTEGER NOT NULL,
			bytes_copied INTEGER NOT NULL,
			dirs_created INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RootID computes the stable identifier for a scan root.
func RootID(root string) string {
	h := blake3.New()
	h.Write([]byte(filepath.Clean(root)))
	digest := h.Sum(nil)
	return hex.EncodeToString(digest[:8])
}

// SaveSnapshot replaces the stored snapshot for root with entries in a
// single transaction.
func (s *Store) SaveSnapshot(ctx context.Context, root string, entries []Entry) error {
	id := RootID(root)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE root_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshots (root_id, path, size, mtime_ns, is_dir) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, id, e.Path, e.Size, e.MtimeNS, e.IsDir); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", e.Path, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshot_meta (root_id, root, built_at, entries) VALUES (?, ?, ?, ?)",
		id, filepath.Clean(root), time.Now().UnixNano(), len(entries))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Snapshot returns metadata for the stored snapshot of root, or
// ErrNotFound when none exists.
func (s *Store) Snapshot(ctx context.Context, root string) (SnapshotInfo, error) {
	var info SnapshotInfo
	var builtAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT root, built_at, entries FROM snapshot_meta WHERE root_id = ?",
		RootID(root)).Scan(&info.Root, &builtAt, &info.Entries)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotInfo{}, ErrNotFound
	}
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("read snapshot meta: %w", err)
	}
	info.BuiltAt = time.Unix(0, builtAt)
	return info, nil
}

// LoadSnapshot returns all entries of the stored snapshot for root,
// ordered by path, or ErrNotFound when none exists.
func (s *Store) LoadSnapshot(ctx context.Context, root string) ([]Entry, error) {
	if _, err := s.Snapshot(ctx, root); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT path, size, mtime_ns, is_dir FROM snapshots WHERE root_id = ? ORDER BY path",
		RootID(root))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Size, &e.MtimeNS, &e.IsDir); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordRun appends one run to the history.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, ok, pairs, success,
			skip, error_count, bytes_copied, dirs_created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(), r.OK,
		r.Pairs, r.Success, r.Skip, r.Errors, r.BytesCopied, r.DirsCreated)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, ok, pairs, success,
			skip, error_count, bytes_copied, dirs_created
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.OK, &r.Pairs,
			&r.Success, &r.Skip, &r.Errors, &r.BytesCopied, &r.DirsCreated); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.StartedAt = time.Unix(0, started)
		r.FinishedAt = time.Unix(0, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
