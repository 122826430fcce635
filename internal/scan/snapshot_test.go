package scan

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/id88/everysync/internal/exclude"
	"github.com/id88/everysync/internal/state"
)

func openTestStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBuildAndEnumerateSnapshot(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root)
	store := openTestStore(t)
	ctx := context.Background()

	n, err := BuildSnapshot(ctx, store, root)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	src := &Snapshot{Store: store, MaxAge: time.Hour}
	records, err := src.Enumerate(ctx, root, Filters{})
	require.NoError(t, err)

	// The snapshot yields the same set the walker does.
	w := &Walker{}
	walked, err := w.Enumerate(ctx, root, Filters{})
	require.NoError(t, err)

	got := byPath(t, root, records)
	want := byPath(t, root, walked)
	require.Len(t, got, len(want))
	for p, wr := range want {
		gr, ok := got[p]
		require.True(t, ok, "missing %s", p)
		assert.Equal(t, wr.Size, gr.Size, p)
		assert.Equal(t, wr.IsDir, gr.IsDir, p)
		assert.True(t, wr.ModTime.Equal(gr.ModTime), "mtime mismatch for %s", p)
	}
}

func TestSnapshotAppliesFilters(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root)
	store := openTestStore(t)
	ctx := context.Background()

	_, err := BuildSnapshot(ctx, store, root)
	require.NoError(t, err)

	m, err := exclude.New("*.bin")
	require.NoError(t, err)

	src := &Snapshot{Store: store}
	records, err := src.Enumerate(ctx, root, Filters{
		Exclude:       m,
		ModifiedAfter: time.Now().Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	got := byPath(t, root, records)
	_, ok := got["sub/deep/c.bin"]
	assert.False(t, ok)
	_, ok = got["old.txt"]
	assert.False(t, ok)
	_, ok = got["a.txt"]
	assert.True(t, ok)
}

func TestSnapshotPrunesSubtreeOfGlobExcludedDir(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root)
	store := openTestStore(t)
	ctx := context.Background()

	_, err := BuildSnapshot(ctx, store, root)
	require.NoError(t, err)

	// "dee*" matches the directory base name only; its descendants must
	// still disappear with it.
	m, err := exclude.New("dee*")
	require.NoError(t, err)

	var filtered []string
	src := &Snapshot{Store: store, OnFiltered: func(p string) { filtered = append(filtered, p) }}
	records, err := src.Enumerate(ctx, root, Filters{Exclude: m})
	require.NoError(t, err)

	got := byPath(t, root, records)
	_, ok := got["sub/deep"]
	assert.False(t, ok)
	_, ok = got["sub/deep/c.bin"]
	assert.False(t, ok)
	_, ok = got["sub"]
	assert.True(t, ok)
	assert.Len(t, filtered, 2)
}

func TestSnapshotMissing(t *testing.T) {
	store := openTestStore(t)

	src := &Snapshot{Store: store}
	_, err := src.Enumerate(context.Background(), "/nowhere", Filters{})
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotStale(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root)
	store := openTestStore(t)
	ctx := context.Background()

	_, err := BuildSnapshot(ctx, store, root)
	require.NoError(t, err)

	src := &Snapshot{Store: store, MaxAge: time.Nanosecond}
	time.Sleep(10 * time.Millisecond)
	_, err = src.Enumerate(ctx, root, Filters{})
	assert.ErrorIs(t, err, ErrStaleSnapshot)
}

func TestSnapshotRebuildRefreshes(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root)
	store := openTestStore(t)
	ctx := context.Background()

	_, err := BuildSnapshot(ctx, store, root)
	require.NoError(t, err)

	// New file appears after the first build.
	makeExtraFile(t, root)
	n, err := BuildSnapshot(ctx, store, root)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	src := &Snapshot{Store: store, MaxAge: time.Hour}
	records, err := src.Enumerate(ctx, root, Filters{})
	require.NoError(t, err)
	got := byPath(t, root, records)
	_, ok := got["extra.txt"]
	assert.True(t, ok)
}
