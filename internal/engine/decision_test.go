package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsUpdateMissingDest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	writeFile(t, src, "content")

	assert.True(t, needsUpdate(recordFor(t, src), filepath.Join(dir, "absent.txt")))
}

func TestNeedsUpdateSizeDiffers(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "longer content")
	writeFile(t, dst, "short")

	assert.True(t, needsUpdate(recordFor(t, src), dst))
}

func TestNeedsUpdateSourceNewer(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "same bytes")
	writeFile(t, dst, "same bytes")

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(dst, old, old))

	assert.True(t, needsUpdate(recordFor(t, src), dst))
}

func TestNeedsUpdateNeverDowngrades(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "same bytes")
	writeFile(t, dst, "same bytes")

	// Destination strictly newer than its source: not an update.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, old, old))

	assert.False(t, needsUpdate(recordFor(t, src), dst))
}

func TestNeedsUpdateIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "same bytes")
	writeFile(t, dst, "same bytes")

	now := time.Now()
	require.NoError(t, os.Chtimes(src, now, now))
	require.NoError(t, os.Chtimes(dst, now, now))

	assert.False(t, needsUpdate(recordFor(t, src), dst))
}

func TestNeedsUpdateSubSecondDriftIgnored(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "same bytes")
	writeFile(t, dst, "same bytes")

	// Same second, source a few hundred milliseconds ahead. A
	// destination filesystem with coarse timestamps must not trigger
	// an endless re-copy.
	base := time.Date(2026, 3, 14, 10, 30, 45, 0, time.Local)
	require.NoError(t, os.Chtimes(src, base.Add(400*time.Millisecond), base.Add(400*time.Millisecond)))
	require.NoError(t, os.Chtimes(dst, base, base))

	assert.False(t, needsUpdate(recordFor(t, src), dst))
}

func TestNeedsUpdateContentDiffers(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "same length A")
	writeFile(t, dst, "same length B")

	// Equalize times so only the content sum can tell them apart.
	now := time.Now()
	require.NoError(t, os.Chtimes(src, now, now))
	require.NoError(t, os.Chtimes(dst, now, now))

	assert.True(t, needsUpdate(recordFor(t, src), dst))
}

func TestNeedsUpdateUnreadableSource(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "same bytes")
	writeFile(t, dst, "same bytes")

	now := time.Now()
	require.NoError(t, os.Chtimes(src, now, now))
	require.NoError(t, os.Chtimes(dst, now, now))

	rec := recordFor(t, src)
	require.NoError(t, os.Chmod(src, 0o000))
	t.Cleanup(func() { _ = os.Chmod(src, 0o644) })

	// Indeterminate decision resolves to "copy needed".
	assert.True(t, needsUpdate(rec, dst))
}
