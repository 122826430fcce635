package preflight

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailable(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Available(dir))
	assert.False(t, Available(filepath.Join(dir, "absent")))

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.False(t, Available(file))
}

func TestWritable(t *testing.T) {
	assert.NoError(t, Writable(t.TempDir()))
}

func TestWritableReadOnly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mode bits do not restrict writes on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	assert.Error(t, Writable(dir))
}

func TestWaitForImmediate(t *testing.T) {
	dir := t.TempDir()
	rounds := 0
	err := WaitFor(context.Background(), []string{dir}, time.Second, time.Millisecond,
		func([]string) { rounds++ })
	require.NoError(t, err)
	assert.Equal(t, 0, rounds)
}

func TestWaitForAppearsLater(t *testing.T) {
	dir := t.TempDir()
	late := filepath.Join(dir, "late")

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(50 * time.Millisecond)
		os.Mkdir(late, 0o755)
	}()

	err := WaitFor(context.Background(), []string{dir, late}, 5*time.Second, 10*time.Millisecond, nil)
	<-done
	assert.NoError(t, err)
}

func TestWaitForTimesOut(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "never")

	var lastMissing []string
	start := time.Now()
	err := WaitFor(context.Background(), []string{missing}, 100*time.Millisecond, 20*time.Millisecond,
		func(m []string) { lastMissing = m })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never")
	assert.Equal(t, []string{missing}, lastMissing)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWaitForCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	missing := filepath.Join(t.TempDir(), "never")
	err := WaitFor(ctx, []string{missing}, time.Minute, 10*time.Millisecond, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFreeSpace(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("free space query is unix-only")
	}
	n, err := FreeSpace(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, n, uint64(0))
}
