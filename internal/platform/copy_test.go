package platform

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFileBasic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	data := []byte("hello, everysync!")
	require.NoError(t, os.WriteFile(src, data, 0644))

	result, err := CopyFile(CopyParams{
		SrcPath: src,
		DstPath: dst,
		Size:    int64(len(data)),
		Perm:    0644,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), result.BytesWritten)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCopyFileLarge(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	// 4 MiB, larger than the 1 MiB buffer.
	size := 4 * 1024 * 1024
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0644))

	result, err := CopyFile(CopyParams{
		SrcPath: src,
		DstPath: dst,
		Size:    int64(size),
		Perm:    0644,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(size), result.BytesWritten)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCopyFileTruncatesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))
	require.NoError(t, os.WriteFile(dst, []byte("old and much longer"), 0644))

	result, err := CopyFile(CopyParams{
		SrcPath: src,
		DstPath: dst,
		Size:    3,
		Perm:    0644,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.BytesWritten)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestCopyFileEmpty(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	require.NoError(t, os.WriteFile(src, nil, 0644))

	result, err := CopyFile(CopyParams{
		SrcPath: src,
		DstPath: dst,
		Size:    0,
		Perm:    0644,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.BytesWritten)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()

	_, err := CopyFile(CopyParams{
		SrcPath: filepath.Join(dir, "absent"),
		DstPath: filepath.Join(dir, "dst"),
		Perm:    0644,
	})
	assert.Error(t, err)
}

func TestCopyReadWriteFallback(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	data := []byte("read-write fallback test")
	require.NoError(t, os.WriteFile(src, data, 0644))

	params := CopyParams{SrcPath: src, DstPath: dst, Size: int64(len(data)), Perm: 0644}
	dstFd, err := openDst(params)
	require.NoError(t, err)
	defer dstFd.Close()

	result, err := copyReadWrite(dstFd, params)
	require.NoError(t, err)
	assert.Equal(t, ReadWrite, result.Method)
	assert.Equal(t, int64(len(data)), result.BytesWritten)

	dstFd.Close()
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCopyMethodString(t *testing.T) {
	assert.Equal(t, "read_write", ReadWrite.String())
	assert.Equal(t, "copy_file_range", CopyFileRange.String())
	assert.Equal(t, "sendfile", Sendfile.String())
	assert.Equal(t, "clonefile", Clonefile.String())
	assert.Equal(t, "unknown", CopyMethod(99).String())
}
