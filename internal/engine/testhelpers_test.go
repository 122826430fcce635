package engine

import (
	"context"
	"crypto/rand"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/id88/everysync/internal/event"
	"github.com/id88/everysync/internal/scan"
)

// writeFile creates path with content, creating parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// makeSyncTree builds a standard source tree and returns its root:
//
//	a.txt            (14 bytes)
//	big.bin          (2 MiB, random, classifies Large at defaults)
//	docs/b.txt       (5 bytes)
//	docs/deep/c.txt  (15 bytes)
//	empty/           (empty directory)
func makeSyncTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "a.txt"), "alpha contents")
	writeFile(t, filepath.Join(root, "docs", "b.txt"), "bravo")
	writeFile(t, filepath.Join(root, "docs", "deep", "c.txt"), "charlie charlie")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	big := make([]byte, 2<<20)
	_, err := rand.Read(big)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), big, 0o644))

	return root
}

const (
	treeFileCount = 4
	treeDirCount  = 3
)

// enumerate walks root with no filters and returns its records.
func enumerate(t *testing.T, root string) []scan.FileRecord {
	t.Helper()
	w := &scan.Walker{}
	records, err := w.Enumerate(context.Background(), root, scan.Filters{})
	require.NoError(t, err)
	return records
}

// recordFor stats path and returns the matching file record.
func recordFor(t *testing.T, path string) scan.FileRecord {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return scan.FileRecord{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
}

// drainEvents closes nothing; it empties ch and counts events by type.
func drainEvents(ch chan event.Event) map[event.Type]int {
	counts := make(map[event.Type]int)
	for {
		select {
		case ev := <-ch:
			counts[ev.Type]++
		default:
			return counts
		}
	}
}

func hashOf(t *testing.T, path string) string {
	t.Helper()
	sum, err := HashFile(path)
	require.NoError(t, err)
	return sum
}

// treeSums maps every regular file under root (root-relative, slashed)
// to its content hash.
func treeSums(t *testing.T, root string) map[string]string {
	t.Helper()
	sums := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		sums[filepath.ToSlash(rel)] = hashOf(t, p)
		return nil
	})
	require.NoError(t, err)
	return sums
}
