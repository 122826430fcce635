package exclude

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ignore.txt")
	content := `# comment line
*.tmp

  *.bak
drafts/
# another comment
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := New()
	require.NoError(t, err)
	n := m.Len()
	require.NoError(t, m.LoadFile(path))

	assert.Equal(t, n+3, m.Len())
	assert.True(t, m.Excluded("/data/a.tmp"))
	assert.True(t, m.Excluded("/data/a.bak"))
	assert.True(t, m.Excluded("/home/user/drafts/ch1.md"))
	assert.False(t, m.Excluded("/data/a.txt"))
}

func TestLoadFileMissingIsNotError(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	n := m.Len()

	require.NoError(t, m.LoadFile(filepath.Join(t.TempDir(), "absent.txt")))
	assert.Equal(t, n, m.Len())
}

func TestLoadFileBadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ignore.txt")
	require.NoError(t, os.WriteFile(path, []byte("*[\n"), 0o644))

	m, err := New()
	require.NoError(t, err)
	err = m.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "ignore.txt")
	require.NoError(t, WriteDefault(path))

	m, err := New()
	require.NoError(t, err)
	require.NoError(t, m.LoadFile(path))

	assert.True(t, m.Excluded("/data/x.tmp"))
	assert.True(t, m.Excluded("/data/x.log"))
	assert.True(t, m.Excluded(`C:\Users\a\AppData\Local\Temp\x`))
}

func TestWriteDefaultKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore.txt")
	require.NoError(t, os.WriteFile(path, []byte("*.custom\n"), 0o644))

	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "*.custom\n", string(data))
}
