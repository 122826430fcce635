package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	one := filepath.Join(dir, "one.txt")
	two := filepath.Join(dir, "two.txt")
	three := filepath.Join(dir, "three.txt")
	writeFile(t, one, "identical bytes")
	writeFile(t, two, "identical bytes")
	writeFile(t, three, "different bytes")

	h1, err := HashFile(one)
	require.NoError(t, err)
	h2, err := HashFile(two)
	require.NoError(t, err)
	h3, err := HashFile(three)
	require.NoError(t, err)

	assert.Len(t, h1, 64) // 32-byte digest, hex encoded
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestContentSum(t *testing.T) {
	dir := t.TempDir()
	one := filepath.Join(dir, "one.txt")
	two := filepath.Join(dir, "two.txt")
	three := filepath.Join(dir, "three.txt")
	writeFile(t, one, "identical bytes")
	writeFile(t, two, "identical bytes")
	writeFile(t, three, "different bytes")

	s1, err := ContentSum(one)
	require.NoError(t, err)
	s2, err := ContentSum(two)
	require.NoError(t, err)
	s3, err := ContentSum(three)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.NotEqual(t, s1, s3)
}

func TestContentSumMissing(t *testing.T) {
	_, err := ContentSum(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
