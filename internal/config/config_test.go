package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/id88/everysync/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Sources = map[string]string{"/data/photos": "/backup/photos"}
	return cfg
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"sources": {"/data": "/backup"},
		"fileSizeLimitMB": 500,
		"parallel": {"enabled": true, "batchSize": 25, "smallFileSizeMB": 1, "maxWorkers": 0}
	}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"/data": "/backup"}, cfg.Sources)
	assert.Equal(t, int64(500), cfg.FileSizeLimitMB)
	assert.Equal(t, 25, cfg.Parallel.BatchSize)

	// Untouched fields keep their defaults.
	assert.Equal(t, "ignore.txt", cfg.ExcludeFile)
	assert.Equal(t, 240, cfg.MaxPathLength)
	assert.True(t, cfg.Overwrite)
	assert.Equal(t, 2, cfg.VerificationSampleSize)
	assert.Equal(t, "logs", cfg.Logs.Dir)
}

func TestLoadExplicitFalseOverridesDefault(t *testing.T) {
	path := writeConfig(t, `{"sources": {"/data": "/backup"}, "overwrite": false}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Overwrite)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadBadJSON(t *testing.T) {
	_, err := config.Load(writeConfig(t, `{"sources": `))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"no sources", func(c *config.Config) { c.Sources = nil }, "no sources"},
		{"blank source", func(c *config.Config) { c.Sources = map[string]string{" ": "/backup"} }, "non-empty"},
		{"blank dest", func(c *config.Config) { c.Sources = map[string]string{"/data": ""} }, "non-empty"},
		{"dest equals source", func(c *config.Config) {
			c.Sources = map[string]string{"/data": "/data"}
		}, "inside source"},
		{"dest nested under source", func(c *config.Config) {
			c.Sources = map[string]string{"/data": "/data/backup"}
		}, "inside source"},
		{"zero batch size", func(c *config.Config) { c.Parallel.BatchSize = 0 }, "batchSize"},
		{"negative workers", func(c *config.Config) { c.Parallel.MaxWorkers = -1 }, "maxWorkers"},
		{"negative small size", func(c *config.Config) { c.Parallel.SmallFileSizeMB = -1 }, "smallFileSizeMB"},
		{"negative size limit", func(c *config.Config) { c.FileSizeLimitMB = -1 }, "fileSizeLimitMB"},
		{"negative incremental", func(c *config.Config) { c.IncrementalDays = -1 }, "incrementalDays"},
		{"negative path cap", func(c *config.Config) { c.MaxPathLength = -1 }, "maxPathLength"},
		{"negative sample", func(c *config.Config) { c.VerificationSampleSize = -1 }, "verificationSampleSize"},
		{"negative index age", func(c *config.Config) { c.Index.MaxAgeHours = -1 }, "maxAgeHours"},
		{"negative wait", func(c *config.Config) { c.VolumeWait.TimeoutSeconds = -1 }, "volumeWait"},
		{"negative archive days", func(c *config.Config) { c.Logs.ArchiveAfterDays = -1 }, "archiveAfterDays"},
		{"bad archive format", func(c *config.Config) { c.Logs.ArchiveFormat = "rar" }, "archiveFormat"},
		{"bad level", func(c *config.Config) { c.Logs.Level = "loud" }, "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSortedSources(t *testing.T) {
	cfg := validConfig()
	cfg.Sources = map[string]string{
		"/data/zoo":    "/backup/zoo",
		"/data/apples": "/backup/apples",
		"/data/mid":    "/backup/mid",
	}
	assert.Equal(t, []string{"/data/apples", "/data/mid", "/data/zoo"}, cfg.SortedSources())
}

func TestDerivedValues(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, int64(100<<20), cfg.FileSizeLimitBytes())
	assert.Equal(t, int64(1<<20), cfg.SmallThresholdBytes())

	assert.Equal(t, 0, cfg.Workers()) // auto
	cfg.Parallel.MaxWorkers = 8
	assert.Equal(t, 8, cfg.Workers())
	cfg.Parallel.Enabled = false
	assert.Equal(t, 1, cfg.Workers())
}

func TestModifiedAfter(t *testing.T) {
	cfg := validConfig()
	now := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)

	assert.True(t, cfg.ModifiedAfter(now).IsZero())

	cfg.IncrementalDays = 7
	assert.Equal(t, now.AddDate(0, 0, -7), cfg.ModifiedAfter(now))
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.json")
	require.NoError(t, config.WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.NotEmpty(t, cfg.Sources)
	assert.Equal(t, 100, int(cfg.FileSizeLimitMB))
}

func TestWriteDefaultKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"custom": true}`), 0o644))

	require.NoError(t, config.WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"custom": true}`, string(data))
}
