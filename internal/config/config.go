// Package config loads the job configuration driving a run: the
// source to destination map, filter limits, scheduler knobs, index,
// volume-wait, and logging settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/id88/everysync/internal/logging"
)

// DefaultPath is where Load looks when --config is not given.
const DefaultPath = "config/config.json"

// Config is the job configuration. Fields missing from the file keep
// their defaults: Load unmarshals over Default().
type Config struct {
	Sources                map[string]string `json:"sources"`
	ExcludePatterns        []string          `json:"excludePatterns"`
	ExcludeFile            string            `json:"excludeFile"`
	FileSizeLimitMB        int64             `json:"fileSizeLimitMB"`
	IncrementalDays        int               `json:"incrementalDays"`
	MaxPathLength          int               `json:"maxPathLength"`
	Overwrite              bool              `json:"overwrite"`
	VerificationSampleSize int               `json:"verificationSampleSize"`
	Parallel               ParallelConfig    `json:"parallel"`
	Index                  IndexConfig       `json:"index"`
	VolumeWait             VolumeWaitConfig  `json:"volumeWait"`
	Logs                   LogsConfig        `json:"logs"`
}

type ParallelConfig struct {
	Enabled         bool  `json:"enabled"`
	MaxWorkers      int   `json:"maxWorkers"` // 0 = auto
	SmallFileSizeMB int64 `json:"smallFileSizeMB"`
	BatchSize       int   `json:"batchSize"`
}

type IndexConfig struct {
	Enabled     bool `json:"enabled"`
	MaxAgeHours int  `json:"maxAgeHours"`
}

type VolumeWaitConfig struct {
	TimeoutSeconds int `json:"timeoutSeconds"`
	PollSeconds    int `json:"pollSeconds"`
}

type LogsConfig struct {
	Dir              string `json:"dir"`
	Level            string `json:"level"`
	ArchiveAfterDays int    `json:"archiveAfterDays"`
	ArchiveFormat    string `json:"archiveFormat"`
}

// Default returns the fully populated default configuration.
func Default() Config {
	return Config{
		Sources:                map[string]string{},
		ExcludePatterns:        []string{},
		ExcludeFile:            "ignore.txt",
		FileSizeLimitMB:        100,
		IncrementalDays:        0,
		MaxPathLength:          240,
		Overwrite:              true,
		VerificationSampleSize: 2,
		Parallel: ParallelConfig{
			Enabled:         true,
			MaxWorkers:      0,
			SmallFileSizeMB: 1,
			BatchSize:       100,
		},
		Index:      IndexConfig{Enabled: true, MaxAgeHours: 24},
		VolumeWait: VolumeWaitConfig{TimeoutSeconds: 30, PollSeconds: 1},
		Logs: LogsConfig{
			Dir:              "logs",
			Level:            "info",
			ArchiveAfterDays: 7,
			ArchiveFormat:    logging.FormatZstd,
		},
	}
}

// Load reads path, merges it over the defaults, and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the invariants a run depends on.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("no sources configured")
	}
	for src, dst := range c.Sources {
		if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
			return errors.New("source and destination must be non-empty")
		}
		if subpathOf(src, dst) {
			return fmt.Errorf("destination %s is inside source %s", dst, src)
		}
	}
	if c.Parallel.BatchSize <= 0 {
		return errors.New("parallel.batchSize must be positive")
	}
	if c.Parallel.MaxWorkers < 0 {
		return errors.New("parallel.maxWorkers cannot be negative")
	}
	if c.Parallel.SmallFileSizeMB < 0 {
		return errors.New("parallel.smallFileSizeMB cannot be negative")
	}
	if c.FileSizeLimitMB < 0 {
		return errors.New("fileSizeLimitMB cannot be negative")
	}
	if c.IncrementalDays < 0 {
		return errors.New("incrementalDays cannot be negative")
	}
	if c.MaxPathLength < 0 {
		return errors.New("maxPathLength cannot be negative")
	}
	if c.VerificationSampleSize < 0 {
		return errors.New("verificationSampleSize cannot be negative")
	}
	if c.Index.MaxAgeHours < 0 {
		return errors.New("index.maxAgeHours cannot be negative")
	}
	if c.VolumeWait.TimeoutSeconds < 0 || c.VolumeWait.PollSeconds < 0 {
		return errors.New("volumeWait values cannot be negative")
	}
	if c.Logs.ArchiveAfterDays < 0 {
		return errors.New("logs.archiveAfterDays cannot be negative")
	}
	if c.Logs.ArchiveFormat != logging.FormatZstd && c.Logs.ArchiveFormat != logging.FormatGzip {
		return fmt.Errorf("logs.archiveFormat must be %q or %q", logging.FormatZstd, logging.FormatGzip)
	}
	if _, err := logging.ParseLevel(c.Logs.Level); err != nil {
		return err
	}
	return nil
}

// SortedSources returns the source roots in lexical order so runs
// process pairs deterministically.
func (c Config) SortedSources() []string {
	roots := make([]string, 0, len(c.Sources))
	for root := range c.Sources {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// FileSizeLimitBytes returns the per-file size cap in bytes, 0 for
// unlimited.
func (c Config) FileSizeLimitBytes() int64 {
	return c.FileSizeLimitMB << 20
}

// SmallThresholdBytes returns the small-file classification boundary.
func (c Config) SmallThresholdBytes() int64 {
	return c.Parallel.SmallFileSizeMB << 20
}

// Workers returns the effective pool size: 1 when parallel execution
// is disabled, 0 (auto) when MaxWorkers is unset.
func (c Config) Workers() int {
	if !c.Parallel.Enabled {
		return 1
	}
	return c.Parallel.MaxWorkers
}

// ModifiedAfter returns the incremental cutoff relative to now; the
// zero time means a full run.
func (c Config) ModifiedAfter(now time.Time) time.Time {
	if c.IncrementalDays <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -c.IncrementalDays)
}

// WriteDefault writes the default configuration to path unless it
// already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	cfg := Default()
	cfg.Sources = map[string]string{"/path/to/source": "/path/to/backup"}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func subpathOf(parent, child string) bool {
	parent = filepath.Clean(parent)
	child = filepath.Clean(child)
	if parent == child {
		return true
	}
	return strings.HasPrefix(child, parent+string(os.PathSeparator))
}
