// Package logging wires the process-wide slog logger: human-readable
// text on the console, a machine-readable per-run file on disk, and
// retention housekeeping for old run files.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Setup installs the default logger. The console (stderr) gets a text
// handler whose level follows the quiet/verbose flags; when dir is
// non-empty a fresh timestamped JSON file under it captures records at
// fileLevel as well. Returns the log file path ("" when fileless) and
// a closer for the file.
//
// Call once per process, before any package logs.
func Setup(dir string, fileLevel slog.Level, quiet, verbose bool) (string, func() error, error) {
	consoleLevel := slog.LevelInfo
	switch {
	case verbose:
		consoleLevel = slog.LevelDebug
	case quiet:
		consoleLevel = slog.LevelWarn
	}
	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel})

	if dir == "" {
		slog.SetDefault(slog.New(console))
		return "", func() error { return nil }, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, "everysync-"+time.Now().Format("20060102-150405")+".log")
	// O_APPEND so two runs started within the same second share the
	// file instead of failing.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("create log file: %w", err)
	}

	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: fileLevel})
	slog.SetDefault(slog.New(NewMultiHandler(console, file)))
	return path, f.Close, nil
}

// ParseLevel maps a config level string ("debug", "info", "warn",
// "error") onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
