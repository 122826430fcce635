package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// Supported archive formats.
const (
	FormatZstd = "zst"
	FormatGzip = "gz"
)

// Archive compresses .log files in dir older than olderThan and
// removes the originals. A file that cannot be compressed is left in
// place and logged; the sweep continues. The current run's file is
// excluded by its age.
func Archive(dir string, olderThan time.Duration, format string) error {
	if format != FormatZstd && format != FormatGzip {
		return fmt.Errorf("unknown archive format %q", format)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read log directory: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := compressFile(path, format); err != nil {
			slog.Warn("cannot archive log", "path", path, "error", err)
			continue
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("cannot remove archived log", "path", path, "error", err)
		}
	}
	return nil
}

func compressFile(path, format string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	outPath := path + "." + format
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}

	var w io.WriteCloser
	switch format {
	case FormatZstd:
		w, err = zstd.NewWriter(out)
	case FormatGzip:
		w = pgzip.NewWriter(out)
	default:
		err = fmt.Errorf("unknown archive format %q", format)
	}
	if err == nil {
		_, err = io.Copy(w, src)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outPath)
		return err
	}
	return nil
}
