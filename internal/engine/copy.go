package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/id88/everysync/internal/platform"
)

// Per-file failure sentinels.
var (
	ErrPathTooLong          = errors.New("path exceeds length cap")
	ErrDestinationExists    = errors.New("destination exists and overwrite is disabled")
	ErrVerificationMismatch = errors.New("verification mismatch")
)

// copyOptions carries the per-run knobs the copy path needs.
type copyOptions struct {
	MaxPathLength int
	Overwrite     bool
	Limiter       *rate.Limiter
}

// copyAndVerify copies one task's source to its destination and checks
// the result, sizes first, then whole-file digests. A failed
// verification removes the destination so a bad copy never survives the
// run. Returns the bytes written.
//
// The copy lands directly at the destination path; between the byte
// copy and a failed verification the destination may briefly hold the
// bad content, never after.
func copyAndVerify(ctx context.Context, task Task, opts copyOptions) (int64, error) {
	if opts.MaxPathLength > 0 {
		if len(task.Record.Path) > opts.MaxPathLength {
			return 0, fmt.Errorf("%w: source %s (%d chars)",
				ErrPathTooLong, task.Record.Path, len(task.Record.Path))
		}
		if len(task.Dest) > opts.MaxPathLength {
			return 0, fmt.Errorf("%w: destination %s (%d chars)",
				ErrPathTooLong, task.Dest, len(task.Dest))
		}
	}

	if task.Record.IsDir {
		if err := os.MkdirAll(task.Dest, 0o755); err != nil {
			return 0, fmt.Errorf("create directory: %w", err)
		}
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(task.Dest), 0o755); err != nil {
		return 0, fmt.Errorf("create parent: %w", err)
	}

	if !opts.Overwrite {
		if _, err := os.Lstat(task.Dest); err == nil {
			return 0, fmt.Errorf("%w: %s", ErrDestinationExists, task.Dest)
		}
	}

	srcInfo, err := os.Stat(task.Record.Path)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}

	written, err := copyBytes(ctx, task, srcInfo, opts.Limiter)
	if err != nil {
		return written, err
	}

	// Carry mode and times over, like a metadata-preserving copy.
	if err := os.Chmod(task.Dest, srcInfo.Mode().Perm()); err != nil {
		return written, fmt.Errorf("preserve mode: %w", err)
	}
	if err := os.Chtimes(task.Dest, platform.Atime(srcInfo), srcInfo.ModTime()); err != nil {
		return written, fmt.Errorf("preserve times: %w", err)
	}

	if err := verifyCopy(task.Record.Path, task.Dest, srcInfo.Size()); err != nil {
		return written, err
	}
	return written, nil
}

func copyBytes(ctx context.Context, task Task, srcInfo os.FileInfo, limiter *rate.Limiter) (int64, error) {
	params := platform.CopyParams{
		DstPath: task.Dest,
		SrcPath: task.Record.Path,
		Size:    srcInfo.Size(),
		Perm:    srcInfo.Mode().Perm(),
	}

	if limiter == nil {
		result, err := platform.CopyFile(params)
		if err != nil {
			return result.BytesWritten, fmt.Errorf("copy: %w", err)
		}
		return result.BytesWritten, nil
	}

	// Throttled path: plain read/write so the limiter sees every byte.
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(params.DstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, params.Perm)
	if err != nil {
		return 0, fmt.Errorf("open destination: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, newRateLimitedReader(ctx, src, limiter))
	if err != nil {
		return n, fmt.Errorf("throttled copy: %w", err)
	}
	return n, nil
}

// verifyCopy compares sizes, then whole-file digests. Definite
// mismatches delete the destination; hash read errors propagate
// without deleting (the copy may be fine, it just could not be
// confirmed).
func verifyCopy(srcPath, destPath string, wantSize int64) error {
	info, err := os.Stat(destPath)
	if err != nil {
		return fmt.Errorf("stat destination: %w", err)
	}
	if info.Size() != wantSize {
		os.Remove(destPath)
		return fmt.Errorf("%w: %s: size %d, want %d",
			ErrVerificationMismatch, destPath, info.Size(), wantSize)
	}

	srcHash, err := HashFile(srcPath)
	if err != nil {
		return fmt.Errorf("verify source: %w", err)
	}
	dstHash, err := HashFile(destPath)
	if err != nil {
		return fmt.Errorf("verify destination: %w", err)
	}
	if srcHash != dstHash {
		os.Remove(destPath)
		return fmt.Errorf("%w: %s: digest differs from source", ErrVerificationMismatch, destPath)
	}
	return nil
}
