package engine

import (
	"os"
	"time"

	"github.com/id88/everysync/internal/scan"
)

// needsUpdate reports whether the source file must be copied over dest.
// Checks run cheapest-first: existence, size, staleness, content sum.
// The staleness check is one-directional; a destination newer than its
// source is never refreshed. Indeterminate checks (stat or read
// errors) answer true and let the copy path surface the real error.
func needsUpdate(src scan.FileRecord, dest string) bool {
	info, err := os.Stat(dest)
	if err != nil {
		return true
	}

	if info.Size() != src.Size {
		return true
	}

	// Compare at second granularity: destination filesystems may store
	// coarser timestamps than the source preserves.
	if src.ModTime.Truncate(time.Second).After(info.ModTime().Truncate(time.Second)) {
		return true
	}

	srcSum, err := ContentSum(src.Path)
	if err != nil {
		return true
	}
	dstSum, err := ContentSum(dest)
	if err != nil {
		return true
	}
	return srcSum != dstSum
}
