package ui

import (
	"fmt"

	"github.com/id88/everysync/internal/stats"
)

// completionSummary builds a final summary line from a snapshot.
// Format: done ✓  copied 1,204  skipped 47,713  size 2.1 GB  avg 641 MB/s  time 3m 17s  errors 0
func completionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesCopied) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if snap.FilesFailed > 0 || snap.VerifyMismatches > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  copied %s  skipped %s  size %s  avg %s  time %s",
		icon,
		FormatCount(snap.FilesCopied),
		FormatCount(snap.FilesSkipped),
		FormatBytes(snap.BytesCopied),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
	)

	if snap.VerifySampled > 0 {
		base += fmt.Sprintf("  sampled %s", FormatCount(snap.VerifySampled))
	}

	base += fmt.Sprintf("  errors %d", snap.FilesFailed+snap.VerifyMismatches)

	return base
}
