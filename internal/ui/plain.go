package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/id88/everysync/internal/stats"
)

// plainPresenter writes line-oriented output: pair and scan lines to
// stdout, a progress line to stderr every few seconds, and per-file
// lines when verbose. Failures are reported by the logger, so they are
// not repeated here.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	verbose bool
}

const plainProgressInterval = 5 * time.Second

func (p *plainPresenter) Run(events <-chan Event) error {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	progress := time.NewTicker(plainProgressInterval)
	defer progress.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-tick.C:
			p.stats.Tick()
		case <-progress.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case PairStarted:
		fmt.Fprintf(p.w, "sync: %s -> %s\n", ev.Path, ev.Dest)
	case ScanCompleted:
		fmt.Fprintf(p.w, "scan: %s files to consider (%s)\n",
			FormatCount(ev.Total), FormatBytes(ev.TotalSize))
	case VolumeWaiting:
		fmt.Fprintf(p.errW, "waiting for %s\n", ev.Path)
	case FileCopied:
		if p.verbose {
			speed := p.stats.RollingSpeed(5)
			fmt.Fprintf(p.w, "%s  %s  %s\n", ev.Path, FormatBytes(ev.Size), FormatRate(speed))
		}
	case FileSkipped:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  up to date\n", ev.Path)
		}
	case DirCreated:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  created\n", ev.Dest)
		}
	case VerifyMismatch:
		fmt.Fprintf(p.w, "MISMATCH: %s\n", ev.Path)
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	if snap.BytesTotal > 0 {
		pct := float64(snap.BytesCopied) / float64(snap.BytesTotal) * 100
		speed := p.stats.RollingSpeed(10)
		eta := p.stats.ETA()
		fmt.Fprintf(p.errW, "progress: %.0f%% %s/%s %s/%s files %s eta %s\n",
			pct,
			FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal),
			FormatCount(snap.FilesCopied), FormatCount(snap.FilesTotal),
			FormatRate(speed),
			FormatETA(eta),
		)
	} else {
		fmt.Fprintf(p.errW, "progress: %s copied %s files\n",
			FormatBytes(snap.BytesCopied),
			FormatCount(snap.FilesCopied),
		)
	}
}

func (p *plainPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}
