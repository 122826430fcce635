package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/id88/everysync/internal/stats"
)

// IsTTY reports whether the given file descriptor refers to a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// TermWidth returns the terminal width in columns, or 80 if it cannot be determined.
func TermWidth(fd uintptr) int {
	w, _, err := term.GetSize(int(fd))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

const (
	termBarWidth        = 20
	termRedrawInterval  = 100 * time.Millisecond
	termRefreshInterval = time.Second
)

// termPresenter renders a single in-place progress line on a terminal,
// redrawn with \r. Pair boundaries and mismatches break the line so
// they stay visible in the scrollback.
type termPresenter struct {
	w        io.Writer
	stats    *stats.Collector
	lastDraw time.Time
	lastLen  int
}

func (p *termPresenter) Run(events <-chan Event) error {
	tick := time.NewTicker(termRefreshInterval)
	defer tick.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearLine()
				return nil
			}
			p.handleEvent(ev)
		case <-tick.C:
			p.stats.Tick()
			p.redraw(true)
		}
	}
}

func (p *termPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case PairStarted:
		p.printLine(fmt.Sprintf("sync: %s -> %s", ev.Path, ev.Dest))
	case VolumeWaiting:
		p.printLine(fmt.Sprintf("waiting for %s", ev.Path))
	case VerifyMismatch:
		p.printLine(fmt.Sprintf("MISMATCH: %s", ev.Path))
	case Progress, ScanCompleted:
		p.redraw(false)
	}
}

// printLine clears the progress line and writes a durable line above it.
func (p *termPresenter) printLine(s string) {
	p.clearLine()
	fmt.Fprintln(p.w, s)
	p.redraw(true)
}

func (p *termPresenter) redraw(force bool) {
	now := time.Now()
	if !force && now.Sub(p.lastDraw) < termRedrawInterval {
		return
	}
	p.lastDraw = now

	snap := p.stats.Snapshot()
	processed := snap.FilesCopied + snap.FilesSkipped + snap.FilesFailed

	var pct float64
	switch {
	case snap.BytesTotal > 0:
		pct = float64(snap.BytesCopied) / float64(snap.BytesTotal)
	case snap.FilesTotal > 0:
		pct = float64(processed) / float64(snap.FilesTotal)
	}

	line := fmt.Sprintf(" %3.0f%%  %s  %s/%s files  %s  %s  eta %s",
		pct*100,
		ProgressBar(pct, termBarWidth),
		FormatCount(processed), FormatCount(snap.FilesTotal),
		FormatBytes(snap.BytesCopied),
		FormatRate(p.stats.RollingSpeed(5)),
		FormatETA(p.stats.ETA()),
	)

	pad := 0
	if n := len(line); n < p.lastLen {
		pad = p.lastLen - n
		p.lastLen = n
	} else {
		p.lastLen = n
	}
	fmt.Fprintf(p.w, "\r%s%s", line, strings.Repeat(" ", pad))
}

func (p *termPresenter) clearLine() {
	if p.lastLen == 0 {
		return
	}
	fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", p.lastLen))
	p.lastLen = 0
}

func (p *termPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}
