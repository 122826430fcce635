package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks backup run statistics using lock-free atomic counters.
type Collector struct {
	filesCopied      atomic.Int64
	filesSkipped     atomic.Int64
	filesFailed      atomic.Int64
	filesFiltered    atomic.Int64
	dirsCreated      atomic.Int64
	bytesCopied      atomic.Int64
	scanErrors       atomic.Int64
	verifySampled    atomic.Int64
	verifyMismatches atomic.Int64
	filesTotal       atomic.Int64
	bytesTotal       atomic.Int64
	startTime        time.Time

	// Ring buffer, written only by the presenter's Tick(), not workers.
	mu         sync.Mutex
	throughput [ringSize]int64 // bytes delta per second
	ringIdx    int
	ringCount  int // how many samples have been written (capped at ringSize)
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetTotals records candidate totals (called once per pair when enumeration completes).
func (c *Collector) SetTotals(files, bytes int64) {
	c.filesTotal.Store(files)
	c.bytesTotal.Store(bytes)
}

// AddFilesTotal atomically increments the total file count (multi-pair runs).
func (c *Collector) AddFilesTotal(n int64) { c.filesTotal.Add(n) }

// AddBytesTotal atomically increments the total byte count (multi-pair runs).
func (c *Collector) AddBytesTotal(n int64) { c.bytesTotal.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesCopied      int64
	FilesSkipped     int64
	FilesFailed      int64
	FilesFiltered    int64
	DirsCreated      int64
	BytesCopied      int64
	ScanErrors       int64
	VerifySampled    int64
	VerifyMismatches int64
	FilesTotal       int64
	BytesTotal       int64
	Elapsed          time.Duration
}

func (c *Collector) AddFilesCopied(n int64)      { c.filesCopied.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)     { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesFailed(n int64)      { c.filesFailed.Add(n) }
func (c *Collector) AddFilesFiltered(n int64)    { c.filesFiltered.Add(n) }
func (c *Collector) AddDirsCreated(n int64)      { c.dirsCreated.Add(n) }
func (c *Collector) AddBytesCopied(n int64)      { c.bytesCopied.Add(n) }
func (c *Collector) AddScanErrors(n int64)       { c.scanErrors.Add(n) }
func (c *Collector) AddVerifySampled(n int64)    { c.verifySampled.Add(n) }
func (c *Collector) AddVerifyMismatches(n int64) { c.verifyMismatches.Add(n) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesCopied:      c.filesCopied.Load(),
		FilesSkipped:     c.filesSkipped.Load(),
		FilesFailed:      c.filesFailed.Load(),
		FilesFiltered:    c.filesFiltered.Load(),
		DirsCreated:      c.dirsCreated.Load(),
		BytesCopied:      c.bytesCopied.Load(),
		ScanErrors:       c.scanErrors.Load(),
		VerifySampled:    c.verifySampled.Load(),
		VerifyMismatches: c.verifyMismatches.Load(),
		FilesTotal:       c.filesTotal.Load(),
		BytesTotal:       c.bytesTotal.Load(),
		Elapsed:          c.Elapsed(),
	}
}

// Tick snapshots the byte delta into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesCopied.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.lastBytes = currentBytes
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := seconds
	if count > c.ringCount {
		count = c.ringCount
	}
	if count == 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// ETA estimates remaining time based on rolling speed and remaining bytes.
func (c *Collector) ETA() time.Duration {
	speed := c.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesTotal.Load() - c.bytesCopied.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"copied=%d skipped=%d failed=%d filtered=%d dirs=%d bytes=%d",
		s.FilesCopied, s.FilesSkipped, s.FilesFailed, s.FilesFiltered,
		s.DirsCreated, s.BytesCopied,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
