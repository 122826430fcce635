package engine

import "github.com/id88/everysync/internal/scan"

// SizeClass buckets file tasks for scheduling: small files are batched
// to amortize per-task overhead, large files are dispatched one by one.
type SizeClass int

const (
	Small SizeClass = iota
	Large
)

func (c SizeClass) String() string {
	if c == Small {
		return "small"
	}
	return "large"
}

// Task describes one file to synchronize. Directory records never
// become tasks; the scheduler materializes directories in a
// preparation pass before dispatching.
type Task struct {
	Record scan.FileRecord
	Dest   string
	Class  SizeClass
}

// Outcome counts per-file results. Merging is summation, commutative
// and associative, so units may complete in any order.
type Outcome struct {
	Success uint64
	Skip    uint64
	Error   uint64
}

// Add returns the element-wise sum of two outcomes.
func (o Outcome) Add(p Outcome) Outcome {
	return Outcome{
		Success: o.Success + p.Success,
		Skip:    o.Skip + p.Skip,
		Error:   o.Error + p.Error,
	}
}

// Total returns the number of tasks the outcome accounts for.
func (o Outcome) Total() uint64 {
	return o.Success + o.Skip + o.Error
}
