package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	PairStarted Type = iota + 1
	PairCompleted
	ScanStarted
	ScanCompleted
	DirCreated
	FileCopied
	FileSkipped
	FileFailed
	Progress
	VerifySampled
	VerifyMismatch
	VolumeWaiting
)

var typeNames = [...]string{
	PairStarted:    "PairStarted",
	PairCompleted:  "PairCompleted",
	ScanStarted:    "ScanStarted",
	ScanCompleted:  "ScanCompleted",
	DirCreated:     "DirCreated",
	FileCopied:     "FileCopied",
	FileSkipped:    "FileSkipped",
	FileFailed:     "FileFailed",
	Progress:       "Progress",
	VerifySampled:  "VerifySampled",
	VerifyMismatch: "VerifyMismatch",
	VolumeWaiting:  "VolumeWaiting",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // source path (or root for pair/scan events)
	Dest      string // destination path, when the event has one
	Size      int64  // file size in bytes
	Processed int64  // completed file tasks so far (Progress)
	Total     int64  // total file tasks (Progress, ScanCompleted)
	TotalSize int64  // total candidate bytes (ScanCompleted)
	Error     error
}

// Emit sends ev on ch without blocking; events are advisory and a slow
// consumer must never stall a worker.
func Emit(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case ch <- ev:
	default:
	}
}
