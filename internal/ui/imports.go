package ui

import "github.com/id88/everysync/internal/event"

// Event is the engine event type consumed by presenters.
type Event = event.Event

// Re-export event types for convenience.
const (
	PairStarted    = event.PairStarted
	PairCompleted  = event.PairCompleted
	ScanStarted    = event.ScanStarted
	ScanCompleted  = event.ScanCompleted
	DirCreated     = event.DirCreated
	FileCopied     = event.FileCopied
	FileSkipped    = event.FileSkipped
	FileFailed     = event.FileFailed
	Progress       = event.Progress
	VerifySampled  = event.VerifySampled
	VerifyMismatch = event.VerifyMismatch
	VolumeWaiting  = event.VolumeWaiting
)
