// Package watch implements the change-detection pipeline: an event source
// feeds raw filesystem events through a relevance filter and a per-path
// debounce coalescer into a bounded dispatch queue drained by a single
// background worker.
package watch

import (
	"time"

	"github.com/tbardale/showsync/internal/analyze"
)

// EventKind classifies a raw filesystem event.
type EventKind string

const (
	KindCreated  EventKind = "created"
	KindModified EventKind = "modified"
	KindDeleted  EventKind = "deleted"
	KindMoved    EventKind = "moved"
)

// RawEvent is a filesystem event as delivered by the event source.
// Ephemeral; never persisted.
type RawEvent struct {
	Path       string
	Kind       EventKind
	ObservedAt time.Time
}

// ChangeRecord is an enriched, immutable description of a change that
// survived debouncing. ContentHash is empty for deleted paths ("no hash").
type ChangeRecord struct {
	Path                string
	Kind                EventKind
	Timestamp           time.Time
	AffectsSync         bool
	Size                int64
	ContentHash         string
	PreviousContentHash string
	Significant         bool
	Score               float64
	Category            analyze.Category
	Media               *analyze.MediaMetadata
}
