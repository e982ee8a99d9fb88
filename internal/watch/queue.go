package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tbardale/showsync/internal/logging"
)

var dispatchLog = logging.ForComponent(logging.CompDispatch)

// QueueEntry is a debounced (path, kind) ready for enrichment.
type QueueEntry struct {
	Path       string
	Kind       EventKind
	EnqueuedAt time.Time
}

// DispatchQueue is a bounded FIFO of ready events. When capacity is
// reached the oldest unconsumed entry is dropped before the newest is
// appended: bounded memory beats completeness under load, since the
// downstream consumer can always full-resync.
type DispatchQueue struct {
	mu      sync.Mutex
	entries []QueueEntry
	cap     int
	signal  chan struct{}
}

// NewDispatchQueue creates a queue holding at most capacity entries.
func NewDispatchQueue(capacity int) *DispatchQueue {
	return &DispatchQueue{
		cap:    capacity,
		signal: make(chan struct{}, 1),
	}
}

// Push appends an entry, evicting the oldest on overflow. Never blocks.
func (q *DispatchQueue) Push(path string, kind EventKind) {
	q.mu.Lock()
	if len(q.entries) >= q.cap {
		dropped := q.entries[0]
		q.entries = q.entries[1:]
		dispatchLog.Warn("queue_backpressure_drop",
			slog.String("dropped_path", dropped.Path),
			slog.Int("capacity", q.cap),
		)
	}
	q.entries = append(q.entries, QueueEntry{
		Path:       path,
		Kind:       kind,
		EnqueuedAt: time.Now(),
	})
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Pop removes and returns the head, blocking until an entry is available
// or ctx is cancelled. Returns false only on cancellation.
func (q *DispatchQueue) Pop(ctx context.Context) (QueueEntry, bool) {
	for {
		q.mu.Lock()
		if len(q.entries) > 0 {
			head := q.entries[0]
			q.entries = q.entries[1:]
			q.mu.Unlock()
			return head, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return QueueEntry{}, false
		case <-q.signal:
		}
	}
}

// Len returns the current queue depth.
func (q *DispatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns a copy of the queued entries, oldest first.
func (q *DispatchQueue) Snapshot() []QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Clear discards all queued entries.
func (q *DispatchQueue) Clear() {
	q.mu.Lock()
	q.entries = nil
	q.mu.Unlock()
}
