package watch

import (
	"sort"
	"sync"
	"time"
)

// History is the bounded in-memory cache of recent ChangeRecords, queried
// by GetRecentChanges. When it grows past its cap it evicts the
// oldest-by-timestamp records down to the target size in one sweep.
type History struct {
	mu      sync.Mutex
	records []ChangeRecord
	cap     int
	target  int
}

// NewHistory creates a history retaining at most capacity records,
// trimming to ~80% of capacity on overflow.
func NewHistory(capacity int) *History {
	target := capacity * 4 / 5
	if target < 1 {
		target = 1
	}
	return &History{cap: capacity, target: target}
}

// Add appends a record, evicting the oldest entries if over capacity.
func (h *History) Add(rec ChangeRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if len(h.records) <= h.cap {
		return
	}

	// Timestamps arrive near-monotonic but not guaranteed; sort before
	// trimming so eviction is strictly oldest-first.
	sort.SliceStable(h.records, func(i, j int) bool {
		return h.records[i].Timestamp.Before(h.records[j].Timestamp)
	})
	h.records = h.records[len(h.records)-h.target:]
}

// Since returns all records with Timestamp >= since, oldest first.
func (h *History) Since(since time.Time) []ChangeRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []ChangeRecord
	for _, rec := range h.records {
		if !rec.Timestamp.Before(since) {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of cached records.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}
