package watch

import (
	"sync"
	"time"
)

// debounceEntry is the pending state for one path. At most one live entry
// exists per path; every new event for the path replaces it.
type debounceEntry struct {
	timer *time.Timer
	kind  EventKind
}

// Debouncer coalesces rapid event bursts on the same path into a single
// deferred fire. Registering a path cancels any pending timer for it and
// arms a fresh one, so N events inside the delay window fire exactly once,
// with the last observed kind.
type Debouncer struct {
	delay time.Duration
	fire  func(path string, kind EventKind)

	mu      sync.Mutex
	entries map[string]*debounceEntry
}

// NewDebouncer creates a debouncer that calls fire after delay of quiet
// time per path. fire runs on the timer goroutine, outside the lock.
func NewDebouncer(delay time.Duration, fire func(path string, kind EventKind)) *Debouncer {
	return &Debouncer{
		delay:   delay,
		fire:    fire,
		entries: make(map[string]*debounceEntry),
	}
}

// Register arms (or re-arms) the timer for path with the latest kind.
// The lock is held only to swap the table entry, never across the fire.
func (d *Debouncer) Register(path string, kind EventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.entries[path]; ok {
		prev.timer.Stop()
	}

	entry := &debounceEntry{kind: kind}
	entry.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// Whoever takes the lock first wins: if Register replaced this
		// entry while the callback was starting, the fire is abandoned
		// and the replacement's fresh timer stands alone.
		if d.entries[path] != entry {
			d.mu.Unlock()
			return
		}
		delete(d.entries, path)
		firedKind := entry.kind
		d.mu.Unlock()

		d.fire(path, firedKind)
	})
	d.entries[path] = entry
}

// Pending returns the number of live entries.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// CancelAll stops every pending timer and clears the table.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, entry := range d.entries {
		entry.timer.Stop()
		delete(d.entries, path)
	}
}
