package watch

import (
	"sync"
	"testing"
	"time"
)

type fireRecorder struct {
	mu    sync.Mutex
	fires []QueueEntry
	ch    chan struct{}
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan struct{}, 64)}
}

func (r *fireRecorder) fire(path string, kind EventKind) {
	r.mu.Lock()
	r.fires = append(r.fires, QueueEntry{Path: path, Kind: kind})
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *fireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fires)
}

func (r *fireRecorder) last() QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fires[len(r.fires)-1]
}

func (r *fireRecorder) waitOne(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounce fire")
	}
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	rec := newFireRecorder()
	d := NewDebouncer(50*time.Millisecond, rec.fire)

	// Rapid burst on one path: exactly one fire, last kind wins.
	d.Register("/p/a.md", KindCreated)
	d.Register("/p/a.md", KindModified)
	d.Register("/p/a.md", KindDeleted)

	rec.waitOne(t)
	if got := rec.count(); got != 1 {
		t.Fatalf("fires = %d, want 1", got)
	}
	if last := rec.last(); last.Kind != KindDeleted {
		t.Errorf("fired kind = %s, want deleted (latest)", last.Kind)
	}
	if d.Pending() != 0 {
		t.Errorf("pending = %d after fire, want 0", d.Pending())
	}
}

func TestDebouncerIndependentPaths(t *testing.T) {
	rec := newFireRecorder()
	d := NewDebouncer(30*time.Millisecond, rec.fire)

	d.Register("/p/a.md", KindModified)
	d.Register("/p/b.md", KindModified)

	rec.waitOne(t)
	rec.waitOne(t)
	if got := rec.count(); got != 2 {
		t.Errorf("fires = %d, want 2", got)
	}
}

func TestDebouncerRearmDelaysFire(t *testing.T) {
	rec := newFireRecorder()
	d := NewDebouncer(80*time.Millisecond, rec.fire)

	d.Register("/p/a.md", KindModified)
	time.Sleep(50 * time.Millisecond)
	d.Register("/p/a.md", KindModified)
	time.Sleep(50 * time.Millisecond)

	// First window would have elapsed by now, but the re-arm reset it.
	if got := rec.count(); got != 0 {
		t.Fatalf("fired too early: %d fires", got)
	}

	rec.waitOne(t)
	if got := rec.count(); got != 1 {
		t.Errorf("fires = %d, want 1", got)
	}
}

func TestDebouncerCancelAll(t *testing.T) {
	rec := newFireRecorder()
	d := NewDebouncer(40*time.Millisecond, rec.fire)

	d.Register("/p/a.md", KindModified)
	d.Register("/p/b.md", KindModified)
	d.CancelAll()

	if d.Pending() != 0 {
		t.Errorf("pending = %d after CancelAll, want 0", d.Pending())
	}
	time.Sleep(80 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Errorf("fires = %d after CancelAll, want 0", got)
	}
}

func TestDebouncerAtMostOneEntryPerPath(t *testing.T) {
	rec := newFireRecorder()
	d := NewDebouncer(30*time.Millisecond, rec.fire)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Register("/p/contended.md", KindModified)
		}()
	}
	wg.Wait()

	if got := d.Pending(); got != 1 {
		t.Errorf("pending = %d, want 1 (one live entry per path)", got)
	}

	rec.waitOne(t)
	// Give any stray duplicate fire a chance to show up.
	time.Sleep(60 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Errorf("fires = %d, want exactly 1", got)
	}
}
