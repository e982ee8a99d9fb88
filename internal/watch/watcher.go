package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tbardale/showsync/internal/analyze"
	"github.com/tbardale/showsync/internal/syncq"
)

// State is the lifecycle state of a Watcher.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// workerJoinTimeout bounds how long Stop waits for the worker to drain.
const workerJoinTimeout = 3 * time.Second

// ErrNotRunning is returned by operations that require a running watcher.
var ErrNotRunning = errors.New("watch: not running")

// Observer receives every dispatched ChangeRecord. A panicking observer is
// logged and isolated; it never unwinds into the worker.
type Observer func(ChangeRecord)

// Options configures a Watcher.
type Options struct {
	// Root is the project directory to watch.
	Root string

	// Patterns are root-relative globs selecting files of interest.
	Patterns []string

	// Exclusions are segment patterns rejected at any ancestor level.
	Exclusions []string

	// DebounceDelay is the per-path quiet period (default 2s).
	DebounceDelay time.Duration

	// QueueSize bounds the dispatch queue (default 1000).
	QueueSize int

	// HistorySize caps the recent-change cache (default 500).
	HistorySize int

	// Source supplies raw events. Nil means fsnotify on Root.
	Source EventSource

	// Analyzer fingerprints changed paths. Nil means a fresh unlimited one.
	Analyzer *analyze.Analyzer

	// Sync receives operations for sync-worthy changes. Optional.
	Sync syncq.Queue
}

// Watcher owns the whole pipeline: event source, relevance filter,
// debouncer, dispatch queue, background worker, observers and the
// recent-change history. One synchronization boundary per shared
// structure, each lock scoped to the mutation only.
type Watcher struct {
	opts     Options
	filter   *Filter
	analyzer *analyze.Analyzer

	// lifecycle; stopFlag is atomic so the worker and intake loops never
	// contend on the lifecycle lock Stop holds while joining them.
	mu         sync.Mutex
	state      State
	stopFlag   atomic.Bool
	cancel     context.CancelFunc
	workerDone chan struct{}
	intakeDone chan struct{}
	source     EventSource

	debouncer *Debouncer
	queue     *DispatchQueue
	history   *History

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObsID int
}

// New creates a Watcher. The pipeline stays inert until Start.
func New(opts Options) (*Watcher, error) {
	if opts.Root == "" {
		return nil, errors.New("watch: root is required")
	}
	if len(opts.Patterns) == 0 {
		return nil, errors.New("watch: at least one pattern is required")
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = 2 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 500
	}
	if opts.Analyzer == nil {
		opts.Analyzer = analyze.NewAnalyzer(0)
	}

	w := &Watcher{
		opts:      opts,
		filter:    NewFilter(opts.Root, opts.Patterns, opts.Exclusions),
		analyzer:  opts.Analyzer,
		state:     StateStopped,
		queue:     NewDispatchQueue(opts.QueueSize),
		history:   NewHistory(opts.HistorySize),
		observers: make(map[int]Observer),
	}
	w.debouncer = NewDebouncer(opts.DebounceDelay, w.queue.Push)
	return w, nil
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start initializes the event source, launches intake and worker, and
// transitions to running. Calling Start while not stopped is a no-op with
// a warning.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateStopped {
		watchLog.Warn("start_ignored", slog.String("state", string(w.state)))
		return nil
	}
	w.state = StateStarting
	w.stopFlag.Store(false)

	source := w.opts.Source
	if source == nil {
		var err error
		source, err = NewFSSource(w.skipDir)
		if err != nil {
			w.state = StateStopped
			return fmt.Errorf("watch: create source: %w", err)
		}
	}

	events, err := source.Subscribe(w.opts.Root)
	if err != nil {
		w.state = StateStopped
		if w.opts.Source == nil {
			_ = source.Close()
		}
		return fmt.Errorf("watch: subscribe %s: %w", w.opts.Root, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.source = source
	w.cancel = cancel
	w.workerDone = make(chan struct{})
	w.intakeDone = make(chan struct{})

	go w.intakeLoop(events, w.intakeDone)
	go w.workerLoop(ctx, w.workerDone)

	w.state = StateRunning
	watchLog.Info("watch_started", slog.String("root", w.opts.Root))
	return nil
}

// Stop shuts the pipeline down: stop flag first so in-flight callbacks
// exit early, then the source, then a bounded worker join, then pending
// timers and queued state. Idempotent and safe for concurrent callers;
// calling it before Start returns immediately.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateStopped {
		return nil
	}
	w.state = StateStopping
	w.stopFlag.Store(true)

	if w.source != nil {
		_ = w.source.Close()
		w.source = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}

	if w.workerDone != nil {
		select {
		case <-w.workerDone:
		case <-time.After(workerJoinTimeout):
			watchLog.Warn("worker_join_timeout",
				slog.Duration("timeout", workerJoinTimeout))
		}
		w.workerDone = nil
	}
	if w.intakeDone != nil {
		select {
		case <-w.intakeDone:
		case <-time.After(workerJoinTimeout):
			watchLog.Warn("intake_join_timeout",
				slog.Duration("timeout", workerJoinTimeout))
		}
		w.intakeDone = nil
	}

	w.debouncer.CancelAll()
	w.queue.Clear()

	w.state = StateStopped
	watchLog.Info("watch_stopped", slog.String("root", w.opts.Root))
	return nil
}

// AddWatchPath registers an additional path with the running source.
func (w *Watcher) AddWatchPath(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateRunning || w.source == nil {
		return ErrNotRunning
	}
	return w.source.Add(path)
}

// RemoveWatchPath unregisters a path from the running source.
func (w *Watcher) RemoveWatchPath(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateRunning || w.source == nil {
		return ErrNotRunning
	}
	return w.source.Remove(path)
}

// AddChangeObserver registers fn for every dispatched record and returns
// an id for removal.
func (w *Watcher) AddChangeObserver(fn Observer) int {
	w.obsMu.Lock()
	defer w.obsMu.Unlock()
	w.nextObsID++
	id := w.nextObsID
	w.observers[id] = fn
	return id
}

// RemoveChangeObserver unregisters the observer with the given id.
func (w *Watcher) RemoveChangeObserver(id int) {
	w.obsMu.Lock()
	defer w.obsMu.Unlock()
	delete(w.observers, id)
}

// GetRecentChanges returns cached records with Timestamp >= since.
func (w *Watcher) GetRecentChanges(since time.Time) []ChangeRecord {
	return w.history.Since(since)
}

// QueueDepth reports the current dispatch queue length.
func (w *Watcher) QueueDepth() int {
	return w.queue.Len()
}

func (w *Watcher) skipDir(name string) bool {
	for _, pattern := range w.opts.Exclusions {
		if matchSegment(pattern, name) {
			return true
		}
	}
	return false
}

// intakeLoop runs in the source's delivery context: relevance check and
// debounce registration only, no I/O.
func (w *Watcher) intakeLoop(events <-chan RawEvent, done chan struct{}) {
	defer close(done)

	for event := range events {
		if w.stopFlag.Load() {
			return
		}

		if !w.filter.Relevant(event.Path) {
			continue
		}
		w.debouncer.Register(event.Path, event.Kind)
	}
}

// workerLoop is the single background worker draining the dispatch queue.
func (w *Watcher) workerLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		entry, ok := w.queue.Pop(ctx)
		if !ok {
			return
		}

		if w.stopFlag.Load() {
			return
		}

		w.process(ctx, entry)
	}
}

// process enriches one queue entry into a ChangeRecord and dispatches it.
func (w *Watcher) process(ctx context.Context, entry QueueEntry) {
	var analysis analyze.Analysis

	switch entry.Kind {
	case KindDeleted, KindMoved:
		analysis = w.analyzer.AnalyzeDeleted(entry.Path)
	default:
		var err error
		analysis, err = w.analyzer.Analyze(ctx, entry.Path)
		if err != nil {
			// Transient read failure: hash stays absent, pipeline moves on.
			watchLog.Debug("analyze_degraded",
				slog.String("path", entry.Path),
				slog.String("error", err.Error()),
			)
		}
	}

	if analysis.Unchanged {
		// Metadata-only touch; nothing to tell anyone.
		watchLog.Debug("change_suppressed_unchanged", slog.String("path", entry.Path))
		return
	}

	deleted := entry.Kind == KindDeleted || entry.Kind == KindMoved

	relPath := entry.Path
	if rel, err := filepath.Rel(w.opts.Root, entry.Path); err == nil {
		relPath = rel
	}
	score := analyze.Score(relPath, analysis.Category, entry.Kind == KindCreated)

	significant := analyze.IsSignificant(score)
	if analysis.Category == analyze.CategoryDocumentation && !analysis.DocStructural {
		// Whitespace-only doc edit: hashed differently, but not worth acting on.
		significant = false
	}
	if deleted {
		significant = true
	}

	rec := ChangeRecord{
		Path:                entry.Path,
		Kind:                entry.Kind,
		Timestamp:           time.Now(),
		Size:                analysis.Size,
		ContentHash:         analysis.ContentHash,
		PreviousContentHash: analysis.PreviousContentHash,
		Significant:         significant,
		Score:               score,
		Category:            analysis.Category,
		Media:               analysis.Media,
	}
	rec.AffectsSync = significant

	w.history.Add(rec)
	w.notifyObservers(rec)

	if rec.AffectsSync && w.opts.Sync != nil {
		w.enqueueSync(rec)
	}
}

func (w *Watcher) notifyObservers(rec ChangeRecord) {
	w.obsMu.Lock()
	observers := make([]Observer, 0, len(w.observers))
	for _, fn := range w.observers {
		observers = append(observers, fn)
	}
	w.obsMu.Unlock()

	for _, fn := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					watchLog.Warn("observer_panic",
						slog.String("path", rec.Path),
						slog.Any("panic", r),
					)
				}
			}()
			fn(rec)
		}()
	}
}

// enqueueSync maps a record to a sync operation and hands it off,
// fire-and-forget. A panicking collaborator is contained here.
func (w *Watcher) enqueueSync(rec ChangeRecord) {
	defer func() {
		if r := recover(); r != nil {
			watchLog.Warn("sync_enqueue_panic",
				slog.String("path", rec.Path),
				slog.Any("panic", r),
			)
		}
	}()

	opType := syncq.OpMetadataUpdate
	switch rec.Category {
	case analyze.CategoryDocumentation:
		opType = syncq.OpDocumentationUpdate
	case analyze.CategoryMedia:
		opType = syncq.OpMediaUpload
	}

	op := syncq.NewOperation(opType, targetField(rec), rec.Path, priorityFor(rec.Score))
	w.opts.Sync.Enqueue(op)
}

// targetField names the remote field a change maps to.
func targetField(rec ChangeRecord) string {
	base := filepath.Base(rec.Path)
	switch rec.Category {
	case analyze.CategoryDocumentation:
		return "description"
	case analyze.CategoryMedia:
		return "media"
	case analyze.CategoryMetadata:
		return "metadata"
	default:
		return base
	}
}

// priorityFor maps a 0..1 score onto a 1..10 priority.
func priorityFor(score float64) int {
	p := int(score*10 + 0.5)
	if p < 1 {
		p = 1
	}
	if p > 10 {
		p = 10
	}
	return p
}
