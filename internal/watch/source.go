package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tbardale/showsync/internal/logging"
)

var watchLog = logging.ForComponent(logging.CompWatch)

// EventSource abstracts the OS-level watch facility so the pipeline can be
// driven by a fake in tests.
type EventSource interface {
	// Subscribe starts delivery of raw events for the tree rooted at root.
	// The returned channel is closed when the source shuts down.
	Subscribe(root string) (<-chan RawEvent, error)

	// Add registers an additional path for watching.
	Add(path string) error

	// Remove unregisters a previously added path.
	Remove(path string) error

	// Close stops event delivery and releases OS resources. Idempotent.
	Close() error
}

// FSSource is the fsnotify-backed event source. It watches every
// directory under the root recursively (fsnotify is not recursive by
// itself) and picks up directories created after Subscribe.
type FSSource struct {
	skipDir func(name string) bool

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	events  chan RawEvent
	closed  bool
}

// NewFSSource creates an fsnotify source. skipDir, when non-nil, is asked
// for every directory base name during the recursive walk; returning true
// keeps that subtree out of the watch set (build caches, VCS internals).
func NewFSSource(skipDir func(name string) bool) (*FSSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FSSource{
		skipDir: skipDir,
		watcher: watcher,
		events:  make(chan RawEvent, 256),
	}, nil
}

// Subscribe walks root, adds every directory to the watch set and starts
// the translation loop.
func (s *FSSource) Subscribe(root string) (<-chan RawEvent, error) {
	if err := s.addTree(root); err != nil {
		return nil, err
	}
	go s.loop()
	return s.events, nil
}

// Add watches path (recursively, if it is a directory).
func (s *FSSource) Add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return s.addTree(path)
	}
	return s.watcher.Add(path)
}

// Remove stops watching path.
func (s *FSSource) Remove(path string) error {
	return s.watcher.Remove(path)
}

// Close shuts the underlying watcher down. The event channel closes once
// the loop drains.
func (s *FSSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.watcher.Close()
}

func (s *FSSource) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Tree may mutate under the walk; skip what vanished.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if s.skipDir != nil && path != root && s.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := s.watcher.Add(path); err != nil {
			watchLog.Warn("watch_add_failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
}

func (s *FSSource) loop() {
	defer close(s.events)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			watchLog.Warn("watch_source_error", slog.String("error", err.Error()))
		}
	}
}

func (s *FSSource) handle(event fsnotify.Event) {
	kind, ok := mapOp(event.Op)
	if !ok {
		return
	}

	// New directories must join the watch set or events under them are lost.
	if kind == KindCreated {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if s.skipDir == nil || !s.skipDir(filepath.Base(event.Name)) {
				_ = s.addTree(event.Name)
			}
			return
		}
	}

	raw := RawEvent{Path: event.Name, Kind: kind, ObservedAt: time.Now()}
	select {
	case s.events <- raw:
	default:
		// Intake saturated; the debounce layer tolerates gaps.
		watchLog.Warn("source_channel_full", slog.String("path", event.Name))
	}
}

func mapOp(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return KindCreated, true
	case op&fsnotify.Write != 0:
		return KindModified, true
	case op&fsnotify.Remove != 0:
		return KindDeleted, true
	case op&fsnotify.Rename != 0:
		return KindMoved, true
	default:
		// Chmod and friends carry no content change.
		return "", false
	}
}
