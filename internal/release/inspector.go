// Package release inspects the project's version-control history for new
// tags and commits, independent of the file-event pipeline. Purely
// additive: every failure degrades to an empty result.
package release

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tbardale/showsync/internal/logging"
)

var releaseLog = logging.ForComponent(logging.CompRelease)

// EventKind distinguishes tag and commit events.
type EventKind string

const (
	KindTag    EventKind = "tag"
	KindCommit EventKind = "commit"
)

// Event is one newly observed tag or commit.
type Event struct {
	Kind      EventKind
	RefName   string
	Revision  string
	Message   string
	Timestamp time.Time
}

// gitTimeout bounds each git invocation.
const gitTimeout = 10 * time.Second

// Inspector tracks which tags and commits have been seen and reports only
// the new ones on each Check. Concurrent Check calls are collapsed into a
// single git inspection via singleflight.
type Inspector struct {
	repoDir string
	depth   int

	mu   sync.Mutex
	seen map[string]bool

	group           singleflight.Group
	unavailableOnce sync.Once
}

// NewInspector creates an inspector for the repository at repoDir,
// looking at up to depth recent commits per check.
func NewInspector(repoDir string, depth int) *Inspector {
	if depth <= 0 {
		depth = 20
	}
	return &Inspector{
		repoDir: repoDir,
		depth:   depth,
		seen:    make(map[string]bool),
	}
}

// Check returns tags and commits not seen by a previous call. A missing
// git binary or a non-repository directory yields nil, logged once.
func (i *Inspector) Check(ctx context.Context) []Event {
	v, _, _ := i.group.Do("check", func() (any, error) {
		return i.check(ctx), nil
	})
	events, _ := v.([]Event)
	return events
}

// Prime records the current history without emitting events, so the next
// Check reports only what happened afterwards.
func (i *Inspector) Prime(ctx context.Context) {
	_ = i.Check(ctx)
}

func (i *Inspector) check(ctx context.Context) []Event {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	if !isRepo(ctx, i.repoDir) {
		i.unavailableOnce.Do(func() {
			releaseLog.Warn("release_inspection_unavailable",
				slog.String("dir", i.repoDir))
		})
		return nil
	}

	var events []Event
	events = append(events, i.newTags(ctx)...)
	events = append(events, i.newCommits(ctx)...)
	return events
}

func isRepo(ctx context.Context, dir string) bool {
	return exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--git-dir").Run() == nil
}

func (i *Inspector) newTags(ctx context.Context) []Event {
	out, err := exec.CommandContext(ctx, "git", "-C", i.repoDir,
		"for-each-ref", "refs/tags",
		"--sort=creatordate",
		"--format=%(refname:short)%09%(objectname)%09%(creatordate:unix)%09%(subject)",
	).Output()
	if err != nil {
		return nil
	}

	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) < 3 {
			continue
		}
		key := "tag:" + parts[0]

		i.mu.Lock()
		known := i.seen[key]
		i.seen[key] = true
		i.mu.Unlock()
		if known {
			continue
		}

		event := Event{
			Kind:      KindTag,
			RefName:   parts[0],
			Revision:  parts[1],
			Timestamp: parseUnix(parts[2]),
		}
		if len(parts) == 4 {
			event.Message = parts[3]
		}
		events = append(events, event)
	}
	return events
}

func (i *Inspector) newCommits(ctx context.Context) []Event {
	out, err := exec.CommandContext(ctx, "git", "-C", i.repoDir,
		"log", "-n", strconv.Itoa(i.depth),
		"--format=%H%x09%ct%x09%s",
	).Output()
	if err != nil {
		return nil
	}

	var events []Event
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	// git log is newest-first; walk backwards so events come out oldest-first.
	for idx := len(lines) - 1; idx >= 0; idx-- {
		parts := strings.SplitN(lines[idx], "\t", 3)
		if len(parts) < 2 {
			continue
		}
		key := "commit:" + parts[0]

		i.mu.Lock()
		known := i.seen[key]
		i.seen[key] = true
		i.mu.Unlock()
		if known {
			continue
		}

		event := Event{
			Kind:      KindCommit,
			Revision:  parts[0],
			Timestamp: parseUnix(parts[1]),
		}
		if len(parts) == 3 {
			event.Message = parts[2]
		}
		events = append(events, event)
	}
	return events
}

func parseUnix(s string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// Poll runs Check at the given interval until ctx is cancelled, passing
// any new events to fn. Blocks; run in a goroutine.
func (i *Inspector) Poll(ctx context.Context, interval time.Duration, fn func([]Event)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if events := i.Check(ctx); len(events) > 0 {
				fn(events)
			}
		}
	}
}
