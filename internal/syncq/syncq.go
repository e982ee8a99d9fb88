// Package syncq is the boundary to the synchronization consumer: a queue
// of sync operations constructed from change records. Enqueue never blocks
// the caller; persistence and retry are the consumer side's concern.
package syncq

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tbardale/showsync/internal/logging"
)

var syncLog = logging.ForComponent(logging.CompSync)

// OperationType classifies what the sync consumer should do.
type OperationType string

const (
	OpMetadataUpdate      OperationType = "metadata_update"
	OpMediaUpload         OperationType = "media_upload"
	OpDocumentationUpdate OperationType = "documentation_update"
)

// Operation is one unit of sync work. Ownership transfers to the queue on
// Enqueue; the producer never sees it again.
type Operation struct {
	ID          string
	Type        OperationType
	TargetField string
	SourcePath  string
	Priority    int
	CreatedAt   time.Time
}

// NewOperation builds an operation with a fresh ID and timestamp.
func NewOperation(opType OperationType, targetField, sourcePath string, priority int) Operation {
	return Operation{
		ID:          uuid.NewString(),
		Type:        opType,
		TargetField: targetField,
		SourcePath:  sourcePath,
		Priority:    priority,
		CreatedAt:   time.Now(),
	}
}

// Queue is what the change pipeline sees of the sync side.
type Queue interface {
	// Enqueue hands an operation off, fire-and-forget. Must not block.
	Enqueue(op Operation)
}

// ErrClosed is returned by Store operations after Close.
var ErrClosed = errors.New("syncq: store closed")

// Store is a durable Queue backed by SQLite. Enqueue pushes into a
// buffered intake channel consumed by a single writer goroutine, so a
// slow disk never blocks the producing worker; intake overflow drops the
// operation with a warning (downstream full-resync reconciles gaps).
type Store struct {
	db       *sql.DB
	intake   chan Operation
	done     chan struct{}
	inflight atomic.Int64

	mu     sync.Mutex
	closed bool
}

// Open creates or opens the queue database at dbPath with WAL mode and a
// busy timeout, migrates the schema, and starts the writer.
func Open(dbPath string, buffer int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("syncq: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("syncq: open: %w", err)
	}

	// WAL allows the consumer process to read while we write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("syncq: wal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("syncq: busy timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	if buffer <= 0 {
		buffer = 256
	}
	s := &Store{
		db:     db,
		intake: make(chan Operation, buffer),
		done:   make(chan struct{}),
	}
	go s.writerLoop()
	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_queue (
			id           TEXT PRIMARY KEY,
			op_type      TEXT NOT NULL,
			target_field TEXT NOT NULL,
			source_path  TEXT NOT NULL,
			priority     INTEGER NOT NULL DEFAULT 0,
			status       TEXT NOT NULL DEFAULT 'pending',
			created_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sync_queue_status
			ON sync_queue(status, priority DESC, created_at);
	`)
	if err != nil {
		return fmt.Errorf("syncq: migrate: %w", err)
	}
	return nil
}

// Enqueue hands off an operation without blocking. Dropped (and logged)
// when the intake buffer is full or the store is closed.
func (s *Store) Enqueue(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		syncLog.Warn("enqueue_after_close", slog.String("path", op.SourcePath))
		return
	}

	// The send cannot block (buffered channel, default arm drops), so it
	// stays under the lock; Close closes intake under the same lock, which
	// rules out a send racing the close.
	s.inflight.Add(1)
	select {
	case s.intake <- op:
	default:
		s.inflight.Add(-1)
		syncLog.Warn("sync_intake_full",
			slog.String("path", op.SourcePath),
			slog.String("type", string(op.Type)),
		)
	}
}

func (s *Store) writerLoop() {
	defer close(s.done)
	for op := range s.intake {
		if err := s.insert(op); err != nil {
			syncLog.Warn("sync_persist_failed",
				slog.String("id", op.ID),
				slog.String("error", err.Error()),
			)
		}
		s.inflight.Add(-1)
	}
}

func (s *Store) insert(op Operation) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_queue
			(id, op_type, target_field, source_path, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?)`,
		op.ID, string(op.Type), op.TargetField, op.SourcePath, op.Priority,
		op.CreatedAt.Unix(),
	)
	return err
}

// Pending returns queued operations, highest priority first.
func (s *Store) Pending() ([]Operation, error) {
	rows, err := s.db.Query(`
		SELECT id, op_type, target_field, source_path, priority, created_at
		FROM sync_queue WHERE status = 'pending'
		ORDER BY priority DESC, created_at`)
	if err != nil {
		return nil, fmt.Errorf("syncq: pending: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var op Operation
		var opType string
		var created int64
		if err := rows.Scan(&op.ID, &opType, &op.TargetField, &op.SourcePath, &op.Priority, &created); err != nil {
			return nil, fmt.Errorf("syncq: scan: %w", err)
		}
		op.Type = OperationType(opType)
		op.CreatedAt = time.Unix(created, 0)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// MarkDone flags an operation as completed by the consumer.
func (s *Store) MarkDone(id string) error {
	res, err := s.db.Exec(`UPDATE sync_queue SET status = 'done' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("syncq: mark done: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("syncq: mark done: unknown operation %s", id)
	}
	return nil
}

// Flush blocks until every operation enqueued so far has been persisted
// or timeout elapses. Intended for tests and orderly shutdown.
func (s *Store) Flush(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.inflight.Load() == 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// Close drains the intake, stops the writer and closes the database.
// Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.intake)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		syncLog.Warn("sync_writer_join_timeout")
	}

	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}
