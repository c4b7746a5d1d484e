// history_store.go - Durable append-only session log with a sync queue

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

type SyncState string

const (
	SYNC_PENDING SyncState = "pending"
	SYNC_SYNCED  SyncState = "synced"
	SYNC_FAILED  SyncState = "failed"
)

// SessionRecord is the immutable outcome of one session. It is created
// once by the SessionController at session end; only the sync fields are
// ever updated afterwards, and only by the store's sync attempts.
type SessionRecord struct {
	ID             string
	StartedAt      time.Time
	ElapsedSeconds int
	Completed      bool
	SyncState      SyncState
	RetryCount     int
}

// SessionPusher submits one record to the remote backend. Submissions
// are idempotent by record ID on the remote side.
type SessionPusher interface {
	Push(ctx context.Context, rec SessionRecord) error
}

// HistoryStore persists session records in a local SQLite log. Writes are
// acknowledged only after they hit the database, so a record survives an
// immediate process kill. Records are never deleted, only appended and
// sync-state-updated. A single mutex serializes Append against
// SyncPending; reads take a snapshot.
type HistoryStore struct {
	mu  sync.Mutex
	db  *sql.DB
	log zerolog.Logger
}

func OpenHistoryStore(path string, log zerolog.Logger) (*HistoryStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &HistoryStore{
		db:  db,
		log: log.With().Str("component", "history").Logger(),
	}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  started_at INTEGER NOT NULL,
  elapsed_seconds INTEGER NOT NULL,
  completed INTEGER NOT NULL,
  sync_state TEXT NOT NULL,
  retry_count INTEGER NOT NULL DEFAULT 0
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

// Append durably persists rec with sync state pending before returning.
// Re-appending an ID that already exists is a no-op, so a retried caller
// cannot duplicate a session.
func (s *HistoryStore) Append(rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const stmt = `
INSERT OR IGNORE INTO sessions (id, started_at, elapsed_seconds, completed, sync_state, retry_count)
VALUES (?, ?, ?, ?, ?, 0);
`
	_, err := s.db.ExecContext(context.Background(), stmt,
		rec.ID,
		rec.StartedAt.Unix(),
		rec.ElapsedSeconds,
		boolToInt(rec.Completed),
		string(SYNC_PENDING),
	)
	if err != nil {
		return fmt.Errorf("append session %s: %w", rec.ID, err)
	}
	return nil
}

// ListAll returns every readable record in insertion order, most recent
// last. Unreadable rows are quarantined: logged, counted, and skipped,
// so one corrupt entry never takes the rest of the log down with it.
func (s *HistoryStore) ListAll() ([]SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(context.Background(), `
SELECT id, started_at, elapsed_seconds, completed, sync_state, retry_count
FROM sessions ORDER BY seq ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var (
		records []SessionRecord
		corrupt int
	)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			corrupt++
			s.log.Warn().Err(err).Msg("skipping unreadable session record")
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return records, fmt.Errorf("iterate sessions: %w", err)
	}
	if corrupt > 0 {
		s.log.Warn().Int("count", corrupt).Msg("quarantined corrupt session records")
	}
	return records, nil
}

// SyncPending pushes every pending or previously failed record through
// the pusher. Success marks the record synced; failure bumps its retry
// count and marks it failed for a later attempt. The store mutex is held
// for the whole pass, so a concurrent Append can neither be lost nor
// submitted twice, and repeated invocations are idempotent: a record
// already synced is never pushed again.
func (s *HistoryStore) SyncPending(ctx context.Context, pusher SessionPusher) (synced, failed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, elapsed_seconds, completed, sync_state, retry_count
FROM sessions WHERE sync_state IN (?, ?) ORDER BY seq ASC;
`, string(SYNC_PENDING), string(SYNC_FAILED))
	if err != nil {
		return 0, 0, fmt.Errorf("select sync queue: %w", err)
	}

	var queue []SessionRecord
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			s.log.Warn().Err(scanErr).Msg("skipping unreadable record in sync queue")
			continue
		}
		queue = append(queue, rec)
	}
	iterErr := rows.Err()
	_ = rows.Close()
	if iterErr != nil {
		return 0, 0, fmt.Errorf("iterate sync queue: %w", iterErr)
	}

	for _, rec := range queue {
		if pushErr := pusher.Push(ctx, rec); pushErr != nil {
			failed++
			if _, uerr := s.db.ExecContext(ctx, `
UPDATE sessions SET sync_state = ?, retry_count = retry_count + 1 WHERE id = ?;
`, string(SYNC_FAILED), rec.ID); uerr != nil {
				s.log.Error().Err(uerr).Str("id", rec.ID).Msg("failed to record sync failure")
			}
			s.log.Warn().Err(pushErr).Str("id", rec.ID).Msg("sync failed, record stays queued")
			continue
		}
		synced++
		if _, uerr := s.db.ExecContext(ctx, `
UPDATE sessions SET sync_state = ? WHERE id = ?;
`, string(SYNC_SYNCED), rec.ID); uerr != nil {
			s.log.Error().Err(uerr).Str("id", rec.ID).Msg("failed to mark record synced")
		}
	}
	return synced, failed, nil
}

func (s *HistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (SessionRecord, error) {
	var (
		rec       SessionRecord
		startedAt int64
		completed int
		state     string
	)
	if err := row.Scan(&rec.ID, &startedAt, &rec.ElapsedSeconds, &completed, &state, &rec.RetryCount); err != nil {
		return SessionRecord{}, err
	}
	switch SyncState(state) {
	case SYNC_PENDING, SYNC_SYNCED, SYNC_FAILED:
		rec.SyncState = SyncState(state)
	default:
		return SessionRecord{}, fmt.Errorf("unknown sync state %q", state)
	}
	if rec.ElapsedSeconds < 0 {
		return SessionRecord{}, fmt.Errorf("negative elapsed %d", rec.ElapsedSeconds)
	}
	rec.StartedAt = time.Unix(startedAt, 0)
	rec.Completed = completed != 0
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
