// Package runlog persists a bounded history of batch runs in SQLite so the
// runs subcommand can show what recent collections did without re-reading
// every hash sidecar.
package runlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dugoutdata/dugout/internal/logger"
)

// Run is one recorded batch execution
type Run struct {
	ID         string
	Collector  string
	StartedAt  time.Time
	FinishedAt time.Time
	Updated    int
	Skipped    int
	Failed     int
	Cancelled  bool
}

// Duration returns the wall time the run took
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store wraps the run-history database
type Store struct {
	db         *sql.DB
	maxEntries int
	logger     *logger.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	collector   TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	updated     INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	cancelled   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`

// Open opens (and if necessary creates) the run log at the given path,
// retaining at most maxEntries runs
func Open(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run log schema: %w", err)
	}

	if maxEntries <= 0 {
		maxEntries = 100
	}

	return &Store{
		db:         db,
		maxEntries: maxEntries,
		logger:     logger.GetLogger().RunLog(),
	}, nil
}

// Record inserts a run and trims history beyond the retention limit
func (s *Store) Record(run Run) error {
	cancelled := 0
	if run.Cancelled {
		cancelled = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, collector, started_at, finished_at, updated, skipped, failed, cancelled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Collector,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Updated, run.Skipped, run.Failed, cancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	if _, err := s.db.Exec(
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`,
		s.maxEntries,
	); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to trim run history")
	}

	return nil
}

// Recent returns the most recent runs, newest first
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 || limit > s.maxEntries {
		limit = s.maxEntries
	}

	rows, err := s.db.Query(
		`SELECT id, collector, started_at, finished_at, updated, skipped, failed, cancelled
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		var cancelled int
		if err := rows.Scan(&r.ID, &r.Collector, &started, &finished, &r.Updated, &r.Skipped, &r.Failed, &cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		r.Cancelled = cancelled != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
