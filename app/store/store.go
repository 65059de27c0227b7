// Package store provides SQLite persistence for QA session results.
// Each session (probe run, snapshot run or e2e run) is a row in runs,
// individual checks within the session go to checks. SQLite runs in WAL
// mode for better concurrency between recorder and viewer.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// Run kinds
const (
	KindProbe    = "probe"
	KindSnapshot = "snapshot"
	KindE2E      = "e2e"
)

// Check statuses
const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusSkip = "skip"
)

// Run represents a single QA session against a target
type Run struct {
	ID         int64     `db:"id"`
	Kind       string    `db:"kind"`
	Target     string    `db:"target"`
	Host       string    `db:"host"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Passed     int       `db:"passed"`
	Failed     int       `db:"failed"`
	Skipped    int       `db:"skipped"`
}

// Check represents a single check outcome within a run
type Check struct {
	ID         int64     `db:"id"`
	RunID      int64     `db:"run_id"`
	Name       string    `db:"name"`
	Kind       string    `db:"kind"`
	Status     string    `db:"status"`
	Detail     string    `db:"detail"`
	DurationMs int64     `db:"duration_ms"`
	Screenshot string    `db:"screenshot"`
	CreatedAt  time.Time `db:"created_at"`
}

// SQLiteStore implements results persistence using SQLite
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the results database
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			target TEXT NOT NULL,
			host TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			passed INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS checks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			screenshot TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_run_id ON checks(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// CreateRun inserts a new run record and returns its id
func (s *SQLiteStore) CreateRun(ctx context.Context, run Run) (int64, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO runs (kind, target, host, started_at, finished_at)
		 VALUES (:kind, :target, :host, :started_at, :finished_at)`, run)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

// FinishRun records the final counters and completion time for a run
func (s *SQLiteStore) FinishRun(ctx context.Context, id int64, passed, failed, skipped int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, passed = ?, failed = ?, skipped = ? WHERE id = ?`,
		time.Now(), passed, failed, skipped, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

// RecordCheck saves a check outcome for a run
func (s *SQLiteStore) RecordCheck(ctx context.Context, check Check) error {
	if check.CreatedAt.IsZero() {
		check.CreatedAt = time.Now()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO checks (run_id, name, kind, status, detail, duration_ms, screenshot, created_at)
		 VALUES (:run_id, :name, :kind, :status, :detail, :duration_ms, :screenshot, :created_at)`, check)
	if err != nil {
		return fmt.Errorf("failed to record check %q: %w", check.Name, err)
	}
	return nil
}

// GetRun loads a single run by id
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	return run, nil
}

// LastRun returns the most recently started run, optionally filtered by kind
func (s *SQLiteStore) LastRun(ctx context.Context, kind string) (Run, error) {
	var run Run
	var err error
	if kind == "" {
		err = s.db.GetContext(ctx, &run, `SELECT * FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	} else {
		err = s.db.GetContext(ctx, &run,
			`SELECT * FROM runs WHERE kind = ? ORDER BY started_at DESC, id DESC LIMIT 1`, kind)
	}
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("no runs recorded")
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load last run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	runs := []Run{}
	err := s.db.SelectContext(ctx, &runs,
		`SELECT * FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetChecks returns all checks for a run in insertion order
func (s *SQLiteStore) GetChecks(ctx context.Context, runID int64) ([]Check, error) {
	checks := []Check{}
	err := s.db.SelectContext(ctx, &checks,
		`SELECT * FROM checks WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checks for run %d: %w", runID, err)
	}
	return checks, nil
}

// CleanupOldRuns deletes all but the most recent keep runs and their checks
func (s *SQLiteStore) CleanupOldRuns(ctx context.Context, keep int) error {
	if keep <= 0 {
		return fmt.Errorf("keep must be positive, got %d", keep)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cleanup tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM checks WHERE run_id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?)`,
		keep); err != nil {
		return fmt.Errorf("failed to cleanup checks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?)`,
		keep); err != nil {
		return fmt.Errorf("failed to cleanup runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cleanup: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
