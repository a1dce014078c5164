// Package journal records a history of build runs and the jobs within
// them to a SQLite database, for the "remake history" command. It is
// strictly observational: nothing here feeds back into scheduling.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Journal records build runs to a SQLite database.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path and
// ensures its schema exists.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(pctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			targets TEXT NOT NULL,
			failed BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			run_id TEXT NOT NULL REFERENCES runs(id),
			job_id INTEGER NOT NULL,
			targets TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			success BOOLEAN
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_run_id ON jobs(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap journal schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error { return j.db.Close() }

// Run is a handle for one top-level remake invocation's journal entry.
type Run struct {
	ID string
}

// StartRun records the beginning of a build run, returning its id for
// use in subsequent StartJob/FinishJob/FinishRun calls.
func (j *Journal) StartRun(ctx context.Context, targets []string) (Run, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, targets, failed) VALUES (?, ?, ?, 0)`,
		id, time.Now().UTC(), joinTargets(targets))
	if err != nil {
		return Run{}, fmt.Errorf("start run: %w", err)
	}
	return Run{ID: id}, nil
}

// FinishRun records a build run's completion.
func (j *Journal) FinishRun(ctx context.Context, run Run, failed bool) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, failed = ? WHERE id = ?`,
		time.Now().UTC(), failed, run.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// StartJob records the start of a single job within run.
func (j *Journal) StartJob(ctx context.Context, run Run, jobID int, targets []string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO jobs (run_id, job_id, targets, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, jobID, joinTargets(targets), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	return nil
}

// FinishJob records a job's completion.
func (j *Journal) FinishJob(ctx context.Context, run Run, jobID int, success bool) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE jobs SET finished_at = ?, success = ? WHERE run_id = ? AND job_id = ?`,
		time.Now().UTC(), success, run.ID, jobID)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// RunSummary is one row of "remake history" output.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Targets    string
	Failed     bool
	JobCount   int
}

// RecentRuns returns the most recent limit runs, newest first.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.finished_at, r.targets, r.failed,
		       (SELECT COUNT(*) FROM jobs WHERE jobs.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.FinishedAt, &s.Targets, &s.Failed, &s.JobCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func joinTargets(targets []string) string {
	out := ""
	for i, t := range targets {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
