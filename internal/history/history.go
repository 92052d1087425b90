// Package history keeps a SQLite log of scenario runs.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cboone/playbook"
)

//go:embed schema.sql
var schemaSQL string

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// Run is one recorded scenario result.
type Run struct {
	RunID      string
	Scenario   string
	Status     playbook.Status
	FailedStep int
	StepName   string
	Error      string
	Started    time.Time
	Elapsed    time.Duration
}

// Store is a run history database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, creating its directory when
// needed.
func Open(path string) (*Store, error) {
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores every result of a suite in one transaction.
func (s *Store) Record(ctx context.Context, suite playbook.SuiteResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, r := range suite.Results {
		run := fromResult(r)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO runs (run_id, scenario, status, failed_step, step_name, error, started_at, elapsed_ns)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Scenario, run.Status.String(), run.FailedStep, run.StepName, run.Error,
			run.Started.UnixNano(), int64(run.Elapsed),
		)
		if err != nil {
			return fmt.Errorf("history: record %q: %w", r.Scenario, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, scenario, status, failed_step, step_name, error, started_at, elapsed_ns
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			status  string
			started int64
			elapsed int64
		)
		if err := rows.Scan(&run.RunID, &run.Scenario, &status, &run.FailedStep, &run.StepName, &run.Error, &started, &elapsed); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if err := run.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, fmt.Errorf("history: run %s: %w", run.RunID, err)
		}
		run.Started = time.Unix(0, started)
		run.Elapsed = time.Duration(elapsed)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return runs, nil
}

func fromResult(r playbook.Result) Run {
	run := Run{
		RunID:      r.RunID,
		Scenario:   r.Scenario,
		Status:     r.Status,
		FailedStep: r.FailedStep,
		Started:    r.Started,
		Elapsed:    r.Elapsed,
	}
	if r.FailedStep >= 0 && r.FailedStep < len(r.Steps) {
		run.StepName = r.Steps[r.FailedStep].Name
	}
	if err := r.Err(); err != nil {
		run.Error, _, _ = strings.Cut(err.Error(), "\n")
	}
	return run
}
