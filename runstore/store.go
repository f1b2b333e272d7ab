// Package runstore keeps the history of report runs in SQLite.
//
// The artifact store holds the files of each run; runstore holds one row per
// run so history can be listed and filtered without walking the data
// directory.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrNotFound is returned when a run has no row.
var ErrNotFound = errors.New("run not found")

// Status values stored in the status column.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Run is one row of the runs table.
type Run struct {
	ID             string     `json:"run_id"`
	PropertyRef    string     `json:"property_id"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
	TokensIn       int        `json:"tokens_in"`
	TokensOut      int        `json:"tokens_out"`
	GeneratorCalls int        `json:"generator_calls"`
	Warnings       int        `json:"warnings"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	property_ref    TEXT NOT NULL,
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT '',
	tokens_in       INTEGER NOT NULL DEFAULT 0,
	tokens_out      INTEGER NOT NULL DEFAULT 0,
	generator_calls INTEGER NOT NULL DEFAULT 0,
	warnings        INTEGER NOT NULL DEFAULT 0,
	started_at      TIMESTAMP NOT NULL,
	ended_at        TIMESTAMP
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);`

// Store reads and writes the runs table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. The caller applies the schema with Migrate.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the runs table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate run database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin inserts a running row, or resets an existing row to running when a
// run is resumed.
func (s *Store) Begin(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, property_ref, status, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = excluded.status, error = '', ended_at = NULL`,
		r.ID, r.PropertyRef, StatusRunning, r.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("begin run %s: %w", r.ID, err)
	}
	return nil
}

// Finish records the outcome of a run.
func (s *Store) Finish(ctx context.Context, r Run) error {
	ended := time.Now().UTC()
	if r.EndedAt != nil {
		ended = r.EndedAt.UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, error = ?, tokens_in = ?, tokens_out = ?, generator_calls = ?, warnings = ?, ended_at = ?
		WHERE id = ?`,
		r.Status, r.Error, r.TokensIn, r.TokensOut, r.GeneratorCalls, r.Warnings, ended, r.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

const selectRuns = `
	SELECT id, property_ref, status, error, tokens_in, tokens_out, generator_calls, warnings, started_at, ended_at
	FROM runs`

// Get returns one run.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// Filter narrows List.
type Filter struct {
	PropertyRef string
	Status      string
	Limit       int // 0 means no limit
}

// List returns runs, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	query := selectRuns + ` WHERE 1=1`
	var args []any
	if f.PropertyRef != "" {
		query += ` AND property_ref = ?`
		args = append(args, f.PropertyRef)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY started_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Delete removes a run's row.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r     Run
		ended sql.NullTime
	)
	err := sc.Scan(&r.ID, &r.PropertyRef, &r.Status, &r.Error,
		&r.TokensIn, &r.TokensOut, &r.GeneratorCalls, &r.Warnings,
		&r.StartedAt, &ended)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		r.EndedAt = &t
	}
	return &r, nil
}
