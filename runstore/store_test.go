package runstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

var runColumns = []string{
	"id", "property_ref", "status", "error", "tokens_in", "tokens_out",
	"generator_calls", "warnings", "started_at", "ended_at",
}

func TestStore_Begin_ShouldUpsertRunningRow(t *testing.T) {
	s, mock := newMock(t)
	started := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs (id, property_ref, status, started_at)")).
		WithArgs("2025-03-15-abc", "123456789", StatusRunning, started).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Begin(context.Background(), Run{ID: "2025-03-15-abc", PropertyRef: "123456789", StartedAt: started})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_Finish_ShouldReturnNotFoundForUnknownRun(t *testing.T) {
	s, mock := newMock(t)
	ended := time.Date(2025, 3, 15, 9, 5, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE runs")).
		WithArgs(StatusFailed, "boom", 0, 0, 0, 0, ended, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Finish(context.Background(), Run{ID: "missing", Status: StatusFailed, Error: "boom", EndedAt: &ended})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_Get_ShouldScanRow(t *testing.T) {
	s, mock := newMock(t)
	started := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	ended := started.Add(90 * time.Second)

	rows := sqlmock.NewRows(runColumns).
		AddRow("r1", "123", StatusCompleted, "", 1200, 800, 6, 1, started, ended)
	mock.ExpectQuery(regexp.QuoteMeta("FROM runs WHERE id = ?")).
		WithArgs("r1").
		WillReturnRows(rows)

	r, err := s.Get(context.Background(), "r1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if r.Status != StatusCompleted || r.TokensIn != 1200 || r.GeneratorCalls != 6 || r.Warnings != 1 {
		t.Errorf("unexpected run: %+v", r)
	}
	if r.EndedAt == nil || !r.EndedAt.Equal(ended) {
		t.Errorf("EndedAt = %v, want %v", r.EndedAt, ended)
	}
}

func TestStore_Get_ShouldMapNoRows(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM runs WHERE id = ?")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_List_ShouldApplyFilter(t *testing.T) {
	s, mock := newMock(t)
	started := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(runColumns).
		AddRow("r2", "123", StatusFailed, "analyze failed", 10, 0, 1, 0, started.Add(time.Hour), nil).
		AddRow("r1", "123", StatusFailed, "plan failed", 20, 5, 2, 0, started, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND property_ref = ? AND status = ? ORDER BY started_at DESC LIMIT ?")).
		WithArgs("123", StatusFailed, 5).
		WillReturnRows(rows)

	runs, err := s.List(context.Background(), Filter{PropertyRef: "123", Status: StatusFailed, Limit: 5})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "r2" || runs[0].EndedAt != nil {
		t.Errorf("unexpected first run: %+v", runs[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	started := time.Now().UTC().Truncate(time.Second)
	if err := s.Begin(ctx, Run{ID: "r1", PropertyRef: "123", StartedAt: started}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Finish(ctx, Run{ID: "r1", Status: StatusCompleted, TokensIn: 5, TokensOut: 7, GeneratorCalls: 2}); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	r, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.Status != StatusCompleted || r.TokensOut != 7 || r.EndedAt == nil {
		t.Errorf("unexpected run: %+v", r)
	}

	// Resuming resets the row to running.
	if err := s.Begin(ctx, Run{ID: "r1", PropertyRef: "123", StartedAt: started}); err != nil {
		t.Fatalf("Begin again: %v", err)
	}
	r, err = s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.Status != StatusRunning || r.EndedAt != nil {
		t.Errorf("resumed run not reset: %+v", r)
	}

	runs, err := s.List(ctx, Filter{})
	if err != nil || len(runs) != 1 {
		t.Fatalf("List = %v, %v", runs, err)
	}

	if err := s.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
