package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/reportflow/artifact"
	"github.com/randalmurphal/reportflow/auth"
	"github.com/randalmurphal/reportflow/engine"
	"github.com/randalmurphal/reportflow/runstore"
)

type fakeRunner struct {
	out  engine.Output
	err  error
	got  engine.Input
	seen bool
}

func (f *fakeRunner) Run(ctx context.Context, in engine.Input) (engine.Output, error) {
	f.got, f.seen = in, true
	return f.out, f.err
}

type fakeRuns map[string]*runstore.Run

func (f fakeRuns) Get(ctx context.Context, id string) (*runstore.Run, error) {
	if r, ok := f[id]; ok {
		return r, nil
	}
	return nil, runstore.ErrNotFound
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(t *testing.T, h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Detail
}

func TestHealth(t *testing.T) {
	s := New(quietLogger(), &fakeRunner{}, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGenerateReport(t *testing.T) {
	runner := &fakeRunner{out: engine.Output{
		RunID:         "2025-03-15-abc",
		FinalDocument: "# Analytics Report\n",
	}}
	s := New(quietLogger(), runner, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/generate-report", `{"property_id":"123456789"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp GenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "2025-03-15-abc", resp.RunID)
	assert.Equal(t, "# Analytics Report\n", resp.FinalReport)
	assert.Equal(t, "123456789", runner.got.PropertyRef)
}

func TestGenerateReport_DefaultProperty(t *testing.T) {
	runner := &fakeRunner{out: engine.Output{RunID: "r"}}
	s := New(quietLogger(), runner, Config{DefaultProperty: "555"})

	rec := do(t, s.Handler(), http.MethodPost, "/generate-report", `{}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "555", runner.got.PropertyRef)
}

func TestGenerateReport_BadRequest(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"malformed json", `{"property_id":`, "invalid request body"},
		{"missing property", `{"property_id":"  "}`, "property_id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			s := New(quietLogger(), runner, Config{})

			rec := do(t, s.Handler(), http.MethodPost, "/generate-report", tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeDetail(t, rec), tt.detail)
			assert.False(t, runner.seen)
		})
	}
}

func TestGenerateReport_RunFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("stage analyze: generator unavailable")}
	s := New(quietLogger(), runner, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/generate-report", `{"property_id":"1"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "stage analyze: generator unavailable", decodeDetail(t, rec))
}

func TestAPIKeyAuth(t *testing.T) {
	key, err := auth.GenerateAPIKey(auth.APIKeyConfig{})
	require.NoError(t, err)
	other, err := auth.GenerateAPIKey(auth.APIKeyConfig{})
	require.NoError(t, err)

	verifier := auth.NewVerifier(auth.APIKeyConfig{}, key.Hash)
	s := New(quietLogger(), &fakeRunner{out: engine.Output{RunID: "r"}}, Config{APIKeys: verifier})
	body := `{"property_id":"1"}`

	tests := []struct {
		name   string
		header http.Header
		status int
	}{
		{"no key", nil, http.StatusUnauthorized},
		{"malformed key", http.Header{"X-Api-Key": {"nope"}}, http.StatusUnauthorized},
		{"unknown key", http.Header{"X-Api-Key": {other.Secret}}, http.StatusUnauthorized},
		{"header key", http.Header{"X-Api-Key": {key.Secret}}, http.StatusOK},
		{"bearer token", http.Header{"Authorization": {"Bearer " + key.Secret}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/generate-report", body, tt.header)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	t.Run("health is open", func(t *testing.T) {
		rec := do(t, s.Handler(), http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetRun_FromRunStore(t *testing.T) {
	runs := fakeRuns{"r1": {ID: "r1", PropertyRef: "1", Status: runstore.StatusCompleted}}
	s := New(quietLogger(), &fakeRunner{}, Config{Runs: runs})

	rec := do(t, s.Handler(), http.MethodGet, "/runs/r1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got runstore.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, runstore.StatusCompleted, got.Status)

	rec = do(t, s.Handler(), http.MethodGet, "/runs/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunAndReport_FromArtifacts(t *testing.T) {
	mgr := artifact.NewManager(artifact.Config{BaseDir: t.TempDir()})
	require.NoError(t, mgr.BeginRun("r2", "42"))
	require.NoError(t, mgr.SaveReport("r2", "# Analytics Report\n"))
	require.NoError(t, mgr.FinishRun("r2", artifact.StatusCompleted, nil))

	s := New(quietLogger(), &fakeRunner{}, Config{Artifacts: mgr})

	rec := do(t, s.Handler(), http.MethodGet, "/runs/r2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got artifact.RunRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "42", got.PropertyRef)
	assert.Equal(t, artifact.StatusCompleted, got.Status)

	rec = do(t, s.Handler(), http.MethodGet, "/runs/r2/report", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "# Analytics Report\n", rec.Body.String())

	rec = do(t, s.Handler(), http.MethodGet, "/runs/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s.Handler(), http.MethodGet, "/runs/nope/report", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRun_NoHistory(t *testing.T) {
	s := New(quietLogger(), &fakeRunner{}, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/runs/r1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s.Handler(), http.MethodGet, "/runs/r1/report", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	s := New(quietLogger(), &fakeRunner{}, Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
