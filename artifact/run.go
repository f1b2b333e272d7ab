package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCanceled  RunStatus = "canceled"
)

// RunRecord is the run.json file kept in every run directory. Retention
// and resume decisions read it.
type RunRecord struct {
	RunID       string    `json:"runId"`
	PropertyRef string    `json:"propertyRef"`
	Status      RunStatus `json:"status"`
	LastStage   string    `json:"lastStage,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	EndedAt     time.Time `json:"endedAt,omitempty"`
}

// BeginRun writes a running record. Resuming an existing run keeps its
// StartedAt.
func (m *Manager) BeginRun(runID, propertyRef string) error {
	now := time.Now().UTC()
	rec, err := m.LoadRun(runID)
	if err != nil {
		rec = &RunRecord{RunID: runID, StartedAt: now}
	}
	rec.PropertyRef = propertyRef
	rec.Status = StatusRunning
	rec.Error = ""
	rec.EndedAt = time.Time{}
	rec.UpdatedAt = now
	return m.writeRun(rec)
}

// MarkStage records the last stage that finished.
func (m *Manager) MarkStage(runID, stage string) error {
	rec, err := m.LoadRun(runID)
	if err != nil {
		return err
	}
	rec.LastStage = stage
	rec.UpdatedAt = time.Now().UTC()
	return m.writeRun(rec)
}

// FinishRun records the final status.
func (m *Manager) FinishRun(runID string, status RunStatus, runErr error) error {
	rec, err := m.LoadRun(runID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rec.Status = status
	rec.UpdatedAt = now
	rec.EndedAt = now
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	return m.writeRun(rec)
}

// LoadRun reads the run record.
func (m *Manager) LoadRun(runID string) (*RunRecord, error) {
	return loadRunRecord(m.RunDir(runID))
}

// ListRuns returns every run record, newest first.
func (m *Manager) ListRuns() ([]RunRecord, error) {
	entries, err := os.ReadDir(filepath.Join(m.baseDir, "runs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := m.LoadRun(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *rec)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

func (m *Manager) writeRun(rec *RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := m.RunDir(rec.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, ArtifactRun), data)
}

func loadRunRecord(runDir string) (*RunRecord, error) {
	data, err := os.ReadFile(filepath.Join(runDir, ArtifactRun))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", filepath.Base(runDir), ErrRunNotFound)
		}
		return nil, err
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ArtifactRun, err)
	}
	return &rec, nil
}
