package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileStore stores transcripts as files
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
	active  map[string]*Transcript
}

// StoreConfig holds configuration for transcript storage
type StoreConfig struct {
	BaseDir string
}

// NewFileStore creates a file-based transcript store
func NewFileStore(config StoreConfig) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(config.BaseDir, "runs"), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{
		baseDir: config.BaseDir,
		active:  make(map[string]*Transcript),
	}, nil
}

// StartRun begins a new transcript. A run that was saved before (for
// example by an interrupted run being resumed) is reopened instead.
func (s *FileStore) StartRun(runID string, meta RunMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[runID]; exists {
		return ErrRunAlreadyExists
	}

	if existing, err := Load(s.baseDir, runID); err == nil {
		existing.Metadata.Status = RunStatusRunning
		existing.Metadata.EndedAt = time.Time{}
		existing.Metadata.Error = ""
		s.active[runID] = existing
		return s.writeMetadata(runID, &existing.Metadata)
	}

	t := &Transcript{
		RunID: runID,
		Metadata: Meta{
			RunID:       runID,
			PropertyRef: meta.PropertyRef,
			StartedAt:   time.Now(),
			Status:      RunStatusRunning,
		},
		Turns: make([]Turn, 0),
	}
	if err := os.MkdirAll(filepath.Join(s.baseDir, "runs", runID), 0o755); err != nil {
		return err
	}
	if err := s.writeMetadata(runID, &t.Metadata); err != nil {
		return err
	}
	s.active[runID] = t
	return nil
}

// RecordTurn adds a turn to an active transcript
func (s *FileStore) RecordTurn(runID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[runID]
	if !ok {
		return ErrRunNotStarted
	}
	t.add(turn)
	return nil
}

// EndRun completes a transcript and writes it to disk.
func (s *FileStore) EndRun(runID string, status RunStatus, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[runID]
	if !ok {
		return ErrRunNotStarted
	}

	t.Metadata.Status = status
	t.Metadata.EndedAt = time.Now()
	if runErr != nil {
		t.Metadata.Error = runErr.Error()
	}

	if err := t.Save(s.baseDir); err != nil {
		return err
	}
	if err := s.writeMetadata(runID, &t.Metadata); err != nil {
		return err
	}

	delete(s.active, runID)
	return nil
}

// Load retrieves a complete transcript
func (s *FileStore) Load(runID string) (*Transcript, error) {
	s.mu.RLock()
	if t, ok := s.active[runID]; ok {
		data, err := json.Marshal(t)
		s.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		var cp Transcript
		if err := json.Unmarshal(data, &cp); err != nil {
			return nil, err
		}
		return &cp, nil
	}
	s.mu.RUnlock()

	return Load(s.baseDir, runID)
}

// LoadMetadata retrieves just the metadata
func (s *FileStore) LoadMetadata(runID string) (*Meta, error) {
	s.mu.RLock()
	if t, ok := s.active[runID]; ok {
		meta := t.Metadata
		s.mu.RUnlock()
		return &meta, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.baseDir, "runs", runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List returns metadata for runs matching filter, newest first.
func (s *FileStore) List(filter ListFilter) ([]Meta, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "runs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var results []Meta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.LoadMetadata(entry.Name())
		if err != nil {
			continue
		}
		if filter.PropertyRef != "" && meta.PropertyRef != filter.PropertyRef {
			continue
		}
		if filter.Status != "" && meta.Status != filter.Status {
			continue
		}
		if !filter.After.IsZero() && meta.StartedAt.Before(filter.After) {
			continue
		}
		results = append(results, *meta)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// BaseDir returns the base directory for the store
func (s *FileStore) BaseDir() string {
	return s.baseDir
}

func (s *FileStore) writeMetadata(runID string, meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.baseDir, "runs", runID, "metadata.json"), data, 0o644)
}
