package artifact

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Artifact errors
var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrRunNotFound      = errors.New("run not found")
)

// Standard artifact names
const (
	ArtifactState  = "state.json" // workflow checkpoint
	ArtifactReport = "report.md"  // compiled document
	ArtifactRun    = "run.json"   // run record, stored uncompressed beside artifacts/
)

// DefaultCompressAbove is the size from which artifacts are gzipped.
const DefaultCompressAbove = 10 * 1024

// Config holds configuration for artifact management
type Config struct {
	BaseDir       string // Base directory for storage (default: ".reportflow")
	CompressAbove int64  // Compress artifacts at or above this size (default: 10KB)
}

// Manager stores per-run artifacts under <BaseDir>/runs/<runID>/artifacts.
// It is safe for concurrent use.
type Manager struct {
	baseDir       string
	compressAbove int64
	mu            sync.Mutex
}

// Info describes a stored artifact
type Info struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewManager creates an artifact manager with the given config
func NewManager(cfg Config) *Manager {
	if cfg.BaseDir == "" {
		cfg.BaseDir = ".reportflow"
	}
	if cfg.CompressAbove == 0 {
		cfg.CompressAbove = DefaultCompressAbove
	}
	return &Manager{
		baseDir:       cfg.BaseDir,
		compressAbove: cfg.CompressAbove,
	}
}

// BaseDir returns the base directory
func (m *Manager) BaseDir() string { return m.baseDir }

// RunDir returns the directory for a run
func (m *Manager) RunDir(runID string) string {
	return filepath.Join(m.baseDir, "runs", runID)
}

// ArtifactDir returns the artifacts directory for a run
func (m *Manager) ArtifactDir(runID string) string {
	return filepath.Join(m.RunDir(runID), "artifacts")
}

// SaveArtifact writes an artifact, gzipping it at or above the threshold.
// The write is atomic: readers see the old or the new content.
func (m *Manager) SaveArtifact(runID, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.ArtifactDir(runID), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if int64(len(data)) >= m.compressAbove {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return err
		}
		if err := gz.Close(); err != nil {
			return err
		}
		if err := writeAtomic(path+".gz", buf.Bytes()); err != nil {
			return err
		}
		os.Remove(path)
		return nil
	}

	if err := writeAtomic(path, data); err != nil {
		return err
	}
	os.Remove(path + ".gz")
	return nil
}

// LoadArtifact loads an artifact (handles compression transparently)
func (m *Manager) LoadArtifact(runID, name string) ([]byte, error) {
	path := filepath.Join(m.ArtifactDir(runID), name)

	if data, err := loadCompressed(path + ".gz"); err == nil {
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", runID, name, ErrArtifactNotFound)
		}
		return nil, err
	}
	return data, nil
}

// DeleteArtifact removes an artifact
func (m *Manager) DeleteArtifact(runID, name string) error {
	path := filepath.Join(m.ArtifactDir(runID), name)
	errGz := os.Remove(path + ".gz")
	err := os.Remove(path)
	if os.IsNotExist(err) && os.IsNotExist(errGz) {
		return ErrArtifactNotFound
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// HasArtifact checks if an artifact exists
func (m *Manager) HasArtifact(runID, name string) bool {
	path := filepath.Join(m.ArtifactDir(runID), name)
	if _, err := os.Stat(path + ".gz"); err == nil {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

// ListArtifacts returns all artifacts for a run, sorted by name
func (m *Manager) ListArtifacts(runID string) ([]Info, error) {
	entries, err := os.ReadDir(m.ArtifactDir(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var artifacts []Info
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		compressed := strings.HasSuffix(name, ".gz")
		artifacts = append(artifacts, Info{
			Name:       strings.TrimSuffix(name, ".gz"),
			Size:       info.Size(),
			Compressed: compressed,
			CreatedAt:  info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

// SaveJSON marshals v as indented JSON and stores it.
func (m *Manager) SaveJSON(runID, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return m.SaveArtifact(runID, name, data)
}

// LoadJSON loads an artifact into v.
func (m *Manager) LoadJSON(runID, name string, v any) error {
	data, err := m.LoadArtifact(runID, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}

// SaveReport stores the compiled document.
func (m *Manager) SaveReport(runID, document string) error {
	return m.SaveArtifact(runID, ArtifactReport, []byte(document))
}

// LoadReport loads the compiled document.
func (m *Manager) LoadReport(runID string) (string, error) {
	data, err := m.LoadArtifact(runID, ArtifactReport)
	return string(data), err
}

// writeAtomic writes through a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func loadCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}
