package artifact

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionConfig defines how long run directories are kept.
type RetentionConfig struct {
	RetentionDays        int  // Days to keep finished runs before deletion
	ArchiveAfterDays     int  // Days before a finished run is archived
	ArchiveRetentionDays int  // Days to keep archives
	KeepFailed           bool // Never remove failed runs (they can be resumed)
	KeepMinRuns          int  // Minimum runs to keep regardless of age
}

// DefaultRetentionConfig returns the retention used by `reportflow cleanup`.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays:        30,
		ArchiveAfterDays:     7,
		ArchiveRetentionDays: 90,
		KeepFailed:           true,
		KeepMinRuns:          20,
	}
}

// LifecycleManager applies retention to the runs/ and archive/ trees.
type LifecycleManager struct {
	baseDir string
	config  RetentionConfig
	now     func() time.Time
}

// NewLifecycleManager creates a lifecycle manager
func NewLifecycleManager(baseDir string, config RetentionConfig) *LifecycleManager {
	return &LifecycleManager{
		baseDir: baseDir,
		config:  config,
		now:     time.Now,
	}
}

// CleanupResult summarizes cleanup actions
type CleanupResult struct {
	Archived   []string `json:"archived"`
	Deleted    []string `json:"deleted"`
	Kept       []string `json:"kept"`
	Errors     []string `json:"errors,omitempty"`
	SpaceSaved int64    `json:"spaceSaved"`
}

type runEntry struct {
	id   string
	rec  *RunRecord
	size int64
}

// Cleanup archives or deletes finished runs by age. Running runs are
// always kept, and failed runs are kept when KeepFailed is set.
func (m *LifecycleManager) Cleanup(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Archived: []string{},
		Deleted:  []string{},
		Kept:     []string{},
	}

	runsDir := filepath.Join(m.baseDir, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	var runs []runEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		runDir := filepath.Join(runsDir, entry.Name())
		rec, err := loadRunRecord(runDir)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("load %s: %v", entry.Name(), err))
			continue
		}
		runs = append(runs, runEntry{id: entry.Name(), rec: rec, size: dirSize(runDir)})
	}

	// oldest first
	sort.Slice(runs, func(i, j int) bool {
		return finishedAt(runs[i].rec).Before(finishedAt(runs[j].rec))
	})

	now := m.now()
	archiveBefore := now.AddDate(0, 0, -m.config.ArchiveAfterDays)
	deleteBefore := now.AddDate(0, 0, -m.config.RetentionDays)

	removed := 0
	for _, run := range runs {
		switch {
		case run.rec.Status == StatusRunning,
			m.config.KeepFailed && run.rec.Status == StatusFailed,
			len(runs)-removed-1 < m.config.KeepMinRuns:
			result.Kept = append(result.Kept, run.id)
			continue
		}

		ended := finishedAt(run.rec)
		switch {
		case ended.Before(deleteBefore):
			if !dryRun {
				if err := os.RemoveAll(filepath.Join(runsDir, run.id)); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", run.id, err))
					continue
				}
			}
			result.Deleted = append(result.Deleted, run.id)
			result.SpaceSaved += run.size
			removed++
		case ended.Before(archiveBefore):
			if !dryRun {
				if err := m.archiveRun(run.id); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("archive %s: %v", run.id, err))
					continue
				}
			}
			result.Archived = append(result.Archived, run.id)
			result.SpaceSaved += run.size / 2 // estimate
			removed++
		default:
			result.Kept = append(result.Kept, run.id)
		}
	}

	return result, nil
}

// finishedAt falls back to the last update for runs that never recorded an end.
func finishedAt(rec *RunRecord) time.Time {
	if !rec.EndedAt.IsZero() {
		return rec.EndedAt
	}
	return rec.UpdatedAt
}

func (m *LifecycleManager) archivePath(runID string) string {
	return filepath.Join(m.baseDir, "archive", monthOf(runID), runID+".tar.gz")
}

// archiveRun writes runs/<id> to archive/<YYYY-MM>/<id>.tar.gz and removes it.
func (m *LifecycleManager) archiveRun(runID string) error {
	runDir := filepath.Join(m.baseDir, "runs", runID)
	path := m.archivePath(runID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if err := writeTarGz(path, runDir, runID); err != nil {
		os.Remove(path)
		return err
	}
	return os.RemoveAll(runDir)
}

func writeTarGz(path, srcDir, prefix string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(srcDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(srcDir, p)
		header.Name = filepath.ToSlash(filepath.Join(prefix, rel))
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})

	for _, closeErr := range []error{tw.Close(), gz.Close(), f.Close()} {
		if walkErr == nil && closeErr != nil {
			walkErr = closeErr
		}
	}
	return walkErr
}

// RestoreArchive extracts an archived run back into runs/.
func (m *LifecycleManager) RestoreArchive(runID string) error {
	path := m.findArchive(runID)
	if path == "" {
		return fmt.Errorf("archive %s: %w", runID, ErrRunNotFound)
	}

	runsDir := filepath.Join(m.baseDir, "runs")
	if _, err := os.Stat(filepath.Join(runsDir, runID)); err == nil {
		return fmt.Errorf("run already exists: %s", runID)
	}
	if err := extractTarGz(path, runsDir); err != nil {
		return err
	}
	return os.Remove(path)
}

// ListArchives returns all archived run IDs, sorted.
func (m *LifecycleManager) ListArchives() ([]string, error) {
	var archives []string
	err := m.walkArchives(func(_ string, info os.FileInfo) {
		archives = append(archives, strings.TrimSuffix(info.Name(), ".tar.gz"))
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(archives)
	return archives, nil
}

// CleanupArchives removes archives older than ArchiveRetentionDays.
func (m *LifecycleManager) CleanupArchives(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{Deleted: []string{}, Kept: []string{}}
	threshold := m.now().AddDate(0, 0, -m.config.ArchiveRetentionDays)

	err := m.walkArchives(func(path string, info os.FileInfo) {
		runID := strings.TrimSuffix(info.Name(), ".tar.gz")
		if !info.ModTime().Before(threshold) {
			result.Kept = append(result.Kept, runID)
			return
		}
		if !dryRun {
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("delete archive %s: %v", runID, err))
				return
			}
		}
		result.Deleted = append(result.Deleted, runID)
		result.SpaceSaved += info.Size()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DiskUsageStats contains disk usage statistics
type DiskUsageStats struct {
	RunCount     int   `json:"runCount"`
	ArchiveCount int   `json:"archiveCount"`
	ActiveSize   int64 `json:"activeSize"`
	ArchiveSize  int64 `json:"archiveSize"`
	TotalSize    int64 `json:"totalSize"`
}

// DiskUsage returns disk usage statistics
func (m *LifecycleManager) DiskUsage() (*DiskUsageStats, error) {
	stats := &DiskUsageStats{}

	runsDir := filepath.Join(m.baseDir, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			stats.RunCount++
			stats.ActiveSize += dirSize(filepath.Join(runsDir, entry.Name()))
		}
	}

	if err := m.walkArchives(func(_ string, info os.FileInfo) {
		stats.ArchiveCount++
		stats.ArchiveSize += info.Size()
	}); err != nil {
		return nil, err
	}

	stats.TotalSize = stats.ActiveSize + stats.ArchiveSize
	return stats, nil
}

func (m *LifecycleManager) findArchive(runID string) string {
	if _, err := os.Stat(m.archivePath(runID)); err == nil {
		return m.archivePath(runID)
	}
	var found string
	m.walkArchives(func(path string, info os.FileInfo) {
		if found == "" && info.Name() == runID+".tar.gz" {
			found = path
		}
	})
	return found
}

func (m *LifecycleManager) walkArchives(fn func(path string, info os.FileInfo)) error {
	err := filepath.Walk(filepath.Join(m.baseDir, "archive"), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".tar.gz") {
			fn(path, info)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, filepath.FromSlash(header.Name))
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}

// monthOf reads YYYY-MM from a run ID of the form YYYY-MM-DD-<id>.
func monthOf(runID string) string {
	if len(runID) >= 7 && runID[4] == '-' {
		return runID[:7]
	}
	return "unknown"
}

func dirSize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
