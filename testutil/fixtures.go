package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/reportflow/report"
)

// Fixtures live under the calling package's testdata directory. Datasets
// are stored in the same JSON form the engine checkpoints them in.

// LoadFixture reads testdata/<path>.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", path))
	if err != nil {
		t.Fatalf("load fixture %s: %v", path, err)
	}
	return data
}

// LoadJSONFixture decodes testdata/<path> into a T.
func LoadJSONFixture[T any](t *testing.T, path string) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(LoadFixture(t, path), &v); err != nil {
		t.Fatalf("parse fixture %s: %v", path, err)
	}
	return v
}

// LoadDataset decodes a dataset fixture and checks that it is usable,
// either valid or explicitly degraded.
func LoadDataset(t *testing.T, path string) *report.Dataset {
	t.Helper()

	ds := LoadJSONFixture[*report.Dataset](t, path)
	if ds == nil {
		t.Fatalf("fixture %s: null dataset", path)
	}
	if !ds.IsDegraded() {
		if err := ds.Validate(); err != nil {
			t.Fatalf("fixture %s: %v", path, err)
		}
	}
	return ds
}

// WriteJSONFixture writes v as indented JSON to testdata/<path>. Use it to
// capture a dataset from a live property once, then load it with
// LoadDataset.
func WriteJSONFixture(t *testing.T, path string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal fixture %s: %v", path, err)
	}

	full := filepath.Join("testdata", path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(full, append(data, '\n'), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}

// TempFileString writes content to name in a fresh temp directory and
// returns the path.
func TempFileString(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file %s: %v", name, err)
	}
	return path
}
