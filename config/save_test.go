package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func readYAML(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSaveConfig_Global(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	sc := AppSaveConfig()

	if err := sc.SaveGlobal("smtp_port", "2525"); err != nil {
		t.Fatalf("SaveGlobal: %v", err)
	}
	if err := sc.SaveGlobal("delivery_stage", "true"); err != nil {
		t.Fatalf("SaveGlobal: %v", err)
	}
	if err := sc.SaveGlobal("model", "gpt-4o-mini"); err != nil {
		t.Fatalf("SaveGlobal: %v", err)
	}

	path := filepath.Join(home, ".config", AppName, "config.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	m := readYAML(t, path)
	if m["smtp_port"] != 2525 || m["delivery_stage"] != true || m["model"] != "gpt-4o-mini" {
		t.Errorf("saved = %v", m)
	}

	if err := sc.DeleteGlobalKey("model"); err != nil {
		t.Fatalf("DeleteGlobalKey: %v", err)
	}
	if _, ok := readYAML(t, path)["model"]; ok {
		t.Error("model should be deleted")
	}

	// Saved values round-trip through the resolver.
	r := NewResolverWithPaths(ResolverConfig{Keys: Keys, Defaults: Defaults()}, path, "")
	if got := r.Resolve().Get("smtp_port"); got != "2525" {
		t.Errorf("resolved smtp_port = %q", got)
	}
}

func TestSaveConfig_Local(t *testing.T) {
	root := t.TempDir()
	sc := AppSaveConfig()

	if err := sc.SaveLocal(root, "property_id", "123456789"); err != nil {
		t.Fatalf("SaveLocal: %v", err)
	}
	m := readYAML(t, filepath.Join(root, LocalConfigName))
	if m["property_id"] != 123456789 {
		t.Errorf("property_id = %#v", m["property_id"])
	}

	if err := sc.SaveLocal("", "model", "x"); err == nil {
		t.Error("SaveLocal without root should fail")
	}
}

func TestSaveConfig_UnknownKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	err := AppSaveConfig().SaveGlobal("nope", "1")
	if err == nil || !strings.Contains(err.Error(), "unknown config key: nope") {
		t.Errorf("err = %v", err)
	}
}

func TestSaveConfig_MalformedFileIsKept(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, LocalConfigName)
	writeYAML(t, path, "model: [unclosed\n")

	if err := AppSaveConfig().SaveLocal(root, "model", "x"); err == nil {
		t.Fatal("expected parse error")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "model: [unclosed\n" {
		t.Errorf("file was overwritten: %q", data)
	}
}

func TestSaveConfig_DeleteMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := AppSaveConfig().DeleteGlobalKey("model"); err != nil {
		t.Errorf("DeleteGlobalKey on missing file: %v", err)
	}
}

func TestTyped(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"false", false},
		{"42", 42},
		{"0.7", "0.7"},
		{"1", 1},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := typed(tt.in); got != tt.want {
			t.Errorf("typed(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
