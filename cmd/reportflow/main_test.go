package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/reportflow/config"
	"github.com/randalmurphal/reportflow/runstore"
)

func TestSplitHashes(t *testing.T) {
	got := splitHashes(" abc, ,def,")
	if len(got) != 2 || got[0] != "abc" || got[1] != "def" {
		t.Errorf("splitHashes = %q", got)
	}
	if got := splitHashes(""); got != nil {
		t.Errorf("splitHashes(\"\") = %q, want nil", got)
	}
}

func TestRunFlags(t *testing.T) {
	defer func() { runDays, runNoNotify = 0, false }()

	if got := runFlags(); len(got) != 0 {
		t.Errorf("runFlags() with no flags = %v", got)
	}

	runDays, runNoNotify = 7, true
	got := runFlags()
	if got["default_days"] != "7" {
		t.Errorf("default_days = %q, want 7", got["default_days"])
	}
	if got["notify_policy"] != config.NotifyDisabled {
		t.Errorf("notify_policy = %q, want %q", got["notify_policy"], config.NotifyDisabled)
	}
}

func TestGlobalFlags(t *testing.T) {
	defer func() { propertyID, dataDir = "", "" }()
	propertyID, dataDir = "42", "/tmp/rf"

	got := globalFlags(map[string]string{"listen_addr": ":9000"})
	if got["property_id"] != "42" || got["data_dir"] != "/tmp/rf" || got["listen_addr"] != ":9000" {
		t.Errorf("globalFlags = %v", got)
	}
}

func TestDuration(t *testing.T) {
	start := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	if got := duration(runstore.Run{StartedAt: start}); got != "-" {
		t.Errorf("duration of running run = %q, want -", got)
	}
	end := start.Add(95 * time.Second)
	if got := duration(runstore.Run{StartedAt: start, EndedAt: &end}); got != "1m35s" {
		t.Errorf("duration = %q, want 1m35s", got)
	}
}

func TestCommandTree(t *testing.T) {
	want := []string{"run", "resume", "serve", "runs", "config", "apikey", "cleanup", "restore"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("command %q not registered", name)
		}
	}

	for _, path := range [][]string{{"runs", "list"}, {"runs", "transcripts"}, {"config", "set"}, {"apikey", "create"}} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered", path)
		}
	}
}

func TestListTranscripts_Empty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	defer func() { dataDir = "" }()
	dataDir = t.TempDir()

	var out bytes.Buffer
	runsTranscriptsCmd.SetOut(&out)
	defer runsTranscriptsCmd.SetOut(nil)

	if err := listTranscripts(runsTranscriptsCmd, nil); err != nil {
		t.Fatalf("listTranscripts: %v", err)
	}
	if !strings.Contains(out.String(), "No transcripts found.") {
		t.Errorf("output = %q", out.String())
	}
}
