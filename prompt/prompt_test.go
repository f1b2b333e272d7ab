package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestEmbeddedPromptsPresent(t *testing.T) {
	l := NewLoader()
	for _, name := range []string{
		Analyze, Insight, Plan, WriteResearched, WriteDerived,
		SystemAnalyst, SystemPlanner, SystemSection, SystemFinal,
	} {
		if !l.Exists(name) {
			t.Errorf("embedded prompt %q missing", name)
		}
	}
}

func TestRender_Insight(t *testing.T) {
	out, err := NewLoader().Render(Insight, struct{ Analysis string }{"Sessions rose 12%."})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "Sessions rose 12%.") {
		t.Errorf("rendered prompt missing analysis:\n%s", out)
	}
}

func TestRender_DerivedWordingBySummary(t *testing.T) {
	type data struct {
		Name, Description, Analysis, Insights, Context string
		Totals, Metrics, Dimensions                    []string
		Summary                                        bool
	}
	l := NewLoader()

	out, err := l.Render(WriteDerived, data{Name: "Executive Summary", Summary: true})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "executive summary that") || !strings.Contains(out, "high-level overview") {
		t.Errorf("summary wording missing:\n%s", out)
	}
	if !strings.Contains(out, "Previous analysis sections:\n(none)") {
		t.Errorf("empty context should render (none):\n%s", out)
	}

	out, err = l.Render(WriteDerived, data{Name: "Recommendations", Context: "Traffic:\nup"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "actionable recommendations") {
		t.Errorf("recommendation wording missing:\n%s", out)
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "insight.txt"), []byte("custom {{upper .Analysis}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(dir)
	out, err := l.Render(Insight, map[string]string{"Analysis": "abc"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "custom ABC" {
		t.Errorf("got %q, want %q", out, "custom ABC")
	}

	names := l.List()
	if len(names) < 9 {
		t.Errorf("List() = %v, want at least the embedded prompts", names)
	}
}

func TestForDataDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "prompts"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "prompts", "extra.txt"), []byte("{{title .}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := ForDataDir(dir).Render("extra", "traffic analysis")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "Traffic Analysis" {
		t.Errorf("got %q", out)
	}
}

func TestRender_Missing(t *testing.T) {
	if _, err := NewLoader().Render("does-not-exist", nil); err == nil {
		t.Error("expected error for missing prompt")
	}
}

func TestRender_Concurrent(t *testing.T) {
	l := NewLoader()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Render(Insight, struct{ Analysis string }{"x"}); err != nil {
				t.Errorf("Render() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestRender_ConcurrentTitle(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "heading.txt"), []byte("{{title .}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(dir)

	inputs := []string{"traffic analysis", "user behavior", "conversion funnel", "executive summary"}
	want := []string{"Traffic Analysis", "User Behavior", "Conversion Funnel", "Executive Summary"}

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := i % len(inputs)
			out, err := l.Render("heading", inputs[k])
			if err != nil {
				t.Errorf("Render() error = %v", err)
				return
			}
			if out != want[k] {
				t.Errorf("Render(%q) = %q, want %q", inputs[k], out, want[k])
			}
		}()
	}
	wg.Wait()
}

func TestBullets(t *testing.T) {
	if got := bullets(nil); got != "(none)" {
		t.Errorf("bullets(nil) = %q", got)
	}
	if got := bullets([]string{"a", "b"}); got != "- a\n- b" {
		t.Errorf("bullets = %q", got)
	}
}

func TestIndentString(t *testing.T) {
	if got := indentString(2, "a\n\nb"); got != "  a\n\n  b" {
		t.Errorf("indentString = %q", got)
	}
}
