package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/randalmurphal/reportflow/analytics"
	"github.com/randalmurphal/reportflow/notify"
)

func TestSampleDataset(t *testing.T) {
	ds := SampleDataset(120)
	if err := ds.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ds.Totals["activeUsers"] != 120.0 {
		t.Errorf("activeUsers = %v, want 120", ds.Totals["activeUsers"])
	}
}

func TestComparisonSource(t *testing.T) {
	src := ComparisonSource(FixedNow, 30, SampleDataset(120), SampleDataset(100))

	q := SampleQuery()
	q.Window = analytics.ReportWindow(FixedNow, 30)
	ds, err := analytics.Collect(context.Background(), src, q, FixedNow)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	g, ok := ds.Comparison.Monthly.Growth["activeUsers"]
	if !ok {
		t.Fatal("missing monthly activeUsers growth")
	}
	if g.GrowthRate != 20 {
		t.Errorf("GrowthRate = %v, want 20", g.GrowthRate)
	}
}

func TestCaptureNotifier(t *testing.T) {
	c := &CaptureNotifier{}
	var n notify.Notifier = c

	ack, err := n.Send(context.Background(), notify.Message{Subject: "a"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ack.Channel != "capture" {
		t.Errorf("Channel = %q", ack.Channel)
	}

	c.Err = errors.New("down")
	if _, err := n.Send(context.Background(), notify.Message{Subject: "b"}); err == nil {
		t.Error("expected error")
	}
	if c.Count() != 2 {
		t.Errorf("Count = %d, want 2", c.Count())
	}
	if got := c.Messages()[1].Subject; got != "b" {
		t.Errorf("second subject = %q", got)
	}
}

func TestTempFile(t *testing.T) {
	path := TempFileString(t, "test.txt", "hello world")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read temp file: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("content = %q, want %q", string(data), "hello world")
	}
}

func TestWriteAndLoadFixture(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	WriteJSONFixture(t, "datasets/sample.json", SampleDataset(50))
	if _, err := os.Stat(filepath.Join(dir, "testdata", "datasets", "sample.json")); err != nil {
		t.Fatalf("fixture not written: %v", err)
	}

	raw := LoadJSONFixture[struct {
		RowCount int `json:"rowCount"`
	}](t, "datasets/sample.json")
	if raw.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", raw.RowCount)
	}

	ds := LoadDataset(t, "datasets/sample.json")
	if ds.Totals["activeUsers"] != 50.0 {
		t.Errorf("activeUsers = %v, want 50", ds.Totals["activeUsers"])
	}
	if ds.MetricHeaders[2].Kind != "float" {
		t.Errorf("engagementRate kind = %q", ds.MetricHeaders[2].Kind)
	}
}

func TestTestContext(t *testing.T) {
	ctx := TestContextWithTimeout(t, time.Minute)
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected deadline")
	}
	if ctx.Err() != nil {
		t.Errorf("unexpected error: %v", ctx.Err())
	}
}
