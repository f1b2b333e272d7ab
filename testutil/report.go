package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/reportflow/analytics"
	"github.com/randalmurphal/reportflow/notify"
	"github.com/randalmurphal/reportflow/report"
)

// TestPropertyRef is the property used across test fixtures.
const TestPropertyRef = "123456789"

// FixedNow is the clock used by fixtures that depend on date windows.
var FixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// SampleDataset returns a small dataset with activeUsers totalling current.
func SampleDataset(activeUsers float64) *report.Dataset {
	rows := []report.Row{
		{"date": "20250301", "sessionSource": "google", "activeUsers": activeUsers * 0.75, "sessions": 90.0, "engagementRate": 0.62},
		{"date": "20250302", "sessionSource": "direct", "activeUsers": activeUsers * 0.25, "sessions": 40.0, "engagementRate": 0.48},
	}
	return &report.Dataset{
		PropertyRef:      TestPropertyRef,
		DimensionHeaders: []string{"date", "sessionSource"},
		MetricHeaders: []report.MetricHeader{
			{Name: "activeUsers", Kind: report.KindInteger},
			{Name: "sessions", Kind: report.KindInteger},
			{Name: "engagementRate", Kind: report.KindFloat},
		},
		Rows:     rows,
		RowCount: len(rows),
		Totals: map[string]any{
			"activeUsers":    activeUsers,
			"sessions":       130.0,
			"engagementRate": 0.58,
		},
	}
}

// ComparisonSource serves current for the report window and the current
// week, and previous for the two comparison windows, as Collect computes
// them from now and days.
func ComparisonSource(now time.Time, days int, current, previous *report.Dataset) *analytics.Static {
	reportWindow := analytics.ReportWindow(now, days)
	prevWindow, err := analytics.PreviousWindow(reportWindow)
	if err != nil {
		panic("testutil: " + err.Error())
	}
	weekCur, weekPrev := analytics.WeekWindows(now)

	return &analytics.Static{
		ByWindow: map[report.DateWindow]*report.Dataset{
			reportWindow: current,
			prevWindow:   previous,
			weekCur:      current,
			weekPrev:     previous,
		},
		Fallback: current,
	}
}

// =============================================================================
// Notifier Capture
// =============================================================================

// CaptureNotifier records every message it is sent. Set Err to make Send
// fail.
type CaptureNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	Err      error
}

// Send implements notify.Notifier.
func (c *CaptureNotifier) Send(ctx context.Context, msg notify.Message) (notify.Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	if c.Err != nil {
		return notify.Ack{}, c.Err
	}
	return notify.Ack{Channel: "capture", DeliveredAt: time.Now()}, nil
}

// Messages returns a copy of the captured messages.
func (c *CaptureNotifier) Messages() []notify.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.Message(nil), c.messages...)
}

// Count returns the number of Send calls.
func (c *CaptureNotifier) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// SampleQuery returns the query matching SampleDataset's headers.
func SampleQuery() report.Query {
	return report.Query{
		PropertyRef: TestPropertyRef,
		Metrics:     []string{"activeUsers", "sessions", "engagementRate"},
		Dimensions:  []string{"date", "sessionSource"},
		RowLimit:    100,
	}
}
