package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/reportflow/report"
)

var fixedNow = time.Date(2026, 3, 31, 15, 4, 5, 0, time.UTC)

func TestReportWindow(t *testing.T) {
	w := ReportWindow(fixedNow, 30)
	assert.Equal(t, report.DateWindow{Start: "2026-03-01", End: "2026-03-31"}, w)
}

func TestPreviousWindow(t *testing.T) {
	prev, err := PreviousWindow(report.DateWindow{Start: "2026-03-01", End: "2026-03-31"})
	require.NoError(t, err)
	assert.Equal(t, report.DateWindow{Start: "2026-01-29", End: "2026-02-28"}, prev)

	_, err = PreviousWindow(report.DateWindow{Start: "bad", End: "2026-03-31"})
	assert.Error(t, err)

	_, err = PreviousWindow(report.DateWindow{Start: "2026-03-31", End: "2026-03-01"})
	assert.Error(t, err)
}

func TestWeekWindows(t *testing.T) {
	cur, prev := WeekWindows(fixedNow)
	assert.Equal(t, report.DateWindow{Start: "2026-03-25", End: "2026-03-31"}, cur)
	assert.Equal(t, report.DateWindow{Start: "2026-03-18", End: "2026-03-24"}, prev)
}

func TestPropertyPath(t *testing.T) {
	p, err := PropertyPath("123456789")
	require.NoError(t, err)
	assert.Equal(t, "properties/123456789", p)

	p, err = PropertyPath("properties/42")
	require.NoError(t, err)
	assert.Equal(t, "properties/42", p)

	for _, bad := range []string{"", "properties/", "a/b"} {
		_, err := PropertyPath(bad)
		assert.ErrorIs(t, err, ErrInvalidProperty, bad)
	}
}
