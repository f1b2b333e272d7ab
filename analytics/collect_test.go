package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/reportflow/report"
)

func TestCollect(t *testing.T) {
	q := report.Query{
		PropertyRef: "123456789",
		Metrics:     []string{"activeUsers"},
		Window:      ReportWindow(fixedNow, 30),
	}
	prevMonth, err := PreviousWindow(q.Window)
	require.NoError(t, err)
	weekCur, weekPrev := WeekWindows(fixedNow)

	src := &Static{
		ByWindow: map[report.DateWindow]*report.Dataset{
			q.Window: {
				MetricHeaders: []report.MetricHeader{{Name: "activeUsers", Kind: report.KindInteger}},
				Rows:          []report.Row{{"activeUsers": int64(120)}},
				RowCount:      1,
				Totals:        map[string]any{"activeUsers": int64(120)},
			},
			prevMonth: {Totals: map[string]any{"activeUsers": int64(100)}},
			weekCur:   {Totals: map[string]any{"activeUsers": int64(30)}},
			weekPrev:  {Totals: map[string]any{"activeUsers": int64(0)}},
		},
	}

	ds, err := Collect(context.Background(), src, q, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "123456789", ds.PropertyRef)
	assert.Equal(t, q.Window, ds.Window)
	require.NotNil(t, ds.Comparison)
	require.NotNil(t, ds.Comparison.Monthly)
	assert.Equal(t, 20.0, ds.Comparison.Monthly.Growth["activeUsers"].GrowthRate)
	assert.Equal(t, prevMonth, ds.Comparison.Monthly.Previous)

	require.NotNil(t, ds.Comparison.Weekly)
	assert.Empty(t, ds.Comparison.Weekly.Growth, "zero previous week must not produce growth")

	queries := src.Queries()
	require.Len(t, queries, 4)
	assert.Equal(t, []report.DateWindow{q.Window, prevMonth, weekCur, weekPrev},
		[]report.DateWindow{queries[0].Window, queries[1].Window, queries[2].Window, queries[3].Window})
}

func TestCollect_SourceError(t *testing.T) {
	boom := errors.New("quota exceeded")
	src := &Static{Err: boom}

	_, err := Collect(context.Background(), src, report.Query{
		PropertyRef: "1",
		Window:      ReportWindow(fixedNow, 30),
	}, fixedNow)

	assert.ErrorIs(t, err, boom)
}

type failingValidator struct {
	*Static
}

func (failingValidator) Validate(context.Context) error { return errors.New("invalid_grant") }

func TestCollect_ValidatorRunsFirst(t *testing.T) {
	src := failingValidator{Static: NewStatic(&report.Dataset{})}

	_, err := Collect(context.Background(), src, report.Query{
		PropertyRef: "1",
		Window:      ReportWindow(fixedNow, 30),
	}, fixedNow)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.Empty(t, src.Queries())
}
