package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/randalmurphal/reportflow/report"
)

// Collect fetches the report dataset for q and attaches weekly and monthly
// comparisons. q.Window must be set. Any source error is returned as is;
// callers decide whether to degrade.
//
// Calls are issued sequentially: report window, previous period, current
// week, previous week.
func Collect(ctx context.Context, src DataSource, q report.Query, now time.Time) (*report.Dataset, error) {
	if v, ok := src.(Validator); ok {
		if err := v.Validate(ctx); err != nil {
			return nil, fmt.Errorf("validate credentials: %w", err)
		}
	}

	ds, err := src.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch report window %s: %w", q.Window, err)
	}
	if ds.Window == (report.DateWindow{}) {
		ds.Window = q.Window
	}
	if ds.PropertyRef == "" {
		ds.PropertyRef = q.PropertyRef
	}

	prevWindow, err := PreviousWindow(q.Window)
	if err != nil {
		return nil, err
	}
	monthly, err := comparePeriods(ctx, src, q, q.Window, prevWindow, ds.Totals)
	if err != nil {
		return nil, err
	}

	weekCur, weekPrev := WeekWindows(now)
	curWeek, err := fetchTotals(ctx, src, q.WithWindow(weekCur))
	if err != nil {
		return nil, err
	}
	weekly, err := comparePeriods(ctx, src, q, weekCur, weekPrev, curWeek)
	if err != nil {
		return nil, err
	}

	ds.Comparison = &report.Comparison{Weekly: weekly, Monthly: monthly}
	return ds, nil
}

func comparePeriods(
	ctx context.Context,
	src DataSource,
	q report.Query,
	current, previous report.DateWindow,
	currentTotals map[string]any,
) (*report.PeriodComparison, error) {
	prevTotals, err := fetchTotals(ctx, src, q.WithWindow(previous))
	if err != nil {
		return nil, err
	}
	return &report.PeriodComparison{
		Current:        current,
		Previous:       previous,
		PreviousTotals: prevTotals,
		Growth:         report.ComputeGrowth(currentTotals, prevTotals),
	}, nil
}

func fetchTotals(ctx context.Context, src DataSource, q report.Query) (map[string]any, error) {
	ds, err := src.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch window %s: %w", q.Window, err)
	}
	if ds.Totals == nil {
		return map[string]any{}, nil
	}
	return ds.Totals, nil
}
