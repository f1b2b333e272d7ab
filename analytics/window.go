package analytics

import (
	"fmt"
	"time"

	"github.com/randalmurphal/reportflow/report"
)

// DateLayout is the date format used by report windows.
const DateLayout = "2006-01-02"

// WeekDays is the length of the weekly comparison window.
const WeekDays = 7

// ReportWindow returns the window ending on now's date and starting days
// days earlier.
func ReportWindow(now time.Time, days int) report.DateWindow {
	end := truncateDay(now)
	return report.DateWindow{
		Start: end.AddDate(0, 0, -days).Format(DateLayout),
		End:   end.Format(DateLayout),
	}
}

// PreviousWindow returns the window of equal length ending the day before w
// starts.
func PreviousWindow(w report.DateWindow) (report.DateWindow, error) {
	start, err := time.Parse(DateLayout, w.Start)
	if err != nil {
		return report.DateWindow{}, fmt.Errorf("parse window start: %w", err)
	}
	end, err := time.Parse(DateLayout, w.End)
	if err != nil {
		return report.DateWindow{}, fmt.Errorf("parse window end: %w", err)
	}
	if end.Before(start) {
		return report.DateWindow{}, fmt.Errorf("window %s ends before it starts", w)
	}
	span := int(end.Sub(start).Hours() / 24)
	prevEnd := start.AddDate(0, 0, -1)
	return report.DateWindow{
		Start: prevEnd.AddDate(0, 0, -span).Format(DateLayout),
		End:   prevEnd.Format(DateLayout),
	}, nil
}

// WeekWindows returns the current and previous seven-day windows.
func WeekWindows(now time.Time) (current, previous report.DateWindow) {
	current = ReportWindow(now, WeekDays-1)
	previous, _ = PreviousWindow(current)
	return current, previous
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
