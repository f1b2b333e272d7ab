package report

import (
	"math"
	"strconv"
)

// GrowthMetric compares one metric across two periods.
type GrowthMetric struct {
	Current    float64 `json:"current"`
	Previous   float64 `json:"previous"`
	GrowthRate float64 `json:"growthRate"` // percent, two decimals
}

// PeriodComparison holds the growth of every metric between two windows.
type PeriodComparison struct {
	Current        DateWindow              `json:"current"`
	Previous       DateWindow              `json:"previous"`
	PreviousTotals map[string]any          `json:"previousTotals"`
	Growth         map[string]GrowthMetric `json:"growth"`
}

// Comparison groups the weekly and monthly period comparisons.
type Comparison struct {
	Weekly  *PeriodComparison `json:"weekly,omitempty"`
	Monthly *PeriodComparison `json:"monthly,omitempty"`
}

// Empty reports whether no growth entries exist in either period.
func (c *Comparison) Empty() bool {
	if c == nil {
		return true
	}
	return (c.Weekly == nil || len(c.Weekly.Growth) == 0) &&
		(c.Monthly == nil || len(c.Monthly.Growth) == 0)
}

// GrowthRate returns round((current-previous)/previous*100, 2).
// ok is false when previous is not strictly positive.
func GrowthRate(current, previous float64) (rate float64, ok bool) {
	if !(previous > 0) || math.IsInf(previous, 0) || math.IsNaN(current) || math.IsInf(current, 0) {
		return 0, false
	}
	return math.Round((current-previous)/previous*100*100) / 100, true
}

// ComputeGrowth compares every metric numeric in both totals maps.
// Metrics whose previous value is zero or negative get no entry.
func ComputeGrowth(current, previous map[string]any) map[string]GrowthMetric {
	growth := make(map[string]GrowthMetric)
	for name, cv := range current {
		pv, ok := previous[name]
		if !ok {
			continue
		}
		c, ok := ToFloat(cv)
		if !ok {
			continue
		}
		p, ok := ToFloat(pv)
		if !ok {
			continue
		}
		rate, ok := GrowthRate(c, p)
		if !ok {
			continue
		}
		growth[name] = GrowthMetric{Current: c, Previous: p, GrowthRate: rate}
	}
	return growth
}

// ToFloat converts numeric values and numeric strings to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
