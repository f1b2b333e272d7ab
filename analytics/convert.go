package analytics

import (
	"context"
	"log/slog"
	"strconv"

	analyticsdata "google.golang.org/api/analyticsdata/v1beta"

	"github.com/randalmurphal/reportflow/report"
)

// KindForType maps a GA4 metric type to a MetricKind.
func KindForType(t string) report.MetricKind {
	switch t {
	case "TYPE_INTEGER":
		return report.KindInteger
	case "TYPE_CURRENCY":
		return report.KindCurrency
	case "TYPE_FLOAT", "TYPE_SECONDS", "TYPE_MILLISECONDS", "TYPE_MINUTES", "TYPE_HOURS",
		"TYPE_STANDARD", "TYPE_FEET", "TYPE_MILES", "TYPE_METERS", "TYPE_KILOMETERS":
		return report.KindFloat
	default:
		return report.KindString
	}
}

// ConvertValue parses a raw metric value according to kind. Values that
// fail to parse are returned unchanged with ok false.
func ConvertValue(raw string, kind report.MetricKind) (v any, ok bool) {
	switch kind {
	case report.KindInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			// GA occasionally reports integer metrics as "12.0"
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil || f != float64(int64(f)) {
				return raw, false
			}
			return int64(f), true
		}
		return n, true
	case report.KindFloat, report.KindCurrency:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw, false
		}
		return f, true
	default:
		return raw, true
	}
}

func convertResponse(ctx context.Context, logger *slog.Logger, resp *analyticsdata.RunReportResponse) *report.Dataset {
	ds := &report.Dataset{
		DimensionHeaders: make([]string, 0, len(resp.DimensionHeaders)),
		MetricHeaders:    make([]report.MetricHeader, 0, len(resp.MetricHeaders)),
		Rows:             make([]report.Row, 0, len(resp.Rows)),
		Totals:           map[string]any{},
	}
	for _, h := range resp.DimensionHeaders {
		ds.DimensionHeaders = append(ds.DimensionHeaders, h.Name)
	}
	for _, h := range resp.MetricHeaders {
		ds.MetricHeaders = append(ds.MetricHeaders, report.MetricHeader{Name: h.Name, Kind: KindForType(h.Type)})
	}

	for _, r := range resp.Rows {
		ds.Rows = append(ds.Rows, convertRow(ctx, logger, ds, r))
	}
	ds.RowCount = len(ds.Rows)

	if len(resp.Totals) > 0 {
		for i, mv := range resp.Totals[0].MetricValues {
			if i >= len(ds.MetricHeaders) || mv == nil {
				continue
			}
			h := ds.MetricHeaders[i]
			ds.Totals[h.Name] = convertLogged(ctx, logger, h, mv.Value)
		}
	}
	return ds
}

func convertRow(ctx context.Context, logger *slog.Logger, ds *report.Dataset, r *analyticsdata.Row) report.Row {
	row := make(report.Row, len(ds.DimensionHeaders)+len(ds.MetricHeaders))
	for i, dv := range r.DimensionValues {
		if i < len(ds.DimensionHeaders) && dv != nil {
			row[ds.DimensionHeaders[i]] = dv.Value
		}
	}
	for i, mv := range r.MetricValues {
		if i < len(ds.MetricHeaders) && mv != nil {
			h := ds.MetricHeaders[i]
			row[h.Name] = convertLogged(ctx, logger, h, mv.Value)
		}
	}
	return row
}

func convertLogged(ctx context.Context, logger *slog.Logger, h report.MetricHeader, raw string) any {
	v, ok := ConvertValue(raw, h.Kind)
	if !ok && logger != nil {
		logger.WarnContext(ctx, "could not convert metric value",
			"metric", h.Name,
			"kind", h.Kind,
			"value", raw,
		)
	}
	return v
}
