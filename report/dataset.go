package report

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoData indicates a dataset without rows or totals.
var ErrNoData = errors.New("no analytics data")

// =============================================================================
// Metric Types
// =============================================================================

// MetricKind is the value type of a metric column.
type MetricKind string

// Metric kinds.
const (
	KindInteger  MetricKind = "integer"
	KindFloat    MetricKind = "float"
	KindCurrency MetricKind = "currency"
	KindString   MetricKind = "string" // passthrough
)

// Numeric reports whether values of this kind are numbers.
func (k MetricKind) Numeric() bool {
	return k == KindInteger || k == KindFloat || k == KindCurrency
}

// MetricHeader names a metric column and its kind.
type MetricHeader struct {
	Name string     `json:"name"`
	Kind MetricKind `json:"kind"`
}

// Row maps header name to value. Dimension values are strings; metric
// values follow their MetricKind.
type Row map[string]any

// DateWindow is an inclusive date range in YYYY-MM-DD form.
type DateWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// String renders the window as "start to end".
func (w DateWindow) String() string {
	if w.Start == "" && w.End == "" {
		return "unspecified"
	}
	return fmt.Sprintf("%s to %s", w.Start, w.End)
}

// Query describes a single request to an analytics source.
type Query struct {
	PropertyRef string     `json:"propertyRef"`
	Metrics     []string   `json:"metrics"`
	Dimensions  []string   `json:"dimensions"`
	Window      DateWindow `json:"window"`
	RowLimit    int        `json:"rowLimit,omitempty"`
}

// WithWindow returns a copy of the query for another date window.
func (q Query) WithWindow(w DateWindow) Query {
	q.Window = w
	return q
}

// =============================================================================
// Dataset
// =============================================================================

// Dataset is the tabular result of a metrics query plus comparison data.
type Dataset struct {
	PropertyRef      string         `json:"propertyRef"`
	DimensionHeaders []string       `json:"dimensionHeaders"`
	MetricHeaders    []MetricHeader `json:"metricHeaders"`
	Rows             []Row          `json:"rows"`
	RowCount         int            `json:"rowCount"`
	Totals           map[string]any `json:"totals"`
	Window           DateWindow     `json:"window"`
	Comparison       *Comparison    `json:"comparison,omitempty"`

	// Error is set when the source could not be read. A degraded dataset
	// keeps PropertyRef and leaves everything else empty.
	Error string `json:"error,omitempty"`
}

// Degraded builds the dataset stored when fetching fails.
func Degraded(propertyRef string, err error) *Dataset {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Dataset{
		PropertyRef:      propertyRef,
		DimensionHeaders: []string{},
		MetricHeaders:    []MetricHeader{},
		Rows:             []Row{},
		Totals:           map[string]any{},
		Error:            msg,
	}
}

// IsDegraded reports whether the dataset records a fetch failure.
func (d *Dataset) IsDegraded() bool {
	return d != nil && d.Error != ""
}

// Validate checks the structural invariants of a dataset.
func (d *Dataset) Validate() error {
	if d == nil {
		return ErrNoData
	}
	if len(d.Rows) != d.RowCount {
		return fmt.Errorf("row count %d does not match %d rows", d.RowCount, len(d.Rows))
	}
	if d.Error != "" && (len(d.Rows) > 0 || len(d.MetricHeaders) > 0 || len(d.DimensionHeaders) > 0 || len(d.Totals) > 0) {
		return fmt.Errorf("degraded dataset carries data: %s", d.Error)
	}
	return nil
}

// MetricNames returns metric header names in column order.
func (d *Dataset) MetricNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.MetricHeaders))
	for i, h := range d.MetricHeaders {
		names[i] = h.Name
	}
	return names
}

// Head returns at most n rows.
func (d *Dataset) Head(n int) []Row {
	if d == nil || n <= 0 {
		return nil
	}
	if len(d.Rows) <= n {
		return d.Rows
	}
	return d.Rows[:n]
}

// TotalNames returns the keys of Totals sorted by name.
func (d *Dataset) TotalNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Totals))
	for k := range d.Totals {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FormatValue renders a metric value for prompts and documents. Whole
// floats print without a fractional part so 120.0 reads as "120".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case float32:
		return FormatValue(float64(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}
