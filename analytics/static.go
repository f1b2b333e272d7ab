package analytics

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/randalmurphal/reportflow/report"
)

// Static serves fixed datasets, keyed by date window, with an optional
// fallback. It records every query it receives.
type Static struct {
	ByWindow map[report.DateWindow]*report.Dataset
	Fallback *report.Dataset
	Err      error

	mu      sync.Mutex
	queries []report.Query
}

// NewStatic creates a source that returns ds for every query.
func NewStatic(ds *report.Dataset) *Static {
	return &Static{Fallback: ds}
}

// Fetch implements DataSource. Returned datasets are deep copies.
func (s *Static) Fetch(ctx context.Context, q report.Query) (*report.Dataset, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}

	src := s.Fallback
	if ds, ok := s.ByWindow[q.Window]; ok {
		src = ds
	}
	if src == nil {
		return &report.Dataset{PropertyRef: q.PropertyRef, Window: q.Window, Totals: map[string]any{}}, nil
	}

	out, err := cloneDataset(src)
	if err != nil {
		return nil, err
	}
	out.PropertyRef = q.PropertyRef
	out.Window = q.Window
	return out, nil
}

// Queries returns the queries received so far.
func (s *Static) Queries() []report.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report.Query(nil), s.queries...)
}

func cloneDataset(ds *report.Dataset) (*report.Dataset, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return nil, err
	}
	var out report.Dataset
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	// JSON turns ints into float64; keep the original totals and rows.
	out.Totals = copyMap(ds.Totals)
	out.Rows = make([]report.Row, len(ds.Rows))
	for i, r := range ds.Rows {
		out.Rows[i] = report.Row(copyMap(r))
	}
	return &out, nil
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
