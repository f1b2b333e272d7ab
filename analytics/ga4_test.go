package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/randalmurphal/reportflow/report"
)

const runReportResponse = `{
  "dimensionHeaders": [{"name": "sessionSource"}],
  "metricHeaders": [
    {"name": "activeUsers", "type": "TYPE_INTEGER"},
    {"name": "bounceRate", "type": "TYPE_FLOAT"}
  ],
  "rows": [
    {"dimensionValues": [{"value": "google"}], "metricValues": [{"value": "80"}, {"value": "0.4"}]},
    {"dimensionValues": [{"value": "direct"}], "metricValues": [{"value": "40"}, {"value": "bad"}]}
  ],
  "totals": [
    {"dimensionValues": [{"value": "RESERVED_TOTAL"}], "metricValues": [{"value": "120"}, {"value": "0.35"}]}
  ],
  "rowCount": 2
}`

func newTestGA4(t *testing.T, handler http.HandlerFunc) *GA4 {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src, err := NewGA4WithOptions(context.Background(), WithClientOptions(
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	))
	require.NoError(t, err)
	return src
}

func TestGA4Fetch(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	src := newTestGA4(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(runReportResponse))
	})

	window := report.DateWindow{Start: "2026-03-01", End: "2026-03-31"}
	ds, err := src.Fetch(context.Background(), report.Query{
		PropertyRef: "123456789",
		Metrics:     []string{"activeUsers", "bounceRate"},
		Dimensions:  []string{"sessionSource"},
		Window:      window,
		RowLimit:    10,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(gotPath, "properties/123456789:runReport"), gotPath)
	assert.Equal(t, []any{"TOTAL"}, gotBody["metricAggregations"])

	assert.Equal(t, "123456789", ds.PropertyRef)
	assert.Equal(t, window, ds.Window)
	assert.Equal(t, []string{"sessionSource"}, ds.DimensionHeaders)
	assert.Equal(t, []report.MetricHeader{
		{Name: "activeUsers", Kind: report.KindInteger},
		{Name: "bounceRate", Kind: report.KindFloat},
	}, ds.MetricHeaders)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, 2, ds.RowCount)
	assert.Equal(t, int64(80), ds.Rows[0]["activeUsers"])
	assert.Equal(t, 0.4, ds.Rows[0]["bounceRate"])
	assert.Equal(t, "google", ds.Rows[0]["sessionSource"])
	assert.Equal(t, "bad", ds.Rows[1]["bounceRate"], "unconvertible values pass through")
	assert.Equal(t, int64(120), ds.Totals["activeUsers"])
	assert.NoError(t, ds.Validate())
}

func TestGA4Fetch_APIError(t *testing.T) {
	src := newTestGA4(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "User does not have sufficient permissions"}}`))
	})

	_, err := src.Fetch(context.Background(), report.Query{PropertyRef: "1", Window: report.DateWindow{Start: "2026-03-01", End: "2026-03-31"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "properties/1")
}

func TestGA4Fetch_InvalidProperty(t *testing.T) {
	src := newTestGA4(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := src.Fetch(context.Background(), report.Query{PropertyRef: ""})
	assert.ErrorIs(t, err, ErrInvalidProperty)
}

func TestNewGA4_MissingCredentials(t *testing.T) {
	_, err := NewGA4(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
