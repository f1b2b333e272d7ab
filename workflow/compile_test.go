package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/reportflow/report"
	"github.com/randalmurphal/reportflow/testutil"
)

func TestCompileDocument_Fixture(t *testing.T) {
	ds := testutil.LoadDataset(t, "datasets/ecommerce.json")
	sections := []*report.Section{
		{Name: "Traffic Sources", RequiresResearch: true, Content: "Google leads.\n"},
		{Name: "Unwritten", RequiresResearch: true},
		{Name: "Summary", Content: "Revenue fell while users grew."},
	}

	doc := CompileDocument(ds.PropertyRef, ds, sections)

	assert.True(t, strings.HasPrefix(doc, "ANALYTICS PERFORMANCE REPORT\n============================\n\n"))
	assert.Contains(t, doc, "Property ID: 987654321\n")
	assert.Contains(t, doc, "Total Rows Analyzed: 3\n")
	assert.Contains(t, doc, "Overall Metrics:\n- activeUsers: 1200\n- purchaseRevenue: 2550\n- sessions: 1525\n")
	assert.Contains(t, doc, "\nGrowth (month over month):\n"+
		"- activeUsers: 1200 vs 1000 (+20.00%)\n"+
		"- sessions: 1525 vs 1500 (+1.67%)\n"+
		"- purchaseRevenue: 2550 vs 3000 (-15.00%)\n")
	assert.NotContains(t, doc, "week over week")

	assert.Contains(t, doc, "\nTRAFFIC SOURCES\n===============\nGoogle leads.\n")
	assert.NotContains(t, doc, "UNWRITTEN")
	assert.True(t, strings.HasSuffix(doc, "\nSUMMARY\n=======\nRevenue fell while users grew.\n"))
	assert.Less(t, strings.Index(doc, "TRAFFIC SOURCES"), strings.Index(doc, "SUMMARY"))
}

func TestCompileDocument_DegradedFixture(t *testing.T) {
	ds := testutil.LoadDataset(t, "datasets/unavailable.json")
	require.True(t, ds.IsDegraded())

	doc := CompileDocument("", ds, nil)

	assert.Contains(t, doc, "Property ID: Not specified\n")
	assert.Contains(t, doc, "Total Rows Analyzed: 0\n")
	assert.Contains(t, doc, "Data Status: unavailable (rpc error: code = PermissionDenied")
	assert.Contains(t, doc, "Overall Metrics:\nNot specified\n")
	assert.NotContains(t, doc, "Growth (")
}

func TestGrowthInsights_Fixture(t *testing.T) {
	ds := testutil.LoadDataset(t, "datasets/ecommerce.json")

	assert.Equal(t, []string{
		"activeUsers: 1200.0 (20.0% increase MoM)",
		"sessions: 1525.0 (1.7% increase MoM)",
		"purchaseRevenue: 2550.0 (15.0% decrease MoM)",
	}, GrowthInsights(ds))
}
