package workflow

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/randalmurphal/reportflow/report"
)

// sampleRows is the number of dataset rows shown to a section writer.
const sampleRows = 10

// =============================================================================
// Prompt Data
// =============================================================================

type periodView struct {
	Current  report.DateWindow
	Previous report.DateWindow
	Lines    []string
}

type analyzeView struct {
	PropertyRef string
	DataStatus  string
	Window      string
	Totals      []string
	Weekly      periodView
	Monthly     periodView
	Metrics     []string
	Dimensions  []string
}

type planView struct {
	Metrics    []string
	Dimensions []string
	Totals     []string
	Analysis   string
	Insights   string
}

type researchedView struct {
	Name        string
	Description string
	Analysis    string
	Growth      []string
	Insights    string
	Totals      []string
	Metrics     []string
	Dimensions  []string
	Rows        []string
}

type derivedView struct {
	Name        string
	Description string
	Analysis    string
	Insights    string
	Context     string
	Totals      []string
	Metrics     []string
	Dimensions  []string
	Summary     bool
}

func newAnalyzeView(s State) analyzeView {
	ds := s.Dataset
	v := analyzeView{
		PropertyRef: s.PropertyRef,
		Window:      ds.Window.String(),
		Totals:      totalLines(ds),
		Metrics:     ds.MetricNames(),
		Dimensions:  ds.DimensionHeaders,
	}
	if ds.Window == (report.DateWindow{}) {
		v.Window = s.Query.Window.String()
	}
	if ds.IsDegraded() {
		v.DataStatus = "unavailable (" + ds.Error + ")"
	}
	if c := ds.Comparison; c != nil {
		v.Weekly = newPeriodView(ds, c.Weekly)
		v.Monthly = newPeriodView(ds, c.Monthly)
	}
	return v
}

func newPeriodView(ds *report.Dataset, pc *report.PeriodComparison) periodView {
	if pc == nil {
		return periodView{}
	}
	return periodView{
		Current:  pc.Current,
		Previous: pc.Previous,
		Lines:    growthLines(ds, pc),
	}
}

func newPlanView(s State) planView {
	return planView{
		Metrics:    s.Dataset.MetricNames(),
		Dimensions: s.Dataset.DimensionHeaders,
		Totals:     totalLines(s.Dataset),
		Analysis:   s.AnalysisText,
		Insights:   s.InsightsText,
	}
}

func newResearchedView(s State, sec report.Section) researchedView {
	metrics, dims := RelevantHeaders(sec.Name, s.Dataset.MetricNames(), s.Dataset.DimensionHeaders)
	return researchedView{
		Name:        sec.Name,
		Description: sec.Description,
		Analysis:    s.AnalysisText,
		Growth:      GrowthInsights(s.Dataset),
		Insights:    s.InsightsText,
		Totals:      totalLines(s.Dataset),
		Metrics:     metrics,
		Dimensions:  dims,
		Rows:        sampleLines(s.Dataset),
	}
}

func newDerivedView(s State, sec report.Section, researched string) derivedView {
	return derivedView{
		Name:        sec.Name,
		Description: sec.Description,
		Analysis:    s.AnalysisText,
		Insights:    s.InsightsText,
		Context:     researched,
		Totals:      totalLines(s.Dataset),
		Metrics:     s.Dataset.MetricNames(),
		Dimensions:  s.Dataset.DimensionHeaders,
		Summary:     strings.Contains(strings.ToLower(sec.Name), "summary"),
	}
}

// researchedContext joins the written researched sections as
// "name:\ncontent" blocks.
func researchedContext(sections []*report.Section) string {
	var parts []string
	for _, sec := range sections {
		if sec.RequiresResearch && sec.Complete() {
			parts = append(parts, sec.Name+":\n"+sec.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// =============================================================================
// Formatting Helpers
// =============================================================================

func totalLines(ds *report.Dataset) []string {
	names := ds.TotalNames()
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+": "+report.FormatValue(ds.Totals[name]))
	}
	return lines
}

// growthNames orders growth entries by metric column, then by name for
// metrics without a column.
func growthNames(ds *report.Dataset, growth map[string]report.GrowthMetric) []string {
	names := make([]string, 0, len(growth))
	seen := make(map[string]bool, len(growth))
	for _, m := range ds.MetricNames() {
		if _, ok := growth[m]; ok {
			names = append(names, m)
			seen[m] = true
		}
	}
	var rest []string
	for m := range growth {
		if !seen[m] {
			rest = append(rest, m)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func growthLines(ds *report.Dataset, pc *report.PeriodComparison) []string {
	if pc == nil {
		return nil
	}
	names := growthNames(ds, pc.Growth)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		g := pc.Growth[name]
		lines = append(lines, fmt.Sprintf("%s: %s vs %s (%+.2f%%)",
			name, report.FormatValue(g.Current), report.FormatValue(g.Previous), g.GrowthRate))
	}
	return lines
}

// GrowthInsights describes month-over-month changes larger than one percent,
// for example "activeUsers: 120.0 (20.0% increase MoM)".
func GrowthInsights(ds *report.Dataset) []string {
	if ds == nil || ds.Comparison == nil || ds.Comparison.Monthly == nil {
		return nil
	}
	growth := ds.Comparison.Monthly.Growth
	var out []string
	for _, name := range growthNames(ds, growth) {
		g := growth[name]
		if math.Abs(g.GrowthRate) <= 1 {
			continue
		}
		direction := "increase"
		if g.GrowthRate < 0 {
			direction = "decrease"
		}
		display := strings.ReplaceAll(name, "total", "")
		display = strings.ReplaceAll(display, "average", "avg")
		out = append(out, fmt.Sprintf("%s: %.1f (%.1f%% %s MoM)",
			display, g.Current, math.Abs(g.GrowthRate), direction))
	}
	return out
}

func sampleLines(ds *report.Dataset) []string {
	rows := ds.Head(sampleRows)
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var parts []string
		for _, d := range ds.DimensionHeaders {
			parts = append(parts, d+"="+report.FormatValue(row[d]))
		}
		for _, m := range ds.MetricNames() {
			parts = append(parts, m+"="+report.FormatValue(row[m]))
		}
		lines = append(lines, strings.Join(parts, ", "))
	}
	return lines
}

// =============================================================================
// Relevance Filter
// =============================================================================

var (
	performanceMetrics = []string{"users", "sessions", "views", "rate"}
	performanceDims    = []string{"source", "medium", "campaign", "channel"}
	behaviorMetrics    = []string{"session", "engagement", "duration", "views"}
	behaviorDims       = []string{"page", "device", "country"}
)

// RelevantHeaders selects the metrics and dimensions a section should see,
// by keywords in its name. Overview, executive and recommendation sections
// see everything; performance and behavior sections see matching headers;
// any other section sees none.
func RelevantHeaders(section string, metrics, dimensions []string) (m, d []string) {
	name := strings.ToLower(section)
	switch {
	case strings.Contains(name, "executive"),
		strings.Contains(name, "overview"),
		strings.Contains(name, "recommendation"):
		return metrics, dimensions
	case strings.Contains(name, "performance"):
		return matching(metrics, performanceMetrics), matching(dimensions, performanceDims)
	case strings.Contains(name, "behavior"):
		return matching(metrics, behaviorMetrics), matching(dimensions, behaviorDims)
	default:
		return nil, nil
	}
}

func matching(names, keywords []string) []string {
	var out []string
	for _, n := range names {
		lower := strings.ToLower(n)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
