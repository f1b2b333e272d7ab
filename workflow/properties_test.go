package workflow

import (
	"context"
	"fmt"
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/randalmurphal/reportflow/report"
)

func drawSections(t *rapid.T) []*report.Section {
	n := rapid.IntRange(0, 12).Draw(t, "n")
	sections := make([]*report.Section, n)
	for i := range sections {
		sections[i] = &report.Section{
			Name:             fmt.Sprintf("Section %d", i),
			RequiresResearch: rapid.Bool().Draw(t, "research"),
			Content:          rapid.SampledFrom([]string{"", "written"}).Draw(t, "content"),
		}
	}
	return sections
}

func TestGatherIsOrderedSubsequence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := drawSections(t)
		out, err := Gather(context.Background(), State{Sections: report.CloneSections(in)})
		if err != nil {
			t.Fatalf("Gather: %v", err)
		}

		j := 0
		for _, sec := range out.Sections {
			for j < len(in) && in[j].Name != sec.Name {
				j++
			}
			if j == len(in) {
				t.Fatalf("section %q is not an ordered subsequence of the input", sec.Name)
			}
			j++
		}

		allComplete := true
		for _, sec := range in {
			allComplete = allComplete && sec.Complete()
		}
		if allComplete && len(out.Sections) != len(in) {
			t.Fatalf("complete input must pass through: got %d of %d", len(out.Sections), len(in))
		}
		for _, sec := range out.Sections {
			if sec.RequiresResearch && !sec.Complete() {
				t.Fatalf("unwritten researched section %q kept", sec.Name)
			}
		}
	})
}

func TestCompileDocumentIsPure(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sections := drawSections(t)
		totals := map[string]any{}
		for i := 0; i < rapid.IntRange(0, 6).Draw(t, "totals"); i++ {
			totals[fmt.Sprintf("metric%d", i)] = rapid.Float64Range(0, 1e6).Draw(t, "value")
		}
		ds := &report.Dataset{Totals: totals, RowCount: rapid.IntRange(0, 100).Draw(t, "rows")}
		ref := rapid.StringMatching(`[0-9]{0,10}`).Draw(t, "ref")

		first := CompileDocument(ref, ds, sections)
		second := CompileDocument(ref, ds, report.CloneSections(sections))
		if first != second {
			t.Fatalf("documents differ:\n%s\n---\n%s", first, second)
		}
	})
}

func TestGrowthInsightsThreshold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := math.Round(rapid.Float64Range(-200, 200).Draw(t, "rate")*100) / 100
		ds := &report.Dataset{
			MetricHeaders: []report.MetricHeader{{Name: "sessions", Kind: report.KindInteger}},
			Comparison: &report.Comparison{Monthly: &report.PeriodComparison{
				Growth: map[string]report.GrowthMetric{"sessions": {Current: 10, Previous: 8, GrowthRate: rate}},
			}},
		}

		got := GrowthInsights(ds)
		if math.Abs(rate) > 1 && len(got) != 1 {
			t.Fatalf("rate %v: expected one insight, got %v", rate, got)
		}
		if math.Abs(rate) <= 1 && len(got) != 0 {
			t.Fatalf("rate %v: expected no insight, got %v", rate, got)
		}
	})
}

func TestGrowthInsightsFormat(t *testing.T) {
	ds := &report.Dataset{
		MetricHeaders: []report.MetricHeader{{Name: "activeUsers"}, {Name: "averageSessionDuration"}},
		Comparison: &report.Comparison{Monthly: &report.PeriodComparison{
			Growth: map[string]report.GrowthMetric{
				"activeUsers":            {Current: 120, Previous: 100, GrowthRate: 20},
				"averageSessionDuration": {Current: 45.5, Previous: 50, GrowthRate: -9},
			},
		}},
	}

	got := GrowthInsights(ds)
	want := []string{
		"activeUsers: 120.0 (20.0% increase MoM)",
		"avgSessionDuration: 45.5 (9.0% decrease MoM)",
	}
	if len(got) != len(want) {
		t.Fatalf("GrowthInsights() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("insight %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRelevantHeaders(t *testing.T) {
	metrics := []string{"activeUsers", "sessions", "engagementRate", "averageSessionDuration", "screenPageViews"}
	dims := []string{"date", "sessionSource", "sessionMedium", "deviceCategory", "country", "pagePath"}

	tests := []struct {
		section string
		wantM   []string
		wantD   []string
	}{
		{"Executive Summary", metrics, dims},
		{"Traffic Performance", []string{"activeUsers", "sessions", "engagementRate", "screenPageViews"}, []string{"sessionSource", "sessionMedium"}},
		{"User Behavior", []string{"sessions", "engagementRate", "averageSessionDuration", "screenPageViews"}, []string{"deviceCategory", "country", "pagePath"}},
		{"Geography", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			m, d := RelevantHeaders(tt.section, metrics, dims)
			if fmt.Sprint(m) != fmt.Sprint(tt.wantM) {
				t.Errorf("metrics = %v, want %v", m, tt.wantM)
			}
			if fmt.Sprint(d) != fmt.Sprint(tt.wantD) {
				t.Errorf("dimensions = %v, want %v", d, tt.wantD)
			}
		})
	}
}
