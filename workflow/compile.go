package workflow

import (
	"context"
	"fmt"
	"strings"

	rfcontext "github.com/randalmurphal/reportflow/context"
	"github.com/randalmurphal/reportflow/report"
)

const documentTitle = "ANALYTICS PERFORMANCE REPORT"

// Compile renders the final document, stores it as the run's report
// artifact and, unless delivery runs as its own stage, delivers it.
func Compile(ctx context.Context, s State) (State, error) {
	if s.FinalDocument == "" {
		if err := s.Validate(RequireDataset); err != nil {
			return s, fail(StageCompile, err)
		}
		s.FinalDocument = CompileDocument(s.PropertyRef, s.Dataset, s.Sections)

		if mgr := rfcontext.Artifact(ctx); mgr != nil && s.RunID != "" {
			if err := mgr.SaveReport(s.RunID, s.FinalDocument); err != nil {
				rfcontext.Observer(ctx).Log(ctx).WarnContext(ctx, "save report artifact failed", "error", err)
			}
		}
	}

	if OptionsFromContext(ctx).DeliveryStage {
		return s, nil
	}
	return deliver(ctx, s, StageCompile)
}

// CompileDocument renders the report. The output depends only on its
// arguments.
func CompileDocument(propertyRef string, ds *report.Dataset, sections []*report.Section) string {
	var b strings.Builder

	b.WriteString(documentTitle + "\n")
	b.WriteString(strings.Repeat("=", len(documentTitle)) + "\n\n")

	b.WriteString("OVERVIEW\n--------\n")
	ref := propertyRef
	if ref == "" {
		ref = "Not specified"
	}
	fmt.Fprintf(&b, "Property ID: %s\n", ref)

	rows := 0
	if ds != nil {
		rows = ds.RowCount
	}
	fmt.Fprintf(&b, "Total Rows Analyzed: %d\n", rows)
	if ds.IsDegraded() {
		fmt.Fprintf(&b, "Data Status: unavailable (%s)\n", ds.Error)
	}

	b.WriteString("\nOverall Metrics:\n")
	if ds == nil || len(ds.Totals) == 0 {
		b.WriteString("Not specified\n")
	} else {
		for _, line := range totalLines(ds) {
			b.WriteString("- " + line + "\n")
		}
	}

	if ds != nil && !ds.Comparison.Empty() {
		writeGrowth(&b, "month over month", ds, ds.Comparison.Monthly)
		writeGrowth(&b, "week over week", ds, ds.Comparison.Weekly)
	}

	for _, sec := range sections {
		if !sec.Complete() {
			continue
		}
		b.WriteString("\n" + strings.ToUpper(sec.Name) + "\n")
		b.WriteString(strings.Repeat("=", len(sec.Name)) + "\n")
		b.WriteString(strings.TrimSpace(sec.Content) + "\n")
	}

	return b.String()
}

func writeGrowth(b *strings.Builder, period string, ds *report.Dataset, pc *report.PeriodComparison) {
	if pc == nil || len(pc.Growth) == 0 {
		return
	}
	fmt.Fprintf(b, "\nGrowth (%s):\n", period)
	for _, line := range growthLines(ds, pc) {
		b.WriteString("- " + line + "\n")
	}
}
