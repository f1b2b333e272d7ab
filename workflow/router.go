package workflow

import (
	"context"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/reportflow/report"
)

// RouterFunc picks the next stage from state. Routers are pure.
type RouterFunc func(ctx context.Context, s State) string

// PlanRouter routes after planning: no sections ends the run, any section
// requiring research goes to the researched writer, otherwise straight to
// gather.
func PlanRouter(_ context.Context, s State) string {
	switch {
	case len(s.Sections) == 0:
		return flowgraph.END
	case report.AnyResearch(s.Sections):
		return StageWriteResearched
	default:
		return StageGather
	}
}

// GatherRouter routes to the derived writer while a derived section is
// still unwritten, otherwise to compile.
func GatherRouter(_ context.Context, s State) string {
	if len(report.Pending(s.Sections, false)) > 0 {
		return StageWriteDerived
	}
	return StageCompile
}
