package workflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/reportflow/analytics"
	rfcontext "github.com/randalmurphal/reportflow/context"
	"github.com/randalmurphal/reportflow/generate"
	"github.com/randalmurphal/reportflow/observe"
	"github.com/randalmurphal/reportflow/prompt"
	"github.com/randalmurphal/reportflow/report"
)

// Stage names, in graph order.
const (
	StageFetchData       = "fetch-data"
	StageAnalyze         = "analyze"
	StageInsight         = "insight"
	StagePlan            = "plan"
	StageWriteResearched = "write-researched"
	StageGather          = "gather"
	StageWriteDerived    = "write-derived"
	StageCompile         = "compile"
	StageDeliver         = "deliver"
)

// StageFunc processes state and returns the updated state. On failure it
// still returns the state as far as it got, so completed work survives a
// retry or a resume.
type StageFunc func(ctx context.Context, s State) (State, error)

// =============================================================================
// Data Stages
// =============================================================================

// FetchData collects the dataset and its weekly and monthly comparisons.
// Source failures do not fail the run: the stage stores a degraded dataset
// and the report is written without data.
func FetchData(ctx context.Context, s State) (State, error) {
	if s.Dataset != nil {
		return s, nil
	}
	src := rfcontext.Source(ctx)
	if src == nil {
		return s, fail(StageFetchData, fmt.Errorf("%w: data source", ErrNotConfigured))
	}

	opts := OptionsFromContext(ctx)
	now := opts.Now()
	if s.Query.Window == (report.DateWindow{}) {
		s.Query.Window = analytics.ReportWindow(now, opts.DefaultDays)
	}
	q := s.Query
	q.PropertyRef = s.PropertyRef

	ds, err := analytics.Collect(ctx, src, q, now)
	if err != nil {
		if ctx.Err() != nil {
			return s, fail(StageFetchData, ctx.Err())
		}
		rfcontext.Observer(ctx).Log(ctx).ErrorContext(ctx, "analytics fetch failed, continuing without data",
			"property", s.PropertyRef,
			"window", q.Window.String(),
			"error", err)
		s.Dataset = report.Degraded(s.PropertyRef, err)
		return s, nil
	}

	s.Dataset = ds
	return s, nil
}

// =============================================================================
// Generation Stages
// =============================================================================

// Analyze writes the overall analysis of the dataset.
func Analyze(ctx context.Context, s State) (State, error) {
	if s.AnalysisText != "" {
		return s, nil
	}
	if err := s.Validate(RequireDataset); err != nil {
		return s, fail(StageAnalyze, err)
	}

	c, err := complete(ctx, prompt.Analyze, newAnalyzeView(s), prompt.SystemAnalyst)
	if err != nil {
		return s, fail(StageAnalyze, err)
	}
	s.AddUsage(c.TokensIn, c.TokensOut)
	s.AnalysisText = c.Text
	return s, nil
}

// Insight distills the analysis into key insights.
func Insight(ctx context.Context, s State) (State, error) {
	if s.InsightsText != "" {
		return s, nil
	}
	if err := s.Validate(RequireAnalysis); err != nil {
		return s, fail(StageInsight, err)
	}

	c, err := complete(ctx, prompt.Insight, struct{ Analysis string }{s.AnalysisText}, prompt.SystemAnalyst)
	if err != nil {
		return s, fail(StageInsight, err)
	}
	s.AddUsage(c.TokensIn, c.TokensOut)
	s.InsightsText = c.Text
	return s, nil
}

// Plan asks for a report outline and parses it into sections. An outline
// with no sections leaves Sections empty and the router ends the run.
func Plan(ctx context.Context, s State) (State, error) {
	if len(s.Sections) > 0 {
		return s, nil
	}
	if err := s.Validate(RequireDataset, RequireAnalysis, RequireInsights); err != nil {
		return s, fail(StagePlan, err)
	}

	c, err := complete(ctx, prompt.Plan, newPlanView(s), prompt.SystemPlanner)
	if err != nil {
		return s, fail(StagePlan, err)
	}
	s.AddUsage(c.TokensIn, c.TokensOut)
	s.Sections = ParseOutline(c.Text)

	rfcontext.Observer(ctx).Log(ctx).InfoContext(ctx, "report planned",
		"sections", len(s.Sections),
		"researched", len(report.Pending(s.Sections, true)))
	return s, nil
}

// WriteResearched writes every unwritten section that requires research.
func WriteResearched(ctx context.Context, s State) (State, error) {
	if err := s.Validate(RequireDataset, RequireSections); err != nil {
		return s, fail(StageWriteResearched, err)
	}
	err := writeSections(ctx, &s, true, prompt.WriteResearched, prompt.SystemSection,
		func(sec report.Section) any { return newResearchedView(s, sec) })
	return s, fail(StageWriteResearched, err)
}

// Gather drops researched sections that were never written and keeps
// everything else in order.
func Gather(ctx context.Context, s State) (State, error) {
	kept := make([]*report.Section, 0, len(s.Sections))
	for _, sec := range s.Sections {
		if sec.Complete() || !sec.RequiresResearch {
			kept = append(kept, sec)
			continue
		}
		rfcontext.Observer(ctx).Log(ctx).WarnContext(ctx, "dropping unwritten section", "section", sec.Name)
	}
	s.Sections = kept
	return s, nil
}

// WriteDerived writes the unwritten derived sections from the researched
// ones.
func WriteDerived(ctx context.Context, s State) (State, error) {
	if err := s.Validate(RequireDataset, RequireSections); err != nil {
		return s, fail(StageWriteDerived, err)
	}
	researched := researchedContext(s.Sections)
	err := writeSections(ctx, &s, false, prompt.WriteDerived, prompt.SystemFinal,
		func(sec report.Section) any { return newDerivedView(s, sec, researched) })
	return s, fail(StageWriteDerived, err)
}

// writeSections fans the pending sections of one class out to a bounded
// pool. Results land by index after every dispatched task has finished;
// the first failure in section order is returned and successful sections
// keep their content.
func writeSections(
	ctx context.Context,
	s *State,
	research bool,
	tmpl, system string,
	view func(sec report.Section) any,
) error {
	var pending []int
	for i, sec := range s.Sections {
		if sec.RequiresResearch == research && !sec.Complete() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	opts := OptionsFromContext(ctx)
	results := make([]generate.Completion, len(pending))
	errs := make([]error, len(pending))

	var g errgroup.Group
	g.SetLimit(opts.MaxConcurrency)

	var dispatchErr error
	for k, i := range pending {
		if err := ctx.Err(); err != nil {
			dispatchErr = err
			break
		}
		sec := *s.Sections[i]
		data := view(sec)
		g.Go(func() error {
			sctx := observe.WithSection(ctx, sec.Name)
			results[k], errs[k] = complete(sctx, tmpl, data, system)
			return nil
		})
	}
	_ = g.Wait()

	var first error
	for k, i := range pending {
		sec := s.Sections[i]
		if errs[k] != nil {
			if first == nil {
				first = fmt.Errorf("section %q: %w", sec.Name, errs[k])
			}
			continue
		}
		sec.Content = results[k].Text
		s.AddUsage(results[k].TokensIn, results[k].TokensOut)
	}
	if first != nil {
		return first
	}
	return dispatchErr
}

// complete renders a prompt and its system prompt and calls the generator.
// Blank text is an error whatever the backend reported.
func complete(ctx context.Context, name string, data any, system string) (generate.Completion, error) {
	gen := rfcontext.Generator(ctx)
	if gen == nil {
		return generate.Completion{}, fmt.Errorf("%w: generator", ErrNotConfigured)
	}
	loader := rfcontext.Prompt(ctx)
	if loader == nil {
		loader = prompt.NewLoader()
	}

	text, err := loader.Render(name, data)
	if err != nil {
		return generate.Completion{}, fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}
	sys, err := loader.Load(system)
	if err != nil {
		return generate.Completion{}, fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}

	opts := OptionsFromContext(ctx)
	c, err := gen.Complete(ctx, text, generate.Params{
		Temperature:  opts.Temperature,
		SystemPrompt: sys,
		Model:        opts.Model,
	})
	if err != nil {
		return c, err
	}
	if strings.TrimSpace(c.Text) == "" {
		return c, fmt.Errorf("%s: %w", name, generate.ErrEmptyCompletion)
	}
	return c, nil
}
