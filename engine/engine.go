// Package engine runs the report workflow: it compiles the stage graph,
// seeds the state of a run, records its lifecycle in the artifact,
// transcript and run stores, and maps the final state to an Output.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph/checkpoint"
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/reportflow/artifact"
	rfcontext "github.com/randalmurphal/reportflow/context"
	"github.com/randalmurphal/reportflow/observe"
	"github.com/randalmurphal/reportflow/report"
	"github.com/randalmurphal/reportflow/runstore"
	"github.com/randalmurphal/reportflow/transcript"
	"github.com/randalmurphal/reportflow/workflow"
)

// ErrEmptyPlan is returned when planning produced no sections.
var ErrEmptyPlan = errors.New("report plan has no sections")

// RunRecorder persists run history. runstore.Store satisfies it.
type RunRecorder interface {
	Begin(ctx context.Context, r runstore.Run) error
	Finish(ctx context.Context, r runstore.Run) error
}

// Input starts a run.
type Input struct {
	PropertyRef string
	// RunID overrides the generated run ID.
	RunID string
}

// Output is the result of a run.
type Output struct {
	RunID         string
	FinalDocument string
	Warnings      []string
	Metrics       workflow.Metrics
}

// Engine executes report runs. It is safe for concurrent use; each run
// works on its own state.
type Engine struct {
	services *rfcontext.Services
	obs      *observe.Observer
	opts     workflow.Options
	retries  int
	query    report.Query
	runs     RunRecorder

	checkpoints checkpoint.Store
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the observer used for the run and its stages.
func WithObserver(obs *observe.Observer) Option {
	return func(e *Engine) { e.obs = obs }
}

// WithMaxConcurrency bounds the section writer pool.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) { e.opts.MaxConcurrency = n }
}

// WithStageRetries sets how many extra attempts a failing stage gets.
func WithStageRetries(n int) Option {
	return func(e *Engine) { e.retries = n }
}

// WithDeliveryStage moves delivery out of compile into its own stage.
func WithDeliveryStage(enabled bool) Option {
	return func(e *Engine) { e.opts.DeliveryStage = enabled }
}

// WithNotifyPolicy sets what a delivery failure does to the run.
func WithNotifyPolicy(p workflow.NotifyPolicy) Option {
	return func(e *Engine) { e.opts.NotifyPolicy = p }
}

// WithRunStore records every run in r.
func WithRunStore(r RunRecorder) Option {
	return func(e *Engine) { e.runs = r }
}

// WithCheckpointStore sets where graph checkpoints are kept. It defaults
// to the services' store, then to memory.
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(e *Engine) { e.checkpoints = store }
}

// WithClock sets the clock used for run IDs and report windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.opts.Now = now }
}

// WithQuery sets the metrics, dimensions and row limit of every run.
func WithQuery(q report.Query) Option {
	return func(e *Engine) { e.query = q }
}

// WithStageOptions replaces the stage options wholesale. Later options
// still apply on top.
func WithStageOptions(o workflow.Options) Option {
	return func(e *Engine) { e.opts = o }
}

// New creates an engine over services. Settings in services, when present,
// provide the defaults that options override.
func New(services *rfcontext.Services, opts ...Option) (*Engine, error) {
	if services == nil {
		return nil, errors.New("engine: services are required")
	}
	e := &Engine{
		services:    services,
		obs:         services.Observer,
		opts:        workflow.DefaultOptions(),
		checkpoints: services.Checkpoints,
	}
	if s := services.Settings; s != nil {
		e.opts.MaxConcurrency = s.MaxConcurrency
		e.opts.Temperature = s.Temperature
		e.opts.Model = s.Model
		e.opts.NotifyPolicy = workflow.NotifyPolicy(s.NotifyPolicy)
		e.opts.DeliveryStage = s.DeliveryStage
		e.opts.Subject = s.NotifySubject
		e.opts.DefaultDays = s.DefaultDays
		e.retries = s.StageRetries
		e.query = report.Query{
			Metrics:    s.Metrics,
			Dimensions: s.Dimensions,
			RowLimit:   s.RowLimit,
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.obs == nil {
		e.obs = observe.Discard()
	}
	if e.checkpoints == nil {
		e.checkpoints = checkpoint.NewMemoryStore()
	}
	if e.opts.NotifyPolicy != "" && !e.opts.NotifyPolicy.Valid() {
		return nil, fmt.Errorf("engine: unknown notify policy %q", e.opts.NotifyPolicy)
	}
	if e.retries < 0 {
		return nil, fmt.Errorf("engine: stage retries must not be negative")
	}

	// Compile once to surface graph errors at construction.
	if _, err := e.compile(&tracker{}); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return e, nil
}

// Run executes a new report run for in.PropertyRef.
func (e *Engine) Run(ctx context.Context, in Input) (Output, error) {
	now := e.opts.Now
	if now == nil {
		now = time.Now
	}
	runID := in.RunID
	if runID == "" {
		runID = workflow.NewRunID(now())
	}

	s := workflow.NewState(runID, strings.TrimSpace(in.PropertyRef), e.query)
	return e.execute(ctx, s, false)
}

// Resume continues runID after its last checkpointed stage. The run's
// state snapshot, when there is one, seeds the resumed graph so the
// partial output of a failed stage is kept; completed generator calls are
// not repeated.
func (e *Engine) Resume(ctx context.Context, runID string) (Output, error) {
	s, err := e.resumeState(runID)
	if err != nil {
		return Output{RunID: runID}, fmt.Errorf("resume %s: %w", runID, err)
	}
	if s.RunID == "" {
		s.RunID = runID
	}
	return e.execute(ctx, s, true)
}

// resumeState returns the newest saved state of runID: the artifact
// snapshot, else the state of the latest graph checkpoint.
func (e *Engine) resumeState(runID string) (workflow.State, error) {
	if mgr := e.services.Artifacts; mgr != nil {
		s, err := workflow.LoadSnapshot(mgr, runID)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, artifact.ErrArtifactNotFound) {
			return s, err
		}
	}
	s, err := latestCheckpoint(e.checkpoints, runID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return s, artifact.ErrRunNotFound
	}
	return s, err
}

func (e *Engine) execute(ctx context.Context, s workflow.State, resume bool) (Output, error) {
	ctx = observe.WithRunID(ctx, s.RunID)
	ctx, end := e.obs.Start(ctx, "report.run",
		attribute.String("reportflow.run_id", s.RunID),
		attribute.String("reportflow.property", s.PropertyRef))
	log := e.obs.Log(ctx)
	log.InfoContext(ctx, "report run started", "property", s.PropertyRef)

	e.begin(ctx, s)

	runCtx := e.services.InjectAll(ctx)
	runCtx = rfcontext.WithObserver(runCtx, e.obs)
	runCtx = workflow.WithOptions(runCtx, e.opts)

	tr := &tracker{last: s}
	g, err := e.compile(tr)
	if err == nil {
		fctx := flowgraph.NewContext(runCtx,
			flowgraph.WithContextRunID(s.RunID),
			flowgraph.WithCheckpointer(e.checkpoints),
			flowgraph.WithLogger(log))
		var result workflow.State
		result, err = e.runGraph(fctx, g, s, resume)
		if err == nil {
			tr.last = result
		}
	}
	final := tr.last
	final.FinalizeDuration()

	switch {
	case tr.err != nil:
		err = tr.err
	case err != nil:
		err = fmt.Errorf("run graph: %w", err)
	case len(final.Sections) == 0:
		err = ErrEmptyPlan
	}

	e.finish(ctx, final, err)
	end(err)

	if err == nil {
		if delErr := e.checkpoints.DeleteRun(final.RunID); delErr != nil {
			log.WarnContext(ctx, "delete checkpoints failed", "error", delErr)
		}
	}

	out := Output{
		RunID:    final.RunID,
		Warnings: final.Warnings,
		Metrics:  final.Metrics,
	}
	if err != nil {
		log.ErrorContext(ctx, "report run failed", "error", err, "duration", final.Metrics.TotalDuration)
		return out, err
	}

	out.FinalDocument = final.FinalDocument
	log.InfoContext(ctx, "report run completed",
		"sections", len(final.Sections),
		"generator_calls", final.Metrics.GeneratorCalls,
		"warnings", len(final.Warnings),
		"duration", final.Metrics.TotalDuration)
	return out, nil
}

// =============================================================================
// Lifecycle Recording
// =============================================================================

// begin records the run as started. Store failures are logged; they never
// stop a run.
func (e *Engine) begin(ctx context.Context, s workflow.State) {
	log := e.obs.Log(ctx)
	if mgr := e.services.Artifacts; mgr != nil {
		if err := mgr.BeginRun(s.RunID, s.PropertyRef); err != nil {
			log.WarnContext(ctx, "record run start failed", "store", "artifact", "error", err)
		}
	}
	if ts := e.services.Transcripts; ts != nil {
		if err := ts.StartRun(s.RunID, transcript.RunMetadata{PropertyRef: s.PropertyRef}); err != nil {
			log.WarnContext(ctx, "record run start failed", "store", "transcript", "error", err)
		}
	}
	if e.runs != nil {
		r := runstore.Run{ID: s.RunID, PropertyRef: s.PropertyRef, StartedAt: s.Metrics.StartTime}
		if err := e.runs.Begin(ctx, r); err != nil {
			log.WarnContext(ctx, "record run start failed", "store", "runs", "error", err)
		}
	}
}

func (e *Engine) finish(ctx context.Context, s workflow.State, runErr error) {
	log := e.obs.Log(ctx)
	status := runStatus(runErr)

	if mgr := e.services.Artifacts; mgr != nil {
		if err := mgr.FinishRun(s.RunID, artifact.RunStatus(status), runErr); err != nil {
			log.WarnContext(ctx, "record run end failed", "store", "artifact", "error", err)
		}
	}
	if ts := e.services.Transcripts; ts != nil {
		if err := ts.EndRun(s.RunID, transcript.RunStatus(status), runErr); err != nil {
			log.WarnContext(ctx, "record run end failed", "store", "transcript", "error", err)
		}
	}
	if e.runs != nil {
		ended := time.Now().UTC()
		r := runstore.Run{
			ID:             s.RunID,
			PropertyRef:    s.PropertyRef,
			Status:         status,
			TokensIn:       s.Metrics.TokensIn,
			TokensOut:      s.Metrics.TokensOut,
			GeneratorCalls: s.Metrics.GeneratorCalls,
			Warnings:       len(s.Warnings),
			EndedAt:        &ended,
		}
		if runErr != nil {
			r.Error = runErr.Error()
		}
		// The run context may be done; history is still written.
		if err := e.runs.Finish(context.WithoutCancel(ctx), r); err != nil {
			log.WarnContext(ctx, "record run end failed", "store", "runs", "error", err)
		}
	}
}

func runStatus(err error) string {
	if err == nil {
		return runstore.StatusCompleted
	}
	if se, ok := workflow.AsStageError(err); ok && se.Kind == workflow.KindCanceled {
		return runstore.StatusCanceled
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return runstore.StatusCanceled
	}
	return runstore.StatusFailed
}
