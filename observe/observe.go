// Package observe carries the logging, tracing and transcript sinks of a
// report run.
//
// An Observer is built once and handed to the engine; stages and generator
// decorators receive it explicitly. Nothing in this module reads a global
// logger or tracer.
package observe

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/randalmurphal/reportflow/transcript"
)

// TracerName is the instrumentation name used for spans.
const TracerName = "github.com/randalmurphal/reportflow"

// Recorder receives transcript turns. transcript.FileStore satisfies it.
type Recorder interface {
	RecordTurn(runID string, turn transcript.Turn) error
}

// Observer bundles the observability sinks of a run.
type Observer struct {
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Transcripts Recorder
}

// Option configures an Observer.
type Option func(*Observer)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Observer) { o.Logger = l }
}

// WithTracer sets the tracer used for stage and generator spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Observer) { o.Tracer = t }
}

// WithTracerProvider takes the tracer from a provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Observer) { o.Tracer = tp.Tracer(TracerName) }
}

// WithTranscripts sets the transcript recorder.
func WithTranscripts(r Recorder) Option {
	return func(o *Observer) { o.Transcripts = r }
}

// New creates an observer. Unset sinks default to slog.Default() and a
// no-op tracer.
func New(opts ...Option) *Observer {
	o := &Observer{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer(TracerName)
	}
	return o
}

// Discard returns an observer that drops everything.
func Discard() *Observer {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// Start opens a span. The returned finish func ends it, recording err.
func (o *Observer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := o.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Record writes a transcript turn for the run in ctx. Failures are logged,
// never returned.
func (o *Observer) Record(ctx context.Context, turn transcript.Turn) {
	if o.Transcripts == nil {
		return
	}
	runID := RunID(ctx)
	if runID == "" {
		return
	}
	if turn.Stage == "" {
		turn.Stage = Stage(ctx)
	}
	if turn.Section == "" {
		turn.Section = Section(ctx)
	}
	if err := o.Transcripts.RecordTurn(runID, turn); err != nil {
		o.Logger.WarnContext(ctx, "record transcript turn failed", "run_id", runID, "error", err)
	}
}

// Log returns the logger annotated with the run, stage and section in ctx.
func (o *Observer) Log(ctx context.Context) *slog.Logger {
	l := o.Logger
	if id := RunID(ctx); id != "" {
		l = l.With("run_id", id)
	}
	if s := Stage(ctx); s != "" {
		l = l.With("stage", s)
	}
	if s := Section(ctx); s != "" {
		l = l.With("section", s)
	}
	return l
}

// =============================================================================
// Run Labels
// =============================================================================

type labelKey string

const (
	runIDKey   labelKey = "reportflow.run_id"
	stageKey   labelKey = "reportflow.stage"
	sectionKey labelKey = "reportflow.section"
)

// WithRunID labels ctx with a run ID.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunID returns the run ID in ctx, or "".
func RunID(ctx context.Context) string {
	s, _ := ctx.Value(runIDKey).(string)
	return s
}

// WithStage labels ctx with the executing stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// Stage returns the stage in ctx, or "".
func Stage(ctx context.Context) string {
	s, _ := ctx.Value(stageKey).(string)
	return s
}

// WithSection labels ctx with the section being written.
func WithSection(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, sectionKey, name)
}

// Section returns the section in ctx, or "".
func Section(ctx context.Context) string {
	s, _ := ctx.Value(sectionKey).(string)
	return s
}
