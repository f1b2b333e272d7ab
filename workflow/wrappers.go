package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/reportflow/artifact"
	rfcontext "github.com/randalmurphal/reportflow/context"
	"github.com/randalmurphal/reportflow/observe"
)

// =============================================================================
// Stage Wrappers
// =============================================================================

// WithRetry re-runs a stage up to retries more times while it fails with a
// retryable StageError. Each attempt starts from the state the previous one
// returned, so completed work is not repeated.
func WithRetry(retries int, stage StageFunc) StageFunc {
	if retries <= 0 {
		return stage
	}
	return func(ctx context.Context, s State) (State, error) {
		delay := OptionsFromContext(ctx).RetryDelay
		for attempt := 0; ; attempt++ {
			result, err := stage(ctx, s)
			se, ok := AsStageError(err)
			if err == nil || !ok || !se.Retryable() || attempt >= retries {
				return result, err
			}
			s = result

			rfcontext.Observer(ctx).Log(ctx).WarnContext(ctx, "stage failed, retrying",
				"attempt", attempt+1,
				"error", err)

			timer := time.NewTimer(delay << attempt)
			select {
			case <-ctx.Done():
				timer.Stop()
				return s, fail(se.Stage, ctx.Err())
			case <-timer.C:
			}
		}
	}
}

// WithTiming logs stage duration at debug level
func WithTiming(stage StageFunc) StageFunc {
	return func(ctx context.Context, s State) (State, error) {
		start := time.Now()
		result, err := stage(ctx, s)
		rfcontext.Observer(ctx).Log(ctx).DebugContext(ctx, "stage execution completed",
			"duration", time.Since(start),
			"ok", err == nil)
		return result, err
	}
}

// WithObserver labels ctx with the stage name and wraps the stage in a span.
func WithObserver(name string, stage StageFunc) StageFunc {
	return func(ctx context.Context, s State) (State, error) {
		ctx = observe.WithStage(ctx, name)
		if s.RunID != "" && observe.RunID(ctx) == "" {
			ctx = observe.WithRunID(ctx, s.RunID)
		}
		obs := rfcontext.Observer(ctx)
		ctx, end := obs.Start(ctx, "stage."+name, attribute.String("reportflow.run_id", s.RunID))

		obs.Log(ctx).InfoContext(ctx, "stage started")
		result, err := stage(ctx, s)
		end(err)
		if err != nil {
			obs.Log(ctx).ErrorContext(ctx, "stage failed", "error", err)
		}
		return result, err
	}
}

// WithSnapshot saves the state returned by the stage to the run's
// artifacts, successful or not. A failed stage's snapshot keeps its partial
// output, which resume prefers over the graph checkpoint. Save failures
// are logged.
func WithSnapshot(name string, stage StageFunc) StageFunc {
	return func(ctx context.Context, s State) (State, error) {
		result, err := stage(ctx, s)

		mgr := rfcontext.Artifact(ctx)
		if mgr == nil || result.RunID == "" {
			return result, err
		}
		log := rfcontext.Observer(ctx).Log(ctx)
		if saveErr := mgr.SaveJSON(result.RunID, artifact.ArtifactState, result); saveErr != nil {
			log.WarnContext(ctx, "state snapshot failed", "error", saveErr)
			return result, err
		}
		if err == nil {
			if markErr := mgr.MarkStage(result.RunID, name); markErr != nil {
				log.WarnContext(ctx, "record stage failed", "error", markErr)
			}
		}
		return result, err
	}
}

// Wrap applies the standard wrappers: snapshots, retries, timing and
// observation, outermost last.
func Wrap(name string, retries int, stage StageFunc) StageFunc {
	return WithObserver(name, WithTiming(WithSnapshot(name, WithRetry(retries, stage))))
}

// LoadSnapshot reads the last state snapshot of a run.
func LoadSnapshot(mgr *artifact.Manager, runID string) (State, error) {
	var s State
	err := mgr.LoadJSON(runID, artifact.ArtifactState, &s)
	return s, err
}
