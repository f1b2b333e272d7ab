package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/reportflow/generate"
)

// Kind classifies stage failures.
type Kind string

const (
	// KindExternal is a generator or data failure that may succeed on retry.
	KindExternal Kind = "external"
	// KindInvariant is a missing prerequisite, bad configuration or an
	// empty generator response.
	KindInvariant Kind = "invariant"
	// KindCanceled means the run's context ended.
	KindCanceled Kind = "canceled"
	// KindDelivery is a notifier failure under the fatal policy.
	KindDelivery Kind = "delivery"
)

// ErrNotConfigured is returned when a stage's collaborator is missing from
// the context.
var ErrNotConfigured = errors.New("service not configured")

// StageError is the error every stage returns. The engine hands it to the
// caller unchanged; match it with errors.As.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Retryable reports whether re-running the stage could help.
func (e *StageError) Retryable() bool {
	return e.Kind == KindExternal || e.Kind == KindDelivery
}

// fail wraps err as a StageError for stage, classifying it. Errors that
// already carry a StageError pass through.
func fail(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrPrerequisite),
		errors.Is(err, ErrNotConfigured),
		errors.Is(err, generate.ErrEmptyCompletion):
		return KindInvariant
	default:
		return KindExternal
	}
}

// AsStageError extracts the StageError from err, if any.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	ok := errors.As(err, &se)
	return se, ok
}
