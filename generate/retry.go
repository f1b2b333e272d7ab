package generate

import (
	"context"
	"log/slog"
	"time"

	rferrors "github.com/randalmurphal/reportflow/errors"
)

// RetryConfig controls Retrying.
type RetryConfig struct {
	// MaxAttempts includes the first call. Values below 1 mean 1.
	MaxAttempts int
	// BaseDelay doubles after every failed attempt.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Logger    *slog.Logger
}

// DefaultRetryConfig returns three attempts starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

type retrying struct {
	next Generator
	cfg  RetryConfig
}

// Retrying retries transient failures with exponential backoff.
// Errors that errors.IsRetryable rejects are returned immediately.
func Retrying(next Generator, cfg RetryConfig) Generator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &retrying{next: next, cfg: cfg}
}

func (r *retrying) Complete(ctx context.Context, prompt string, p Params) (Completion, error) {
	delay := r.cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		c, err := r.next.Complete(ctx, prompt, p)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if attempt == r.cfg.MaxAttempts || !rferrors.IsRetryable(err) || ctx.Err() != nil {
			break
		}

		r.cfg.Logger.WarnContext(ctx, "generation failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return Completion{}, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if r.cfg.MaxDelay > 0 && delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
	return Completion{}, lastErr
}
