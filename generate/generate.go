// Package generate defines the text generation interface used by report
// stages, its backends (OpenAI-compatible chat models through eino, and the
// Claude CLI through flowgraph's llm client) and the decorators that add
// retries, rate limiting and observation.
package generate

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrEmptyCompletion is returned when a backend produces no text.
// A written section must never be empty, so this is always an error.
var ErrEmptyCompletion = errors.New("generator returned empty completion")

// DefaultTemperature is the sampling temperature used by report stages.
const DefaultTemperature = 0.7

// Params tune a single completion.
type Params struct {
	Temperature  float64
	SystemPrompt string
	// Model overrides the backend's default model when set.
	Model string
	// MaxTokens caps the completion length. Zero leaves it to the backend.
	MaxTokens int
}

// Completion is the result of one generation call.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
	Model     string
	Duration  time.Duration
}

// Generator produces text for a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string, p Params) (Completion, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, prompt string, p Params) (Completion, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, prompt string, p Params) (Completion, error) {
	return f(ctx, prompt, p)
}

// finish trims the text and rejects empty completions.
func finish(c Completion, started time.Time) (Completion, error) {
	c.Text = strings.TrimSpace(c.Text)
	c.Duration = time.Since(started)
	if c.Text == "" {
		return c, ErrEmptyCompletion
	}
	return c, nil
}
