package generate

import (
	"context"
	"sync"

	"github.com/randalmurphal/reportflow/observe"
)

// Call is one recorded Mock invocation.
type Call struct {
	Prompt string
	Params Params
	Stage  string
}

// Mock is a scripted Generator safe for concurrent use.
//
// Responses are consumed in order and the last one repeats. A non-nil
// Handler takes precedence over Responses.
type Mock struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Handler   func(ctx context.Context, prompt string, p Params) (string, error)
	calls     []Call
}

// NewMock returns a Mock replying with responses in order.
func NewMock(responses ...string) *Mock {
	return &Mock{Responses: responses}
}

// WithHandler sets a function computing each reply.
func (m *Mock) WithHandler(h func(ctx context.Context, prompt string, p Params) (string, error)) *Mock {
	m.Handler = h
	return m
}

// Complete implements Generator.
func (m *Mock) Complete(ctx context.Context, prompt string, p Params) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}

	m.mu.Lock()
	call := Call{Prompt: prompt, Params: p, Stage: observe.Stage(ctx)}
	idx := len(m.calls)
	m.calls = append(m.calls, call)
	handler, fixedErr := m.Handler, m.Err
	var text string
	if n := len(m.Responses); n > 0 {
		text = m.Responses[min(idx, n-1)]
	}
	m.mu.Unlock()

	if handler != nil {
		var err error
		if text, err = handler(ctx, prompt, p); err != nil {
			return Completion{}, err
		}
	} else if fixedErr != nil {
		return Completion{}, fixedErr
	}

	if text == "" {
		return Completion{}, ErrEmptyCompletion
	}
	return Completion{
		Text:      text,
		TokensIn:  len(prompt) / 4,
		TokensOut: len(text) / 4,
		Model:     "mock",
	}, nil
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns the number of calls so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
