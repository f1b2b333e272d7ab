package generate

import (
	"context"
	"fmt"
	"sync"
	"time"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/reportflow/observe"
	"github.com/randalmurphal/reportflow/task"
)

// Claude generates text through llmkit Claude clients. Unless a fixed
// client is configured, the model is chosen per stage from the task tiers:
// analysis on the thinking tier, writing on the default tier.
type Claude struct {
	workdir string
	fixed   llm.Client
	model   string
	factory func(model string) llm.Client

	mu      sync.Mutex
	clients map[string]llm.Client
}

// ClaudeOption configures a Claude generator.
type ClaudeOption func(*Claude)

// WithWorkdir sets the working directory of the Claude CLI.
func WithWorkdir(dir string) ClaudeOption {
	return func(c *Claude) { c.workdir = dir }
}

// WithClient routes every call through one client regardless of stage.
func WithClient(client llm.Client) ClaudeOption {
	return func(c *Claude) { c.fixed = client }
}

// WithDefaultModel pins the model for every stage.
func WithDefaultModel(model string) ClaudeOption {
	return func(c *Claude) { c.model = model }
}

// WithClientFactory replaces how per-model clients are built.
func WithClientFactory(f func(model string) llm.Client) ClaudeOption {
	return func(c *Claude) { c.factory = f }
}

// NewClaude creates a Claude generator backed by the claude CLI.
func NewClaude(opts ...ClaudeOption) *Claude {
	c := &Claude{clients: make(map[string]llm.Client)}
	for _, opt := range opts {
		opt(c)
	}
	if c.factory == nil {
		c.factory = func(model string) llm.Client {
			if c.workdir == "" {
				return llm.NewClaudeCLI(
					llm.WithModel(model),
					llm.WithDangerouslySkipPermissions(),
				)
			}
			return llm.NewClaudeCLI(
				llm.WithModel(model),
				llm.WithWorkdir(c.workdir),
				llm.WithDangerouslySkipPermissions(),
			)
		}
	}
	return c
}

// NewLLM wraps a single llm.Client.
func NewLLM(client llm.Client) *Claude {
	return NewClaude(WithClient(client))
}

// ModelFor returns the model a call in ctx would use.
func (c *Claude) ModelFor(ctx context.Context, p Params) string {
	switch {
	case p.Model != "":
		return p.Model
	case c.model != "":
		return c.model
	default:
		return string(task.SelectModel(task.ForStage(observe.Stage(ctx))))
	}
}

func (c *Claude) client(model string) llm.Client {
	if c.fixed != nil {
		return c.fixed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.clients[model]
	if !ok {
		cl = c.factory(model)
		c.clients[model] = cl
	}
	return cl
}

// Complete implements Generator. Temperature is not forwarded; the CLI
// manages sampling itself.
func (c *Claude) Complete(ctx context.Context, prompt string, p Params) (Completion, error) {
	started := time.Now()
	model := c.ModelFor(ctx, p)

	resp, err := c.client(model).Complete(ctx, llm.CompletionRequest{
		SystemPrompt: p.SystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("claude complete: %w", err)
	}

	return finish(Completion{
		Text:      resp.Content,
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
		Model:     model,
	}, started)
}
