package generate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/randalmurphal/llmkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rferrors "github.com/randalmurphal/reportflow/errors"
	"github.com/randalmurphal/reportflow/observe"
	"github.com/randalmurphal/reportflow/transcript"
)

// =============================================================================
// Mock
// =============================================================================

func TestMock_ResponsesInOrderLastRepeats(t *testing.T) {
	m := NewMock("one", "two")
	ctx := context.Background()

	for _, want := range []string{"one", "two", "two"} {
		c, err := m.Complete(ctx, "p", Params{})
		require.NoError(t, err)
		assert.Equal(t, want, c.Text)
	}
	assert.Equal(t, 3, m.CallCount())
}

func TestMock_EmptyIsError(t *testing.T) {
	_, err := NewMock().Complete(context.Background(), "p", Params{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestMock_RecordsStage(t *testing.T) {
	m := NewMock("x")
	ctx := observe.WithStage(context.Background(), "plan")

	_, err := m.Complete(ctx, "outline please", Params{Temperature: 0.7})
	require.NoError(t, err)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "plan", calls[0].Stage)
	assert.Equal(t, 0.7, calls[0].Params.Temperature)
}

func TestMock_Handler(t *testing.T) {
	boom := errors.New("boom")
	m := NewMock().WithHandler(func(_ context.Context, prompt string, _ Params) (string, error) {
		if prompt == "fail" {
			return "", boom
		}
		return "echo " + prompt, nil
	})

	c, err := m.Complete(context.Background(), "hi", Params{})
	require.NoError(t, err)
	assert.Equal(t, "echo hi", c.Text)

	_, err = m.Complete(context.Background(), "fail", Params{})
	assert.ErrorIs(t, err, boom)
}

// =============================================================================
// Claude
// =============================================================================

func TestClaude_FixedClient(t *testing.T) {
	var gotSystem string
	client := llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		gotSystem = req.SystemPrompt
		return &llm.CompletionResponse{Content: "  analysis text \n"}, nil
	})

	c, err := NewLLM(client).Complete(context.Background(), "analyze", Params{SystemPrompt: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "analysis text", c.Text)
	assert.Equal(t, "be brief", gotSystem)
}

func TestClaude_EmptyContent(t *testing.T) {
	client := llm.NewMockClient("").WithResponses("   ")
	_, err := NewLLM(client).Complete(context.Background(), "p", Params{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestClaude_WrapsClientError(t *testing.T) {
	boom := errors.New("cli crashed")
	client := llm.NewMockClient("").WithCompleteFunc(func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, boom
	})
	_, err := NewLLM(client).Complete(context.Background(), "p", Params{})
	assert.ErrorIs(t, err, boom)
}

func TestClaude_ModelPerStage(t *testing.T) {
	var mu sync.Mutex
	built := map[string]int{}
	g := NewClaude(WithClientFactory(func(m string) llm.Client {
		mu.Lock()
		built[m]++
		mu.Unlock()
		return llm.NewMockClient("ok")
	}))

	ctx := observe.WithStage(context.Background(), "analyze")
	c, err := g.Complete(ctx, "p", Params{})
	require.NoError(t, err)
	assert.Equal(t, string(model.ModelOpus), c.Model)

	_, err = g.Complete(ctx, "p", Params{})
	require.NoError(t, err)

	ctx = observe.WithStage(context.Background(), "write-derived")
	c, err = g.Complete(ctx, "p", Params{})
	require.NoError(t, err)
	assert.Equal(t, string(model.ModelSonnet), c.Model)

	assert.Equal(t, 1, built[string(model.ModelOpus)], "clients are cached per model")
	assert.Len(t, built, 2)
}

func TestClaude_ModelOverrides(t *testing.T) {
	g := NewClaude(WithDefaultModel("pinned"))
	ctx := observe.WithStage(context.Background(), "analyze")

	assert.Equal(t, "pinned", g.ModelFor(ctx, Params{}))
	assert.Equal(t, "explicit", g.ModelFor(ctx, Params{Model: "explicit"}))
}

// =============================================================================
// OpenAI (eino)
// =============================================================================

type fakeChatModel struct {
	input []*schema.Message
	opts  *einomodel.Options
	resp  *schema.Message
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.input = input
	f.opts = einomodel.GetCommonOptions(&einomodel.Options{}, opts...)
	return f.resp, f.err
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func TestOpenAI_Complete(t *testing.T) {
	fake := &fakeChatModel{resp: &schema.Message{
		Role:    schema.Assistant,
		Content: "Traffic grew.",
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 42, CompletionTokens: 7},
		},
	}}
	g := NewChatModelGenerator(fake, "gpt-4o")

	c, err := g.Complete(context.Background(), "write", Params{Temperature: 0.7, SystemPrompt: "analyst"})
	require.NoError(t, err)

	assert.Equal(t, "Traffic grew.", c.Text)
	assert.Equal(t, 42, c.TokensIn)
	assert.Equal(t, 7, c.TokensOut)
	assert.Equal(t, "gpt-4o", c.Model)

	require.Len(t, fake.input, 2)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, "analyst", fake.input[0].Content)
	assert.Equal(t, schema.User, fake.input[1].Role)
	require.NotNil(t, fake.opts.Temperature)
	assert.InDelta(t, 0.7, *fake.opts.Temperature, 1e-6)
}

func TestOpenAI_NoSystemPromptNoUsage(t *testing.T) {
	fake := &fakeChatModel{resp: &schema.Message{Role: schema.Assistant, Content: "ok"}}
	g := NewChatModelGenerator(fake, "gpt-4o")

	c, err := g.Complete(context.Background(), "write", Params{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Len(t, fake.input, 1)
	assert.Zero(t, c.TokensIn)
	assert.Equal(t, "gpt-4o-mini", c.Model)
	require.NotNil(t, fake.opts.Model)
	assert.Equal(t, "gpt-4o-mini", *fake.opts.Model)
}

func TestOpenAI_Errors(t *testing.T) {
	boom := errors.New("429 Too Many Requests")
	_, err := NewChatModelGenerator(&fakeChatModel{err: boom}, "m").Complete(context.Background(), "p", Params{})
	assert.ErrorIs(t, err, boom)
	assert.True(t, rferrors.IsRetryable(err))

	_, err = NewChatModelGenerator(&fakeChatModel{resp: &schema.Message{Content: " "}}, "m").Complete(context.Background(), "p", Params{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(context.Background(), OpenAIConfig{})
	assert.Error(t, err)
}

// =============================================================================
// Decorators
// =============================================================================

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetrying_RecoversFromTransient(t *testing.T) {
	calls := 0
	g := Retrying(Func(func(context.Context, string, Params) (Completion, error) {
		calls++
		if calls < 3 {
			return Completion{}, errors.New("503 service unavailable")
		}
		return Completion{Text: "done"}, nil
	}), fastRetry(3))

	c, err := g.Complete(context.Background(), "p", Params{})
	require.NoError(t, err)
	assert.Equal(t, "done", c.Text)
	assert.Equal(t, 3, calls)
}

func TestRetrying_StopsOnPermanent(t *testing.T) {
	calls := 0
	g := Retrying(Func(func(context.Context, string, Params) (Completion, error) {
		calls++
		return Completion{}, ErrEmptyCompletion
	}), fastRetry(5))

	_, err := g.Complete(context.Background(), "p", Params{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Equal(t, 1, calls)
}

func TestRetrying_GivesUp(t *testing.T) {
	calls := 0
	g := Retrying(Func(func(context.Context, string, Params) (Completion, error) {
		calls++
		return Completion{}, rferrors.ErrRateLimited
	}), fastRetry(2))

	_, err := g.Complete(context.Background(), "p", Params{})
	assert.ErrorIs(t, err, rferrors.ErrRateLimited)
	assert.Equal(t, 2, calls)
}

func TestRetrying_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := Retrying(Func(func(context.Context, string, Params) (Completion, error) {
		cancel()
		return Completion{}, errors.New("connection reset")
	}), RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour})

	_, err := g.Complete(ctx, "p", Params{})
	assert.Error(t, err)
}

func TestRateLimited(t *testing.T) {
	m := NewMock("x")
	assert.Same(t, Generator(m), RateLimited(m, 0))

	g := RateLimited(m, 60000)
	for range 3 {
		_, err := g.Complete(context.Background(), "p", Params{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, m.CallCount())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RateLimited(m, 1).Complete(ctx, "p", Params{})
	assert.Error(t, err)
}

type turnSink struct {
	mu    sync.Mutex
	turns []transcript.Turn
}

func (s *turnSink) RecordTurn(_ string, turn transcript.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	return nil
}

func TestObserved_RecordsTurns(t *testing.T) {
	sink := &turnSink{}
	obs := observe.New(observe.WithTranscripts(sink), observe.WithLogger(observe.Discard().Logger))
	ctx := observe.WithStage(observe.WithRunID(context.Background(), "run-1"), "analyze")

	g := Observed(NewMock("result"), obs)
	_, err := g.Complete(ctx, "prompt text", Params{})
	require.NoError(t, err)

	require.Len(t, sink.turns, 2)
	assert.Equal(t, transcript.RolePrompt, sink.turns[0].Role)
	assert.Equal(t, "prompt text", sink.turns[0].Content)
	assert.Equal(t, transcript.RoleCompletion, sink.turns[1].Role)
	assert.Equal(t, "analyze", sink.turns[1].Stage)

	_, err = Observed(NewMock(), obs).Complete(ctx, "p", Params{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Equal(t, transcript.RoleError, sink.turns[len(sink.turns)-1].Role)
}
