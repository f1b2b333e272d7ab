package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAIConfig configures an OpenAI-compatible chat backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty uses api.openai.com
	Model   string
	Timeout time.Duration
}

// OpenAI generates text with an eino chat model.
type OpenAI struct {
	chat  einomodel.BaseChatModel
	model string
}

// NewOpenAI builds the eino openai chat model.
func NewOpenAI(ctx context.Context, cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	chatConfig := &openai.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	}
	if cfg.BaseURL != "" {
		chatConfig.BaseURL = cfg.BaseURL
	}

	cm, err := openai.NewChatModel(ctx, chatConfig)
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return NewChatModelGenerator(cm, cfg.Model), nil
}

// NewChatModelGenerator wraps any eino chat model.
func NewChatModelGenerator(cm einomodel.BaseChatModel, model string) *OpenAI {
	return &OpenAI{chat: cm, model: model}
}

// Complete implements Generator.
func (o *OpenAI) Complete(ctx context.Context, prompt string, p Params) (Completion, error) {
	started := time.Now()

	messages := make([]*schema.Message, 0, 2)
	if p.SystemPrompt != "" {
		messages = append(messages, schema.SystemMessage(p.SystemPrompt))
	}
	messages = append(messages, schema.UserMessage(prompt))

	model := o.model
	opts := []einomodel.Option{einomodel.WithTemperature(float32(p.Temperature))}
	if p.Model != "" {
		model = p.Model
		opts = append(opts, einomodel.WithModel(p.Model))
	}
	if p.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(p.MaxTokens))
	}

	resp, err := o.chat.Generate(ctx, messages, opts...)
	if err != nil {
		return Completion{}, fmt.Errorf("openai generate: %w", err)
	}
	if resp == nil {
		return Completion{}, ErrEmptyCompletion
	}

	c := Completion{Text: resp.Content, Model: model}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		c.TokensIn = resp.ResponseMeta.Usage.PromptTokens
		c.TokensOut = resp.ResponseMeta.Usage.CompletionTokens
	}
	return finish(c, started)
}
