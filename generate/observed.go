package generate

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/reportflow/observe"
	"github.com/randalmurphal/reportflow/transcript"
)

type observed struct {
	next Generator
	obs  *observe.Observer
}

// Observed wraps next with a span, a debug log line and prompt/completion
// transcript turns for every call.
func Observed(next Generator, obs *observe.Observer) Generator {
	if obs == nil {
		obs = observe.Discard()
	}
	return &observed{next: next, obs: obs}
}

func (o *observed) Complete(ctx context.Context, prompt string, p Params) (Completion, error) {
	ctx, end := o.obs.Start(ctx, "generate.complete",
		attribute.String("reportflow.stage", observe.Stage(ctx)),
		attribute.String("reportflow.section", observe.Section(ctx)),
		attribute.Int("reportflow.prompt_chars", len(prompt)),
	)

	o.obs.Record(ctx, transcript.Turn{
		Role:      transcript.RolePrompt,
		Content:   prompt,
		Timestamp: time.Now(),
	})

	c, err := o.next.Complete(ctx, prompt, p)
	end(err)

	log := o.obs.Log(ctx)
	if err != nil {
		o.obs.Record(ctx, transcript.Turn{
			Role:      transcript.RoleError,
			Content:   err.Error(),
			Timestamp: time.Now(),
		})
		log.ErrorContext(ctx, "generation failed", "error", err)
		return c, err
	}

	o.obs.Record(ctx, transcript.Turn{
		Role:       transcript.RoleCompletion,
		Model:      c.Model,
		Content:    c.Text,
		TokensIn:   c.TokensIn,
		TokensOut:  c.TokensOut,
		DurationMs: c.Duration.Milliseconds(),
		Timestamp:  time.Now(),
	})
	log.DebugContext(ctx, "generation complete",
		"model", c.Model,
		"tokens_in", c.TokensIn,
		"tokens_out", c.TokensOut,
		"duration", c.Duration)
	return c, nil
}
