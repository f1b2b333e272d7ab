package context

import (
	"context"

	"github.com/randalmurphal/reportflow/analytics"
	"github.com/randalmurphal/reportflow/artifact"
	"github.com/randalmurphal/reportflow/config"
	"github.com/randalmurphal/reportflow/generate"
	"github.com/randalmurphal/reportflow/observe"
	"github.com/randalmurphal/reportflow/prompt"
	"github.com/randalmurphal/reportflow/transcript"
)

// =============================================================================
// Context Injection Helpers
// =============================================================================
// These helpers carry reportflow services through context.Context so that
// stage functions running inside the flowgraph can reach them.

// serviceContextKey is a private type for context keys to avoid collisions
type serviceContextKey string

// Context keys for reportflow services
const (
	sourceServiceKey     serviceContextKey = "reportflow.source"
	generatorServiceKey  serviceContextKey = "reportflow.generator"
	artifactServiceKey   serviceContextKey = "reportflow.artifacts"
	promptServiceKey     serviceContextKey = "reportflow.prompts"
	transcriptServiceKey serviceContextKey = "reportflow.transcripts"
	observerServiceKey   serviceContextKey = "reportflow.observer"
	settingsServiceKey   serviceContextKey = "reportflow.settings"
)

// WithSource adds an analytics data source to the context
func WithSource(ctx context.Context, src analytics.DataSource) context.Context {
	return context.WithValue(ctx, sourceServiceKey, src)
}

// Source extracts the data source from context
func Source(ctx context.Context) analytics.DataSource {
	if src, ok := ctx.Value(sourceServiceKey).(analytics.DataSource); ok {
		return src
	}
	return nil
}

// MustSource extracts the data source or panics
func MustSource(ctx context.Context) analytics.DataSource {
	src := Source(ctx)
	if src == nil {
		panic("reportflow/context: analytics.DataSource not found in context")
	}
	return src
}

// WithGenerator adds a text generator to the context
func WithGenerator(ctx context.Context, gen generate.Generator) context.Context {
	return context.WithValue(ctx, generatorServiceKey, gen)
}

// Generator extracts the generator from context
func Generator(ctx context.Context) generate.Generator {
	if gen, ok := ctx.Value(generatorServiceKey).(generate.Generator); ok {
		return gen
	}
	return nil
}

// MustGenerator extracts the generator or panics
func MustGenerator(ctx context.Context) generate.Generator {
	gen := Generator(ctx)
	if gen == nil {
		panic("reportflow/context: generate.Generator not found in context")
	}
	return gen
}

// WithArtifact adds an artifact manager to the context
func WithArtifact(ctx context.Context, mgr *artifact.Manager) context.Context {
	return context.WithValue(ctx, artifactServiceKey, mgr)
}

// Artifact extracts artifact manager from context
func Artifact(ctx context.Context) *artifact.Manager {
	if mgr, ok := ctx.Value(artifactServiceKey).(*artifact.Manager); ok {
		return mgr
	}
	return nil
}

// WithPrompt adds a prompt loader to the context
func WithPrompt(ctx context.Context, loader *prompt.Loader) context.Context {
	return context.WithValue(ctx, promptServiceKey, loader)
}

// Prompt extracts prompt loader from context
func Prompt(ctx context.Context) *prompt.Loader {
	if loader, ok := ctx.Value(promptServiceKey).(*prompt.Loader); ok {
		return loader
	}
	return nil
}

// MustPrompt extracts prompt loader or panics
func MustPrompt(ctx context.Context) *prompt.Loader {
	loader := Prompt(ctx)
	if loader == nil {
		panic("reportflow/context: prompt.Loader not found in context")
	}
	return loader
}

// WithTranscript adds a transcript manager to the context
func WithTranscript(ctx context.Context, mgr transcript.Manager) context.Context {
	return context.WithValue(ctx, transcriptServiceKey, mgr)
}

// Transcript extracts transcript manager from context
func Transcript(ctx context.Context) transcript.Manager {
	if mgr, ok := ctx.Value(transcriptServiceKey).(transcript.Manager); ok {
		return mgr
	}
	return nil
}

// WithObserver adds an observer to the context
func WithObserver(ctx context.Context, obs *observe.Observer) context.Context {
	return context.WithValue(ctx, observerServiceKey, obs)
}

// Observer extracts the observer from context, or a discarding one.
func Observer(ctx context.Context) *observe.Observer {
	if obs, ok := ctx.Value(observerServiceKey).(*observe.Observer); ok && obs != nil {
		return obs
	}
	return observe.Discard()
}

// WithSettings adds resolved settings to the context
func WithSettings(ctx context.Context, s *config.Settings) context.Context {
	return context.WithValue(ctx, settingsServiceKey, s)
}

// Settings extracts settings from context, or the defaults.
func Settings(ctx context.Context) *config.Settings {
	if s, ok := ctx.Value(settingsServiceKey).(*config.Settings); ok && s != nil {
		return s
	}
	return config.DefaultSettings()
}
