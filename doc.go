// Package reportflow generates AI-written analytics performance reports for
// Google Analytics 4 properties.
//
// A run fetches the property's metrics with weekly and monthly comparisons,
// has a language model analyze them and plan the report, writes the
// planned sections concurrently (researched sections first, then the
// sections derived from them), compiles a markdown document and delivers
// it.
//
// The package is organized into subpackages by domain:
//
//   - report: Dataset, query, section and growth types
//   - analytics: GA4 Data API source and comparison collection
//   - generate: Language model backends (OpenAI via eino, Claude via llmkit)
//   - prompt: Embedded prompt templates with on-disk overrides
//   - workflow: Run state, stages, routers and stage wrappers
//   - engine: Stage graph execution, checkpoints and resume
//   - notify: Delivery over email, Slack and webhooks
//   - artifact: Per-run files and retention
//   - transcript: Generator conversation recording
//   - runstore: SQLite run history
//   - observe: Structured logging and tracing
//   - server: HTTP API
//   - auth: API keys for the HTTP API
//   - config: Layered configuration
//   - context: Service dependency injection
//   - errors: User-facing error wrapping
//   - http: HTTP client utilities
//   - task: Task-based model selection
//   - testutil: Test utilities and fixtures
//
// # Quick Start
//
//	import (
//	    rfcontext "github.com/randalmurphal/reportflow/context"
//	    "github.com/randalmurphal/reportflow/config"
//	    "github.com/randalmurphal/reportflow/engine"
//	)
//
//	settings, _ := config.NewAppResolver().Resolve().Settings()
//	services, _ := rfcontext.NewServices(ctx, rfcontext.Config{Settings: settings})
//
//	eng, _ := engine.New(services)
//	out, err := eng.Run(ctx, engine.Input{PropertyRef: "123456789"})
//	fmt.Println(out.FinalDocument)
//
// The reportflow command (cmd/reportflow) wraps the same pieces as a CLI
// and HTTP service.
package reportflow
