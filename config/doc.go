// Package config resolves reportflow settings from layered sources.
//
// Precedence, highest first:
//  1. Command-line flags (ResolveWithFlags)
//  2. Environment variables (REPORTFLOW_<KEY>)
//  3. Local config (.reportflow.yaml in the project root)
//  4. Global config (~/.config/reportflow/config.yaml)
//  5. Built-in defaults (Defaults)
//
// Resolved values are strings; Resolved.Settings parses them into the
// typed Settings used by the engine, server and CLI:
//
//	cfg := config.NewAppResolver().Resolve()
//	settings, err := cfg.Settings()
//	if err != nil {
//	    return err // names the key and where the bad value came from
//	}
//	fmt.Println(settings.MaxConcurrency, cfg.Source("max_concurrency"))
//
// SaveConfig writes single keys back to the global or local file and
// backs `reportflow config set`.
package config
