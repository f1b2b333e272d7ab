package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/randalmurphal/reportflow/config"
	rfcontext "github.com/randalmurphal/reportflow/context"
	"github.com/randalmurphal/reportflow/engine"
	"github.com/randalmurphal/reportflow/runstore"
)

// app holds everything a command needs to run reports.
type app struct {
	settings *config.Settings
	logger   *slog.Logger
	services *rfcontext.Services
	runs     *runstore.Store
	engine   *engine.Engine
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// globalFlags maps persistent flags onto config keys.
func globalFlags(extra map[string]string) map[string]string {
	flags := map[string]string{
		"property_id": propertyID,
		"data_dir":    dataDir,
	}
	for k, v := range extra {
		flags[k] = v
	}
	return flags
}

func loadSettings(extra map[string]string) (*config.Settings, error) {
	resolved := config.NewAppResolver().ResolveWithFlags(globalFlags(extra))
	return resolved.Settings()
}

// openApp builds services, the run store and the engine. Callers must
// Close the app.
func openApp(ctx context.Context, extra map[string]string, opts ...engine.Option) (*app, error) {
	settings, err := loadSettings(extra)
	if err != nil {
		return nil, err
	}
	logger := newLogger(os.Stderr)
	slog.SetDefault(logger)

	services, err := rfcontext.NewServices(ctx, rfcontext.Config{
		Settings: settings,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	a := &app{settings: settings, logger: logger, services: services}

	if path := settings.DatabasePath(); path != "" {
		store, err := runstore.Open(ctx, path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open run database: %w", err)
		}
		a.runs = store
		opts = append([]engine.Option{engine.WithRunStore(store)}, opts...)
	}

	eng, err := engine.New(services, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = eng
	return a, nil
}

// openRunStore opens only the run database.
func openRunStore(ctx context.Context) (*runstore.Store, *config.Settings, error) {
	settings, err := loadSettings(nil)
	if err != nil {
		return nil, nil, err
	}
	path := settings.DatabasePath()
	if path == "" {
		return nil, nil, errors.New("run history is disabled (database is empty)")
	}
	store, err := runstore.Open(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open run database: %w", err)
	}
	return store, settings, nil
}

func (a *app) Close() {
	if a.runs != nil {
		if err := a.runs.Close(); err != nil {
			a.logger.Warn("close run database", "error", err)
		}
	}
	if err := a.services.Close(); err != nil {
		a.logger.Warn("close checkpoint store", "error", err)
	}
}

func splitHashes(v string) []string {
	var out []string
	for _, h := range strings.Split(v, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
