// Package server exposes report runs over HTTP.
//
//	POST /generate-report   {"property_id": "..."} -> {"run_id", "final_report"}
//	GET  /health
//	GET  /runs/{id}          run history record
//	GET  /runs/{id}/report   compiled document (text/markdown)
//
// Failures answer {"detail": "..."}. When API keys are configured every
// route but /health requires X-API-Key or an Authorization bearer token.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/randalmurphal/reportflow/artifact"
	"github.com/randalmurphal/reportflow/auth"
	"github.com/randalmurphal/reportflow/engine"
	"github.com/randalmurphal/reportflow/runstore"
)

// Runner executes a report run. engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, in engine.Input) (engine.Output, error)
}

// RunLookup finds recorded runs. runstore.Store satisfies it.
type RunLookup interface {
	Get(ctx context.Context, id string) (*runstore.Run, error)
}

// Config configures the server.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration // default 10s
	// RunTimeout bounds a single /generate-report run. Zero means no limit
	// beyond the client's connection.
	RunTimeout      time.Duration
	DefaultProperty string
	APIKeys         *auth.Verifier
	Runs            RunLookup
	Artifacts       *artifact.Manager
}

// Server is the report HTTP API.
type Server struct {
	router *chi.Mux
	logger *slog.Logger
	server *http.Server
	cfg    Config
	runner Runner
}

// New builds the router and the underlying http.Server.
func New(logger *slog.Logger, runner Runner, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{logger: logger, cfg: cfg, runner: runner}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(RequestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Get("/health", s.health)
	router.Group(func(r chi.Router) {
		r.Use(RequireAPIKey(cfg.APIKeys))
		r.Post("/generate-report", s.generateReport)
		r.Get("/runs/{id}", s.getRun)
		r.Get("/runs/{id}/report", s.getReport)
	})

	s.router = router
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("graceful shutdown failed", "error", err)
			return s.server.Close()
		}
	}
	return nil
}
