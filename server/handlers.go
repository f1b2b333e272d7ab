package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/randalmurphal/reportflow/artifact"
	"github.com/randalmurphal/reportflow/engine"
	"github.com/randalmurphal/reportflow/runstore"
)

// GenerateRequest is the body of POST /generate-report.
type GenerateRequest struct {
	PropertyID string `json:"property_id"`
}

// GenerateResponse is a successful /generate-report answer.
type GenerateResponse struct {
	RunID       string   `json:"run_id"`
	FinalReport string   `json:"final_report"`
	Warnings    []string `json:"warnings,omitempty"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	property := strings.TrimSpace(req.PropertyID)
	if property == "" {
		property = s.cfg.DefaultProperty
	}
	if property == "" {
		writeError(w, http.StatusBadRequest, "property_id is required")
		return
	}

	ctx := r.Context()
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	out, err := s.runner.Run(ctx, engine.Input{PropertyRef: property})
	if err != nil {
		s.logger.ErrorContext(ctx, "report generation failed",
			"run_id", out.RunID,
			"property", property,
			"error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		RunID:       out.RunID,
		FinalReport: out.FinalDocument,
		Warnings:    out.Warnings,
	})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.cfg.Runs != nil {
		run, err := s.cfg.Runs.Get(r.Context(), id)
		switch {
		case errors.Is(err, runstore.ErrNotFound):
			writeError(w, http.StatusNotFound, "run not found")
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusOK, run)
		}
		return
	}

	if s.cfg.Artifacts != nil {
		rec, err := s.cfg.Artifacts.LoadRun(id)
		switch {
		case errors.Is(err, artifact.ErrRunNotFound):
			writeError(w, http.StatusNotFound, "run not found")
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusOK, rec)
		}
		return
	}

	writeError(w, http.StatusNotFound, "run history is not enabled")
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Artifacts == nil {
		writeError(w, http.StatusNotFound, "artifact store is not enabled")
		return
	}
	doc, err := s.cfg.Artifacts.LoadReport(chi.URLParam(r, "id"))
	if errors.Is(err, artifact.ErrArtifactNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
