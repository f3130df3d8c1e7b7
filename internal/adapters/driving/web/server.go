// Package web exposes the control layer over HTTP: REST endpoints for
// runs, rewrites and exports, plus a WebSocket stream of run events.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// DefaultAddr is the default listen address.
const DefaultAddr = "localhost:8732"

// Ports holds the driving ports the server exposes.
type Ports struct {
	Run     driving.RunService
	Rewrite driving.RewriteService
	Export  driving.ExportService
	Events  driving.EventStream
}

// Server serves the HTTP and WebSocket API.
type Server struct {
	ports      Ports
	httpServer *http.Server
}

// NewServer creates a server listening on addr (DefaultAddr if empty).
func NewServer(addr string, ports Ports) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{ports: ports}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/runs", s.handleSubmit)
	mux.HandleFunc("DELETE /api/runs/{id}", s.handleCancel)
	mux.HandleFunc("POST /api/rewrite", s.handleRewrite)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/trace", s.handleTrace)
	mux.HandleFunc("GET /api/bundle", s.handleBundle)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// submitRequest is the POST /api/runs body.
type submitRequest struct {
	Question  string               `json:"question"`
	Curation  *domain.CurationSpec `json:"curation,omitempty"`
	UseLLM    bool                 `json:"use_llm,omitempty"`
	NoRewrite bool                 `json:"no_rewrite,omitempty"`
}

// submitResponse is the POST /api/runs response.
type submitResponse struct {
	RunID string `json:"run_id"`
}

// rewriteRequest is the POST /api/rewrite body.
type rewriteRequest struct {
	Question string `json:"question"`
	UseLLM   bool   `json:"use_llm,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.ports.Run == nil {
		writeError(w, http.StatusServiceUnavailable, "run service unavailable")
		return
	}

	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := domain.RunRequest{Question: body.Question}
	if body.Curation != nil {
		req.Curation = *body.Curation
	} else {
		req.Curation = domain.DefaultCurationSpec()
	}
	if !body.NoRewrite && s.ports.Rewrite != nil {
		rw := s.ports.Rewrite.Rewrite(r.Context(), body.Question, body.UseLLM)
		req.Rewrite = &rw
	}

	runID, err := s.ports.Run.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logger.Debug("web: accepted run %s", runID)
	writeJSON(w, http.StatusAccepted, submitResponse{RunID: runID})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if s.ports.Run == nil {
		writeError(w, http.StatusServiceUnavailable, "run service unavailable")
		return
	}

	runID := r.PathValue("id")
	if err := s.ports.Run.Cancel(runID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	if s.ports.Rewrite == nil {
		writeError(w, http.StatusServiceUnavailable, "rewrite service unavailable")
		return
	}

	var body rewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	rw := s.ports.Rewrite.Rewrite(r.Context(), body.Question, body.UseLLM)
	writeJSON(w, http.StatusOK, rw)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.ports.Export == nil {
		writeError(w, http.StatusServiceUnavailable, "export service unavailable")
		return
	}

	summary, err := s.ports.Export.Summary()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	if s.ports.Export == nil {
		writeError(w, http.StatusServiceUnavailable, "export service unavailable")
		return
	}

	data, err := s.ports.Export.TraceNDJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	if s.ports.Export == nil {
		writeError(w, http.StatusServiceUnavailable, "export service unavailable")
		return
	}

	bundle, err := s.ports.Export.Bundle()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("web: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps domain errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRunNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoCompletedRun):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEngineUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", err))
	}
}
