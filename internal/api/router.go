package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p-arndt/codeexec/internal/config"
	"github.com/p-arndt/codeexec/internal/metrics"
	"github.com/p-arndt/codeexec/internal/storage"
)

type Server struct {
	cfg      *config.Config
	sessions SessionService
	runner   ExecService
	backend  storage.Backend
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	mux      *http.ServeMux
}

func NewServer(cfg *config.Config, sessions SessionService, runner ExecService, backend storage.Backend, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		runner:   runner,
		backend:  backend,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.authMiddleware(s.requestIDMiddleware(s.mux))
}

func (s *Server) routes() {
	// Session lifecycle (with auth)
	s.mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)

	// Execution (with auth)
	s.mux.HandleFunc("POST /v1/sessions/{id}/execute", s.handleExecute)

	// Session files (with auth)
	s.mux.HandleFunc("POST /v1/sessions/{id}/files", s.handleUploadFiles)
	s.mux.HandleFunc("GET /v1/sessions/{id}/files/{path...}", s.handleDownloadFile)

	// Health check (no auth)
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus exposition (no auth)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
