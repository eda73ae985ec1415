package api

import (
	"net/http"
)

type createSessionRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSONBody(w, r, &req); err != nil {
			writeValidationError(w, "invalid json: "+err.Error(), nil)
			return
		}
	}

	if err := validateCreateSessionRequest(req); err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}

	info, err := s.sessions.Create(r.Context(), req.Language)
	if err != nil {
		s.logger.Error("create session", "error", err)
		writeAPIError(w, err)
		return
	}

	s.metrics.IncSessionsCreated()
	s.logger.Info("session created", "session_id", info.SessionID, "language", info.Language)
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	info, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		s.logger.Error("list sessions", "error", err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// handleDeleteSession tears the session down. Deletion is idempotent, so an
// absent but well-formed id still returns 204.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete session", "session_id", id, "error", err)
		writeAPIError(w, err)
		return
	}

	s.metrics.IncSessionsDeleted()
	w.WriteHeader(http.StatusNoContent)
}
