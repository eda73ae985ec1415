package api

import (
	"net/http"
)

type executeRequest struct {
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
	Language string `json:"language"`
}

// handleExecute runs code in the session. Timeouts and breached resource
// ceilings are successful responses carrying a status marker; only service
// faults become error statuses.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req executeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeValidationError(w, "invalid json: "+err.Error(), nil)
		return
	}

	if err := validateExecuteRequest(req); err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}

	record, err := s.runner.Execute(r.Context(), id, req.Code, req.Stdin, req.Language)
	if err != nil {
		s.logger.Error("execute", "session_id", id, "error", err)
		writeAPIError(w, err)
		return
	}

	s.logger.Info("execution finished",
		"session_id", id, "status", record.Status,
		"exit_code", record.ExitCode, "duration_ms", record.DurationMs)
	writeJSON(w, http.StatusOK, record)
}
