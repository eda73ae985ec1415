package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/p-arndt/codeexec/internal/session"
	"github.com/p-arndt/codeexec/internal/storage"
)

// Error codes returned in API responses
const (
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeFileNotFound        = "FILE_NOT_FOUND"
	ErrCodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	ErrCodeInvalidPath         = "INVALID_PATH"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
)

// APIError represents a structured API error response
type APIError struct {
	Code    string                 `json:"error_code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// writeAPIError writes a structured error response with appropriate HTTP
// status. Unknown errors become an opaque 500: the detail belongs in the
// server log, not the response body.
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr APIError
	statusCode := http.StatusInternalServerError

	switch {
	case errors.Is(err, session.ErrNotFound):
		apiErr = APIError{
			Code:    ErrCodeSessionNotFound,
			Message: err.Error(),
		}
		statusCode = http.StatusNotFound

	case errors.Is(err, storage.ErrNotFound):
		apiErr = APIError{
			Code:    ErrCodeFileNotFound,
			Message: err.Error(),
		}
		statusCode = http.StatusNotFound

	case errors.Is(err, session.ErrUnsupportedLanguage):
		apiErr = APIError{
			Code:    ErrCodeUnsupportedLanguage,
			Message: err.Error(),
		}
		statusCode = http.StatusBadRequest

	case errors.Is(err, storage.ErrInvalidPath):
		apiErr = APIError{
			Code:    ErrCodeInvalidPath,
			Message: err.Error(),
		}
		statusCode = http.StatusBadRequest

	default:
		apiErr = APIError{
			Code:    ErrCodeInternalError,
			Message: "internal error",
		}
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErr)
}

// writeValidationError writes a 400 Bad Request with validation details
func writeValidationError(w http.ResponseWriter, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(APIError{
		Code:    ErrCodeInvalidRequest,
		Message: message,
		Details: details,
	})
}

// writeUnauthorizedError writes a 401 Unauthorized error
func writeUnauthorizedError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	})
}
