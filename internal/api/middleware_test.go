package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/p-arndt/codeexec/internal/config"
)

func authTestServer(apiKey string) *Server {
	return &Server{
		cfg: &config.Config{
			APIKey: apiKey,
		},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_NoAPIKeyConfigured(t *testing.T) {
	s := authTestServer("")
	handler := s.authMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/v1/sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// No API key configured = open access
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_ValidKey(t *testing.T) {
	s := authTestServer("sk-test-key")
	handler := s.authMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/v1/sessions", nil)
	req.Header.Set("x-api-key", "sk-test-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_InvalidKey(t *testing.T) {
	s := authTestServer("sk-test-key")
	handler := s.authMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/v1/sessions", nil)
	req.Header.Set("x-api-key", "wrong-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_MissingKey(t *testing.T) {
	s := authTestServer("sk-test-key")
	handler := s.authMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/v1/sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_OperationalPathsOpen(t *testing.T) {
	s := authTestServer("sk-test-key")
	handler := s.authMiddleware(okHandler())

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRequestIDMiddleware_Generated(t *testing.T) {
	s := authTestServer("")
	handler := s.requestIDMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Len(t, rec.Header().Get("X-Request-ID"), 8)
}

func TestRequestIDMiddleware_Propagated(t *testing.T) {
	s := authTestServer("")
	handler := s.requestIDMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
