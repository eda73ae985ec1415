package api

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/codeexec/internal/engine"
	"github.com/p-arndt/codeexec/internal/executor"
	"github.com/p-arndt/codeexec/internal/metrics"
	"github.com/p-arndt/codeexec/internal/session"
	"github.com/p-arndt/codeexec/internal/testutil"
)

const testAPIKey = "test-api-key"

// newTestServer wires the real stack (local backend, sqlite index, bash
// executor) behind the HTTP handler.
func newTestServer(t *testing.T) (http.Handler, *session.Registry) {
	t.Helper()
	cfg, st, backend := testutil.TestDeps(t)

	registry := session.NewRegistry(cfg, st, backend)

	executors, err := executor.ForLanguages(cfg.AllowedLanguages, executor.Options{
		Env: executor.MinimalEnv(cfg.DisableNetwork),
	})
	require.NoError(t, err)

	supervisor := executor.NewSupervisor(executor.Limits{
		WallClock:  10 * time.Second,
		CPUSeconds: 10,
	})

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	logger := slog.New(slog.DiscardHandler)
	eng := engine.New(registry, backend, executors, supervisor, m, logger)

	srv := NewServer(cfg, registry, eng, backend, m, promReg, logger)
	return srv.Handler(), registry
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("x-api-key", testAPIKey)
	return req
}
