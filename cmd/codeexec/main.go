package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/p-arndt/codeexec/internal/api"
	"github.com/p-arndt/codeexec/internal/config"
	"github.com/p-arndt/codeexec/internal/engine"
	"github.com/p-arndt/codeexec/internal/executor"
	"github.com/p-arndt/codeexec/internal/metrics"
	"github.com/p-arndt/codeexec/internal/session"
	"github.com/p-arndt/codeexec/internal/storage"
	"github.com/p-arndt/codeexec/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "path to codeexec.yaml")
	flag.Parse()

	// Optional .env for local development; real deployments use the
	// environment directly.
	godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if cfg.APIKey == "" {
		logger.Warn("no API key configured — running in open access mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		logger.Error("storage backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	st, err := store.New(cfg.DBPath, 4)
	if err != nil {
		logger.Error("open session index", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	registry := session.NewRegistry(cfg, st, backend)

	executors, err := executor.ForLanguages(cfg.AllowedLanguages, executor.Options{
		Env: executor.MinimalEnv(cfg.DisableNetwork),
	})
	if err != nil {
		logger.Error("configure executors", "error", err)
		os.Exit(1)
	}

	memBytes, err := cfg.MaxMemoryBytes()
	if err != nil {
		logger.Error("parse memory limit", "error", err)
		os.Exit(1)
	}
	supervisor := executor.NewSupervisor(executor.Limits{
		WallClock:   time.Duration(cfg.Limits.MaxExecutionSecs) * time.Second,
		CPUSeconds:  int64(cfg.Limits.MaxCPUSecs),
		MemoryBytes: memBytes,
	})

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	eng := engine.New(registry, backend, executors, supervisor, m, logger)

	srv := api.NewServer(cfg, registry, eng, backend, m, promReg, logger)

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // executions can run up to the wall-clock limit
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening",
		"addr", cfg.Listen,
		"backend", cfg.Storage.Backend,
		"languages", cfg.AllowedLanguages)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendGCS:
		return storage.NewGCS(ctx, cfg.Storage.GCSBucket)
	default:
		return storage.NewLocal(cfg.Storage.LocalPath)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
