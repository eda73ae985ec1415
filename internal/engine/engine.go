// Package engine orchestrates one execute request: resolve the session, run
// the matching executor under the resource limiter, and reconcile the file
// set with the storage backend.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-arndt/codeexec/internal/executor"
	"github.com/p-arndt/codeexec/internal/metrics"
	"github.com/p-arndt/codeexec/internal/session"
	"github.com/p-arndt/codeexec/internal/storage"
)

// SessionResolver is the slice of the registry the engine needs.
type SessionResolver interface {
	Get(ctx context.Context, id string) (*session.Info, error)
	ListFiles(ctx context.Context, id string) ([]string, error)
}

// Record is the result of one code run. Timeout and resource-limit outcomes
// are carried in Status with the exit-code sentinel, never as errors.
type Record struct {
	Stdout     string   `json:"stdout"`
	Stderr     string   `json:"stderr"`
	ExitCode   int      `json:"exit_code"`
	Status     string   `json:"status"`
	DurationMs int64    `json:"duration_ms"`
	Files      []string `json:"files"`
}

type Engine struct {
	registry   SessionResolver
	backend    storage.Backend
	executors  map[string]executor.Executor
	supervisor *executor.Supervisor
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(registry SessionResolver, backend storage.Backend, executors map[string]executor.Executor, supervisor *executor.Supervisor, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		registry:   registry,
		backend:    backend,
		executors:  executors,
		supervisor: supervisor,
		metrics:    m,
		logger:     logger,
	}
}

// Execute runs code inside the session's working directory. A per-call
// language override wins over the session's declared language; either way
// the effective language must name a configured executor. Each call owns
// exactly one subprocess and shares nothing with concurrent calls.
func (e *Engine) Execute(ctx context.Context, sessionID, code, stdin, languageOverride string) (*Record, error) {
	info, err := e.registry.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	lang := info.Language
	if languageOverride != "" {
		lang = languageOverride
	}
	ex, ok := e.executors[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrUnsupportedLanguage, lang)
	}

	wd, err := e.backend.Workdir(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("acquire workdir: %w", err)
	}
	defer wd.Close()

	cmd, cleanup, err := ex.Command(wd.Dir, code)
	if err != nil {
		return nil, fmt.Errorf("build command: %w", err)
	}

	e.metrics.ExecStarted()
	result, err := e.supervisor.Run(ctx, cmd, stdin)
	e.metrics.ExecFinished()
	cleanup()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", lang, err)
	}

	if result.Status != executor.StatusOK {
		e.logger.Info("execution terminated by limiter",
			"session_id", sessionID, "language", lang,
			"status", result.Status, "duration_ms", result.Duration.Milliseconds())
	}

	if err := wd.Sync(ctx); err != nil {
		return nil, fmt.Errorf("sync workdir: %w", err)
	}

	files, err := e.registry.ListFiles(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.metrics.ObserveExecution(lang, result.Status, result.Duration.Seconds())

	return &Record{
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ExitCode:   result.ExitCode,
		Status:     result.Status,
		DurationMs: result.Duration.Milliseconds(),
		Files:      files,
	}, nil
}

// Languages returns the configured executor languages, for error payloads.
func (e *Engine) Languages() []string {
	langs := make([]string, 0, len(e.executors))
	for l := range e.executors {
		langs = append(langs, l)
	}
	return langs
}
