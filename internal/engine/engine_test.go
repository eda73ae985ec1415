package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/codeexec/internal/executor"
	"github.com/p-arndt/codeexec/internal/session"
	"github.com/p-arndt/codeexec/internal/testutil"
)

func newTestEngine(t *testing.T, wallClock time.Duration) (*Engine, *session.Registry) {
	t.Helper()
	cfg, st, backend := testutil.TestDeps(t)

	registry := session.NewRegistry(cfg, st, backend)

	executors, err := executor.ForLanguages([]string{"bash"}, executor.Options{
		Env: executor.MinimalEnv(true),
	})
	require.NoError(t, err)

	supervisor := executor.NewSupervisor(executor.Limits{
		WallClock:  wallClock,
		CPUSeconds: 10,
	})

	logger := slog.New(slog.DiscardHandler)
	return New(registry, backend, executors, supervisor, nil, logger), registry
}

func TestExecuteCapturesOutput(t *testing.T) {
	eng, registry := newTestEngine(t, 10*time.Second)
	ctx := context.Background()

	info, err := registry.Create(ctx, "bash")
	require.NoError(t, err)

	rec, err := eng.Execute(ctx, info.SessionID, "echo hello; echo oops >&2", "", "")
	require.NoError(t, err)

	assert.Equal(t, "hello\n", rec.Stdout)
	assert.Equal(t, "oops\n", rec.Stderr)
	assert.Equal(t, 0, rec.ExitCode)
	assert.Equal(t, executor.StatusOK, rec.Status)
	assert.Empty(t, rec.Files)
}

func TestExecuteReportsCreatedFiles(t *testing.T) {
	eng, registry := newTestEngine(t, 10*time.Second)
	ctx := context.Background()

	info, err := registry.Create(ctx, "bash")
	require.NoError(t, err)

	rec, err := eng.Execute(ctx, info.SessionID, "echo data > out.txt", "", "")
	require.NoError(t, err)

	assert.Equal(t, executor.StatusOK, rec.Status)
	assert.Equal(t, []string{"out.txt"}, rec.Files)
}

func TestExecuteSnippetNotListed(t *testing.T) {
	eng, registry := newTestEngine(t, 10*time.Second)
	ctx := context.Background()

	info, err := registry.Create(ctx, "bash")
	require.NoError(t, err)

	rec, err := eng.Execute(ctx, info.SessionID, "ls > listing.txt", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"listing.txt"}, rec.Files)
}

func TestExecuteStdin(t *testing.T) {
	eng, registry := newTestEngine(t, 10*time.Second)
	ctx := context.Background()

	info, err := registry.Create(ctx, "bash")
	require.NoError(t, err)

	rec, err := eng.Execute(ctx, info.SessionID, "read line; echo got:$line", "world", "")
	require.NoError(t, err)
	assert.Equal(t, "got:world\n", rec.Stdout)
}

func TestExecuteTimeout(t *testing.T) {
	eng, registry := newTestEngine(t, time.Second)
	ctx := context.Background()

	info, err := registry.Create(ctx, "bash")
	require.NoError(t, err)

	start := time.Now()
	rec, err := eng.Execute(ctx, info.SessionID, "sleep 60", "", "")
	require.NoError(t, err)

	assert.Equal(t, executor.StatusTimeout, rec.Status)
	assert.Equal(t, executor.KilledExitCode, rec.ExitCode)
	assert.Less(t, time.Since(start), 10*time.Second)

	// The session stays usable after a timeout.
	rec, err = eng.Execute(ctx, info.SessionID, "echo still alive", "", "")
	require.NoError(t, err)
	assert.Equal(t, executor.StatusOK, rec.Status)
	assert.Equal(t, "still alive\n", rec.Stdout)
}

func TestExecuteNonZeroExit(t *testing.T) {
	eng, registry := newTestEngine(t, 10*time.Second)
	ctx := context.Background()

	info, err := registry.Create(ctx, "bash")
	require.NoError(t, err)

	rec, err := eng.Execute(ctx, info.SessionID, "exit 3", "", "")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.ExitCode)
	assert.Equal(t, executor.StatusOK, rec.Status)
}

func TestExecuteLanguageOverride(t *testing.T) {
	eng, registry := newTestEngine(t, 10*time.Second)
	ctx := context.Background()

	// Session declares python but only bash is configured; the override
	// decides which executor runs.
	info, err := registry.Create(ctx, "python")
	require.NoError(t, err)

	rec, err := eng.Execute(ctx, info.SessionID, "echo overridden", "", "bash")
	require.NoError(t, err)
	assert.Equal(t, "overridden\n", rec.Stdout)

	// Without the override the session language applies, and python has no
	// executor here.
	_, err = eng.Execute(ctx, info.SessionID, "print('x')", "", "")
	assert.ErrorIs(t, err, session.ErrUnsupportedLanguage)
}

func TestExecuteUnknownSession(t *testing.T) {
	eng, _ := newTestEngine(t, 10*time.Second)

	_, err := eng.Execute(context.Background(), "f2b9c3c4-0000-0000-0000-000000000000", "echo x", "", "")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestExecuteUnsupportedOverride(t *testing.T) {
	eng, registry := newTestEngine(t, 10*time.Second)
	ctx := context.Background()

	info, err := registry.Create(ctx, "bash")
	require.NoError(t, err)

	_, err = eng.Execute(ctx, info.SessionID, "echo x", "", "ruby")
	assert.ErrorIs(t, err, session.ErrUnsupportedLanguage)
}
