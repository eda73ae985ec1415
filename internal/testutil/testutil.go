package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/p-arndt/codeexec/internal/config"
	"github.com/p-arndt/codeexec/internal/storage"
	"github.com/p-arndt/codeexec/internal/store"
)

// TestConfig returns a Config with sensible test defaults.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Listen:           "127.0.0.1:0",
		APIKey:           "test-api-key",
		AllowedLanguages: []string{"python", "bash"},
		Storage: config.StorageConfig{
			Backend:   config.BackendLocal,
			LocalPath: t.TempDir(),
		},
		DBPath: ":memory:",
		Limits: config.Limits{
			MaxMemory:        "512MB",
			MaxCPUSecs:       10,
			MaxExecutionSecs: 10,
		},
		DisableNetwork: true,
		LogLevel:       "error",
	}
}

// TestDeps builds a config, an in-memory session index, and a local storage
// backend rooted in a temp dir, all cleaned up with the test.
func TestDeps(t *testing.T) (*config.Config, *store.Store, *storage.Local) {
	t.Helper()
	cfg := TestConfig(t)

	st, err := store.New(cfg.DBPath, 1)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	backend, err := storage.NewLocal(cfg.Storage.LocalPath)
	require.NoError(t, err)

	return cfg, st, backend
}
