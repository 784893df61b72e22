// Package testsupport provides constructors for tests that need a working
// configuration or catalog without touching the user's real directories.
package testsupport

import (
	"log/slog"
	"path/filepath"
	"testing"

	"sortd/internal/catalog"
	"sortd/internal/config"
	"sortd/internal/logging"
)

// NewConfig returns a validated config rooted in a per-test temp directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.WhitelistDir = filepath.Join(base, "whitelists")
	cfg.Backend.APIKey = "test-key"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// MustOpenCatalog opens a catalog store against the config's cache directory
// and closes it when the test finishes.
func MustOpenCatalog(t *testing.T, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg, Logger())
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close catalog: %v", err)
		}
	})
	return store
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return logging.NewNop()
}
