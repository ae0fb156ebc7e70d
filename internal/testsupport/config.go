// Package testsupport provides shared fixtures for package tests: configs
// seeded with per-test temp directories and helpers for writing sample
// source trees.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"docsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Timings are shortened so debounce and batch flushes settle quickly, and
// cache persistence is off unless a test opts back in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WatchDirs = []string{filepath.Join(base, "src")}
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Watch.DebounceWindowMs = 20
	cfg.Batch.Size = 4
	cfg.Batch.TimeoutMs = 40
	cfg.Analysis.RetryDelayMs = 1
	cfg.Cache.Persist = false

	if err := os.MkdirAll(cfg.Paths.WatchDirs[0], 0o755); err != nil {
		t.Fatalf("create watch dir: %v", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAPIBind enables the HTTP API on the test config.
func WithAPIBind(bind string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIBind = bind
	}
}

// WithAPIToken sets a bearer token requirement on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}

// WithPersistentCache turns the SQLite cache store back on.
func WithPersistentCache() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cache.Persist = true
	}
}

// WithMaxRetries overrides the executor retry budget.
func WithMaxRetries(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Analysis.MaxRetries = n
	}
}
