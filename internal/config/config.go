package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WatchDirs []string `toml:"watch_dirs"`
	CacheDir  string   `toml:"cache_dir"`
	LogDir    string   `toml:"log_dir"`
	APIBind   string   `toml:"api_bind"`
	APIToken  string   `toml:"api_token"`
}

// Watch contains configuration for change detection and debouncing.
type Watch struct {
	DebounceWindowMs int      `toml:"debounce_window_ms"`
	IgnorePatterns   []string `toml:"ignore_patterns"`
	MaxFileSizeKB    int      `toml:"max_file_size_kb"`
}

// Batch contains configuration for batching and prioritization.
type Batch struct {
	Size            int `toml:"size"`
	TimeoutMs       int `toml:"timeout_ms"`
	RecencyWindowMs int `toml:"recency_window_ms"`
}

// Analysis contains configuration for the resilient analysis executor and
// the resource monitor that gates it.
type Analysis struct {
	MaxRetries        int   `toml:"max_retries"`
	RetryDelayMs      int   `toml:"retry_delay_ms"`
	TimeoutSeconds    int   `toml:"timeout_seconds"`
	MaxConcurrent     int   `toml:"max_concurrent"`
	MemoryThresholdMB int   `toml:"memory_threshold_mb"`
	HashMaxBytes      int64 `toml:"hash_max_bytes"`
}

// Cache contains configuration for the analysis cache.
type Cache struct {
	Enabled    bool `toml:"enabled"`
	Persist    bool `toml:"persist"`
	MaxEntries int  `toml:"max_entries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for docsync.
//
// Configuration sections by subsystem:
//   - Paths: watch roots, cache/log directories, and API bind address
//   - Watch: debounce window and ignore patterns
//   - Batch: batch size, flush timeout, and recency scoring window
//   - Analysis: retry/timeout budgets and resource thresholds
//   - Cache: analysis cache sizing and persistence
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Watch    Watch    `toml:"watch"`
	Batch    Batch    `toml:"batch"`
	Analysis Analysis `toml:"analysis"`
	Cache    Cache    `toml:"cache"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/docsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path, the third whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("docsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CacheDBPath returns the location of the persistent analysis cache.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.Paths.CacheDir, "analysis.db")
}

// LockFilePath returns the daemon single-instance lock file location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.LogDir, "docsyncd.lock")
}

// PIDFilePath returns the daemon pid file location.
func (c *Config) PIDFilePath() string {
	return filepath.Join(c.Paths.LogDir, "docsyncd.pid")
}

// LogFilePath returns the daemon log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "docsync.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
