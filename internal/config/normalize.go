package config

import (
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeBatch()
	c.normalizeAnalysis()
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}

	dirs := make([]string, 0, len(c.Paths.WatchDirs))
	seen := make(map[string]struct{}, len(c.Paths.WatchDirs))
	for _, dir := range c.Paths.WatchDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		if _, ok := seen[expanded]; ok {
			continue
		}
		seen[expanded] = struct{}{}
		dirs = append(dirs, expanded)
	}
	c.Paths.WatchDirs = dirs

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeWatch() {
	if c.Watch.DebounceWindowMs <= 0 {
		c.Watch.DebounceWindowMs = defaultDebounceWindowMs
	}
	if c.Watch.MaxFileSizeKB <= 0 {
		c.Watch.MaxFileSizeKB = defaultMaxFileSizeKB
	}
	patterns := make([]string, 0, len(c.Watch.IgnorePatterns))
	for _, pattern := range c.Watch.IgnorePatterns {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	c.Watch.IgnorePatterns = patterns
}

func (c *Config) normalizeBatch() {
	if c.Batch.Size <= 0 {
		c.Batch.Size = defaultBatchSize
	}
	if c.Batch.TimeoutMs <= 0 {
		c.Batch.TimeoutMs = defaultBatchTimeoutMs
	}
	if c.Batch.RecencyWindowMs <= 0 {
		c.Batch.RecencyWindowMs = defaultRecencyWindowMs
	}
}

func (c *Config) normalizeAnalysis() {
	if c.Analysis.MaxRetries < 0 {
		c.Analysis.MaxRetries = 0
	}
	if c.Analysis.RetryDelayMs <= 0 {
		c.Analysis.RetryDelayMs = defaultRetryDelayMs
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Analysis.MaxConcurrent <= 0 {
		c.Analysis.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Analysis.MemoryThresholdMB <= 0 {
		c.Analysis.MemoryThresholdMB = defaultMemoryThresholdMB
	}
	if c.Analysis.HashMaxBytes <= 0 {
		c.Analysis.HashMaxBytes = defaultHashMaxBytes
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = defaultCacheMaxEntries
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
