package config

const (
	defaultCacheDir          = "~/.cache/docsync"
	defaultLogDir            = "~/.local/share/docsync/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultDebounceWindowMs  = 1000
	defaultBatchSize         = 25
	defaultBatchTimeoutMs    = 2000
	defaultRecencyWindowMs   = 10000
	defaultMaxRetries        = 2
	defaultRetryDelayMs      = 250
	defaultTimeoutSeconds    = 30
	defaultMaxConcurrent     = 4
	defaultMemoryThresholdMB = 512
	defaultHashMaxBytes      = 1 << 20
	defaultCacheMaxEntries   = 4096
	defaultMaxFileSizeKB     = 512
)

var defaultIgnorePatterns = []string{
	".git/**",
	".svn/**",
	"node_modules/**",
	"vendor/**",
	"build/**",
	"dist/**",
	"target/**",
	".idea/**",
	".vscode/**",
	"*.tmp",
	"*.swp",
	"*.log",
}

// Default returns a Config populated with default values. Paths are not yet
// expanded; Load runs normalization afterwards.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Watch: Watch{
			DebounceWindowMs: defaultDebounceWindowMs,
			IgnorePatterns:   append([]string{}, defaultIgnorePatterns...),
			MaxFileSizeKB:    defaultMaxFileSizeKB,
		},
		Batch: Batch{
			Size:            defaultBatchSize,
			TimeoutMs:       defaultBatchTimeoutMs,
			RecencyWindowMs: defaultRecencyWindowMs,
		},
		Analysis: Analysis{
			MaxRetries:        defaultMaxRetries,
			RetryDelayMs:      defaultRetryDelayMs,
			TimeoutSeconds:    defaultTimeoutSeconds,
			MaxConcurrent:     defaultMaxConcurrent,
			MemoryThresholdMB: defaultMemoryThresholdMB,
			HashMaxBytes:      defaultHashMaxBytes,
		},
		Cache: Cache{
			Enabled:    true,
			Persist:    true,
			MaxEntries: defaultCacheMaxEntries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
