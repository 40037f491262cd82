package config

const (
	// DefaultCacheMaxSize is the default maximum number of cached element entries.
	DefaultCacheMaxSize = 100
	// DefaultCacheTTLMs is the default cache entry lifetime in milliseconds.
	DefaultCacheTTLMs = 30000
	// DefaultMinSearchMsToCache is the search duration below which results are not cached.
	DefaultMinSearchMsToCache = 500

	// DefaultLocatorDepth is the default descent depth for tree walks.
	DefaultLocatorDepth = 50
	// DefaultNativeIDDepth is the descent depth for nativeid searches (deep browser trees).
	DefaultNativeIDDepth = 500
	// DefaultShallowDepth is the descent depth for named toplevel-window searches.
	DefaultShallowDepth = 5

	// DefaultActionTimeoutMs is the default per-action deadline.
	DefaultActionTimeoutMs = 3000
	// DefaultStabilitySamples is the number of matching bounds samples required.
	DefaultStabilitySamples = 3
	// DefaultStabilityIntervalMs is the spacing between bounds samples.
	DefaultStabilityIntervalMs = 16
	// DefaultStabilityMaxWaitMs caps the total wait for bounds to settle.
	DefaultStabilityMaxWaitMs = 800

	// DefaultClipboardPasteThreshold is the text length at which typing switches to clipboard paste.
	DefaultClipboardPasteThreshold = 50

	// DefaultMaxFileSize is the default max file size for logs (10MB).
	DefaultMaxFileSize = 10
	// DefaultMaxBackups is the default max backups for logs.
	DefaultMaxBackups = 5
	// DefaultMaxAge is the default max age for logs (30 days).
	DefaultMaxAge = 30
)

// DefaultBrowserPrefixes lists application name prefixes treated as browsers
// by the event monitor's navigation heuristic.
func DefaultBrowserPrefixes() []string {
	return []string{"Chrome", "Edge", "Firefox"}
}

// DefaultConfig returns a fully populated configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Enabled:            true,
			MaxSize:            DefaultCacheMaxSize,
			TTLMs:              DefaultCacheTTLMs,
			MinSearchMsToCache: DefaultMinSearchMsToCache,
		},
		Locator: LocatorConfig{
			DefaultDepth:               DefaultLocatorDepth,
			NativeIDDepth:              DefaultNativeIDDepth,
			ShallowDepthForNamedWindow: DefaultShallowDepth,
		},
		Action: ActionConfig{
			DefaultTimeoutMs:    DefaultActionTimeoutMs,
			StabilitySamples:    DefaultStabilitySamples,
			StabilityIntervalMs: DefaultStabilityIntervalMs,
			StabilityMaxWaitMs:  DefaultStabilityMaxWaitMs,
		},
		EventMonitor: EventMonitorConfig{
			Enabled:         true,
			BrowserPrefixes: DefaultBrowserPrefixes(),
		},
		Input: InputConfig{
			ClipboardPasteThreshold: DefaultClipboardPasteThreshold,
		},
		Logging: LoggingConfig{
			Level:       "info",
			MaxFileSize: DefaultMaxFileSize,
			MaxBackups:  DefaultMaxBackups,
			MaxAge:      DefaultMaxAge,
		},
	}
}
