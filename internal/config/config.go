package config

import (
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
)

// Config represents the complete automation core configuration structure.
type Config struct {
	Cache        CacheConfig        `json:"cache"        toml:"cache"`
	Locator      LocatorConfig      `json:"locator"      toml:"locator"`
	Action       ActionConfig       `json:"action"       toml:"action"`
	EventMonitor EventMonitorConfig `json:"eventMonitor" toml:"event_monitor"`
	Input        InputConfig        `json:"input"        toml:"input"`
	Logging      LoggingConfig      `json:"logging"      toml:"logging"`
}

// CacheConfig defines the element cache behavior.
type CacheConfig struct {
	Enabled           bool `json:"enabled"           toml:"enabled"`
	MaxSize           int  `json:"maxSize"           toml:"max_size"`
	TTLMs             int  `json:"ttlMs"             toml:"ttl_ms"`
	MinSearchMsToCache int `json:"minSearchMsToCache" toml:"min_search_ms_to_cache"`
}

// LocatorConfig defines tree-walking depth policy for the locator engine.
type LocatorConfig struct {
	DefaultDepth               int `json:"defaultDepth"               toml:"default_depth"`
	NativeIDDepth              int `json:"nativeIdDepth"              toml:"nativeid_depth"`
	ShallowDepthForNamedWindow int `json:"shallowDepthForNamedWindow" toml:"shallow_depth_for_named_window"`
}

// ActionConfig defines action execution timing and stability sampling.
type ActionConfig struct {
	DefaultTimeoutMs    int `json:"defaultTimeoutMs"    toml:"default_timeout_ms"`
	StabilitySamples    int `json:"stabilitySamples"    toml:"stability_samples"`
	StabilityIntervalMs int `json:"stabilityIntervalMs" toml:"stability_interval_ms"`
	StabilityMaxWaitMs  int `json:"stabilityMaxWaitMs"  toml:"stability_max_wait_ms"`
}

// EventMonitorConfig defines the OS event monitor behavior.
type EventMonitorConfig struct {
	Enabled         bool     `json:"enabled"         toml:"enabled"`
	BrowserPrefixes []string `json:"browserPrefixes" toml:"browser_prefixes"`
}

// InputConfig defines input synthesis thresholds.
type InputConfig struct {
	ClipboardPasteThreshold int `json:"clipboardPasteThreshold" toml:"clipboard_paste_threshold"`
}

// LoggingConfig defines logger level, output, and rotation settings.
type LoggingConfig struct {
	Level              string `json:"level"              toml:"level"`
	FilePath           string `json:"filePath"           toml:"file_path"`
	Structured         bool   `json:"structured"         toml:"structured"`
	DisableFileLogging bool   `json:"disableFileLogging" toml:"disable_file_logging"`
	MaxFileSize        int    `json:"maxFileSize"        toml:"max_file_size"`
	MaxBackups         int    `json:"maxBackups"         toml:"max_backups"`
	MaxAge             int    `json:"maxAge"             toml:"max_age"`
}

// Validate checks all configuration sections for out-of-range values.
func (c *Config) Validate() error {
	if err := c.Cache.validate(); err != nil {
		return err
	}

	if err := c.Locator.validate(); err != nil {
		return err
	}

	if err := c.Action.validate(); err != nil {
		return err
	}

	if err := c.Input.validate(); err != nil {
		return err
	}

	return c.Logging.validate()
}

func (c *CacheConfig) validate() error {
	if c.MaxSize <= 0 {
		return derrors.Newf(derrors.CodeInvalidConfig, "cache.max_size must be positive, got %d", c.MaxSize)
	}

	if c.TTLMs <= 0 {
		return derrors.Newf(derrors.CodeInvalidConfig, "cache.ttl_ms must be positive, got %d", c.TTLMs)
	}

	if c.MinSearchMsToCache < 0 {
		return derrors.Newf(
			derrors.CodeInvalidConfig,
			"cache.min_search_ms_to_cache must be non-negative, got %d",
			c.MinSearchMsToCache,
		)
	}

	return nil
}

func (c *LocatorConfig) validate() error {
	if c.DefaultDepth <= 0 {
		return derrors.Newf(
			derrors.CodeInvalidConfig,
			"locator.default_depth must be positive, got %d",
			c.DefaultDepth,
		)
	}

	if c.NativeIDDepth < c.DefaultDepth {
		return derrors.Newf(
			derrors.CodeInvalidConfig,
			"locator.nativeid_depth must be at least default_depth, got %d",
			c.NativeIDDepth,
		)
	}

	if c.ShallowDepthForNamedWindow <= 0 || c.ShallowDepthForNamedWindow > c.DefaultDepth {
		return derrors.Newf(
			derrors.CodeInvalidConfig,
			"locator.shallow_depth_for_named_window must be in 1..default_depth, got %d",
			c.ShallowDepthForNamedWindow,
		)
	}

	return nil
}

func (c *ActionConfig) validate() error {
	if c.DefaultTimeoutMs <= 0 {
		return derrors.Newf(
			derrors.CodeInvalidConfig,
			"action.default_timeout_ms must be positive, got %d",
			c.DefaultTimeoutMs,
		)
	}

	if c.StabilitySamples < 2 {
		return derrors.Newf(
			derrors.CodeInvalidConfig,
			"action.stability_samples must be at least 2, got %d",
			c.StabilitySamples,
		)
	}

	if c.StabilityIntervalMs <= 0 {
		return derrors.Newf(
			derrors.CodeInvalidConfig,
			"action.stability_interval_ms must be positive, got %d",
			c.StabilityIntervalMs,
		)
	}

	if c.StabilityMaxWaitMs < c.StabilitySamples*c.StabilityIntervalMs {
		return derrors.Newf(
			derrors.CodeInvalidConfig,
			"action.stability_max_wait_ms must cover at least one full sample cycle, got %d",
			c.StabilityMaxWaitMs,
		)
	}

	return nil
}

func (c *InputConfig) validate() error {
	if c.ClipboardPasteThreshold < 0 {
		return derrors.Newf(
			derrors.CodeInvalidConfig,
			"input.clipboard_paste_threshold must be non-negative, got %d",
			c.ClipboardPasteThreshold,
		)
	}

	return nil
}

func (c *LoggingConfig) validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return derrors.Newf(derrors.CodeInvalidConfig, "logging.level %q is not recognized", c.Level)
	}

	return nil
}
