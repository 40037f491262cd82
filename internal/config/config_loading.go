package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
)

// LoadResult carries the outcome of a configuration load: the effective
// config, the path it came from, and any validation error encountered.
type LoadResult struct {
	Config          *Config
	ConfigPath      string
	ValidationError error
}

// FindConfigFile returns the first existing config file among the standard
// locations, or the preferred location when none exists yet.
func FindConfigFile() string {
	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		return "terminator.toml"
	}

	candidates := []string{
		filepath.Join(homeDir, ".config", "terminator", "config.toml"),
		filepath.Join(homeDir, ".terminator", "config.toml"),
	}

	for _, candidate := range candidates {
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate
		}
	}

	return candidates[0]
}

// LoadWithValidation loads configuration from the specified path and returns
// both the config and any validation error separately. This allows callers to
// decide how to handle validation failures (e.g. warn and continue with the
// default config).
func LoadWithValidation(path string) *LoadResult {
	configResult := &LoadResult{
		Config:     DefaultConfig(),
		ConfigPath: path,
	}

	if path == "" {
		configResult.ConfigPath = FindConfigFile()
	}

	_, statErr := os.Stat(configResult.ConfigPath)
	if os.IsNotExist(statErr) {
		return configResult
	}

	_, decodeErr := toml.DecodeFile(configResult.ConfigPath, configResult.Config)
	if decodeErr != nil {
		configResult.ValidationError = derrors.Wrap(
			decodeErr,
			derrors.CodeInvalidConfig,
			"failed to parse config file",
		)
		configResult.Config = DefaultConfig()

		return configResult
	}

	validateErr := configResult.Config.Validate()
	if validateErr != nil {
		configResult.ValidationError = derrors.Wrap(
			validateErr,
			derrors.CodeInvalidConfig,
			"invalid configuration",
		)
		configResult.Config = DefaultConfig()
	}

	return configResult
}

// Load loads configuration from path, falling back to defaults when the file
// is missing, and returns an error for unparseable or invalid files.
func Load(path string) (*Config, error) {
	result := LoadWithValidation(path)
	if result.ValidationError != nil {
		return nil, result.ValidationError
	}

	return result.Config, nil
}
