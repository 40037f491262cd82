package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	terminator "github.com/tribhuwan-kumar/terminator"
	"github.com/tribhuwan-kumar/terminator/internal/config"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/logger"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
	timeoutSec int

	// Version is set via ldflags at build time.
	Version = "dev"
	// GitCommit is set via ldflags at build time.
	GitCommit = "unknown"
	// BuildDate is set via ldflags at build time.
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "terminator",
	Short: "Terminator - desktop automation through the accessibility tree",
	Long: `Terminator locates UI elements in any running application with a
selector language and performs validated actions on them: click, type,
press keys, scroll, highlight, screenshot.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Terminator version %s\nGit commit: %s\nBuild date: %s\n",
		Version, GitCommit, BuildDate,
	))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().IntVarP(&timeoutSec, "timeout", "t", 3, "operation timeout in seconds")
}

// newDesktop builds a Desktop from the CLI flags.
func newDesktop() (*terminator.Desktop, error) {
	result := config.LoadWithValidation(configPath)
	cfg := result.Config

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if setupErr := logger.Setup(cfg.Logging); setupErr != nil {
		return nil, setupErr
	}

	if result.ValidationError != nil {
		logger.Warn("Configuration invalid, continuing with defaults",
			zap.String("path", result.ConfigPath),
			zap.Error(result.ValidationError))
	}

	return terminator.New(
		terminator.WithConfig(cfg),
		terminator.WithLogger(logger.Get()),
	)
}

func cliTimeout() time.Duration {
	if timeoutSec <= 0 {
		return 3 * time.Second
	}

	return time.Duration(timeoutSec) * time.Second
}
