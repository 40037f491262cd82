package platform

import (
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

// New returns the accessibility adapter for the current operating system, or
// PlatformUnavailable when the OS has none or its accessibility subsystem is
// unreachable.
func New(logger *zap.Logger) (ports.Platform, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	return newOSPlatform(logger)
}
