//go:build !windows && !linux && !darwin

package platform

import (
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

func newOSPlatform(_ *zap.Logger) (ports.Platform, error) {
	return nil, derrors.New(
		derrors.CodePlatformUnavailable,
		"no accessibility adapter exists for this operating system",
	)
}
