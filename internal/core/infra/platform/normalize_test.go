package platform_test

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/platform"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Button", "Button"},
		{"button", "Button"},
		{"AXButton", "Button"},
		{"AXTextField", "Edit"},
		{"AXWebArea", "Document"},
		{"push button", "Button"},
		{"entry", "Edit"},
		{"frame", "Window"},
		{"ControlType.Button", "Button"},
		{"", "Unknown"},
		{"somethingodd", "Somethingodd"},
	}

	for _, testCase := range tests {
		t.Run(testCase.raw, func(t *testing.T) {
			assert.Equal(t, testCase.want, platform.NormalizeRole(testCase.raw))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "OK", platform.NormalizeName("  OK \n"))
	assert.Equal(t, "", platform.NormalizeName("   "))
}

func TestScaleBounds(t *testing.T) {
	raw := image.Rect(0, 0, 200, 100)

	assert.Equal(t, raw, platform.ScaleBounds(raw, 1))
	assert.Equal(t, raw, platform.ScaleBounds(raw, 0), "zero scale means unscaled")
	assert.Equal(t, image.Rect(0, 0, 100, 50), platform.ScaleBounds(raw, 2))
	assert.Equal(t, image.Rect(0, 0, 133, 67), platform.ScaleBounds(raw, 1.5))
}
