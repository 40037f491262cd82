package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	expected := []string{
		"find", "click", "invoke", "type", "press", "scroll",
		"highlight", "screenshot", "apps", "open", "activate",
		"doctor", "tray",
	}

	registered := map[string]bool{}

	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}

	for _, name := range expected {
		assert.True(t, registered[name], "command %q not registered", name)
	}
}

func TestFindRequiresSelector(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"find"})
	require.NoError(t, err)
	assert.Error(t, cmd.Args(cmd, nil), "find demands exactly one selector argument")
}

func TestCLITimeoutDefaults(t *testing.T) {
	old := timeoutSec

	defer func() { timeoutSec = old }()

	timeoutSec = 0
	assert.Positive(t, cliTimeout(), "non-positive flag falls back to a sane timeout")
}
