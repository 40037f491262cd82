package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
)

func TestParseKeySpec(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []action.Chord
	}{
		{
			name: "named key",
			spec: "{Enter}",
			want: []action.Chord{{Key: "enter"}},
		},
		{
			name: "modifier plus letter",
			spec: "{Ctrl}c",
			want: []action.Chord{{Key: "c", Modifiers: []action.Modifier{action.ModCtrl}}},
		},
		{
			name: "modifier plus named key",
			spec: "{Alt}{F4}",
			want: []action.Chord{{Key: "f4", Modifiers: []action.Modifier{action.ModAlt}}},
		},
		{
			name: "two modifiers",
			spec: "{Ctrl}{Shift}n",
			want: []action.Chord{
				{Key: "n", Modifiers: []action.Modifier{action.ModCtrl, action.ModShift}},
			},
		},
		{
			name: "plain text types chord per rune",
			spec: "hi",
			want: []action.Chord{{Key: "h"}, {Key: "i"}},
		},
		{
			name: "modifiers reset after the key",
			spec: "{Ctrl}ab",
			want: []action.Chord{
				{Key: "a", Modifiers: []action.Modifier{action.ModCtrl}},
				{Key: "b"},
			},
		},
		{
			name: "arrow and navigation keys",
			spec: "{Up}{Down}{Home}{PageDown}",
			want: []action.Chord{
				{Key: "up"}, {Key: "down"}, {Key: "home"}, {Key: "pagedown"},
			},
		},
		{
			name: "duplicate modifier collapses",
			spec: "{Ctrl}{Ctrl}x",
			want: []action.Chord{{Key: "x", Modifiers: []action.Modifier{action.ModCtrl}}},
		},
		{
			name: "key names are case-insensitive",
			spec: "{ESCAPE}",
			want: []action.Chord{{Key: "esc"}},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := action.ParseKeySpec(testCase.spec)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestParseKeySpec_Rejections(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty", ""},
		{"unmatched open brace", "{Ctrl"},
		{"unmatched close brace", "Ctrl}"},
		{"empty braces", "{}"},
		{"unknown name", "{Bogus}"},
		{"dangling modifier", "{Ctrl}"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := action.ParseKeySpec(testCase.spec)
			require.Error(t, err)
			assert.True(t, derrors.IsCode(err, derrors.CodeInvalidKeySpec),
				"want INVALID_KEY_SPEC, got %v", err)
		})
	}
}

func TestChord_Printable(t *testing.T) {
	printable, err := action.ParseKeySpec("a")
	require.NoError(t, err)
	assert.True(t, printable[0].Printable())

	named, err := action.ParseKeySpec("{Enter}")
	require.NoError(t, err)
	assert.False(t, named[0].Printable())

	chorded, err := action.ParseKeySpec("{Ctrl}a")
	require.NoError(t, err)
	assert.False(t, chorded[0].Printable())
}
