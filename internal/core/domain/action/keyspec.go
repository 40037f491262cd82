package action

import (
	"strings"

	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
)

// Chord is one key press with its modifier set, emitted in
// modifier-down → key → modifier-up order.
type Chord struct {
	// Key is a named key ("enter", "f4", "up") or a single printable rune.
	Key string
	// Modifiers are held for the duration of the key press.
	Modifiers []Modifier
}

// Printable reports whether the chord types a visible character (used by
// press-key verification, which only checks content changes for printable
// input).
func (c Chord) Printable() bool {
	if len(c.Modifiers) > 0 {
		return false
	}

	runes := []rune(c.Key)

	return len(runes) == 1 && runes[0] >= ' '
}

// namedKeys maps lower-cased brace token names to platform key names.
var namedKeys = map[string]string{
	"enter":     "enter",
	"return":    "enter",
	"tab":       "tab",
	"escape":    "esc",
	"esc":       "esc",
	"space":     "space",
	"backspace": "backspace",
	"delete":    "delete",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
	"home":      "home",
	"end":       "end",
	"pageup":    "pageup",
	"pagedown":  "pagedown",
	"insert":    "insert",
	"f1":        "f1",
	"f2":        "f2",
	"f3":        "f3",
	"f4":        "f4",
	"f5":        "f5",
	"f6":        "f6",
	"f7":        "f7",
	"f8":        "f8",
	"f9":        "f9",
	"f10":       "f10",
	"f11":       "f11",
	"f12":       "f12",
}

// namedModifiers maps brace token names to modifiers.
var namedModifiers = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"shift":   ModShift,
	"cmd":     ModCmd,
	"win":     ModCmd,
	"super":   ModCmd,
}

// ParseKeySpec parses the brace-notation key DSL into an ordered chord
// sequence. Modifiers prefix the key they apply to: "{Ctrl}c" is Ctrl+C,
// "{Ctrl}{Shift}n" is Ctrl+Shift+N, and a bare "abc" types three chords.
// Unmatched braces or unknown names fail with InvalidKeySpec.
func ParseKeySpec(spec string) ([]Chord, error) {
	if spec == "" {
		return nil, derrors.New(derrors.CodeInvalidKeySpec, "key spec is empty")
	}

	var (
		chords    []Chord
		modifiers []Modifier
	)

	runes := []rune(spec)

	for pos := 0; pos < len(runes); {
		ch := runes[pos]

		switch ch {
		case '{':
			end := indexRune(runes, pos+1, '}')
			if end < 0 {
				return nil, derrors.Newf(
					derrors.CodeInvalidKeySpec,
					"unmatched '{' at position %d",
					pos,
				).WithContext("spec", spec)
			}

			name := strings.ToLower(string(runes[pos+1 : end]))
			if name == "" {
				return nil, derrors.Newf(
					derrors.CodeInvalidKeySpec,
					"empty brace token at position %d",
					pos,
				).WithContext("spec", spec)
			}

			if modifier, ok := namedModifiers[name]; ok {
				modifiers = appendModifier(modifiers, modifier)
				pos = end + 1

				continue
			}

			key, ok := namedKeys[name]
			if !ok {
				return nil, derrors.Newf(
					derrors.CodeInvalidKeySpec,
					"unknown key name %q",
					name,
				).WithContext("spec", spec)
			}

			chords = append(chords, Chord{Key: key, Modifiers: modifiers})
			modifiers = nil
			pos = end + 1
		case '}':
			return nil, derrors.Newf(
				derrors.CodeInvalidKeySpec,
				"unmatched '}' at position %d",
				pos,
			).WithContext("spec", spec)
		default:
			chords = append(chords, Chord{Key: string(ch), Modifiers: modifiers})
			modifiers = nil
			pos++
		}
	}

	if len(modifiers) > 0 {
		return nil, derrors.New(
			derrors.CodeInvalidKeySpec,
			"dangling modifier with no key to apply to",
		).WithContext("spec", spec)
	}

	return chords, nil
}

func indexRune(runes []rune, from int, target rune) int {
	for pos := from; pos < len(runes); pos++ {
		if runes[pos] == target {
			return pos
		}
	}

	return -1
}

func appendModifier(modifiers []Modifier, modifier Modifier) []Modifier {
	for _, existing := range modifiers {
		if existing == modifier {
			return modifiers
		}
	}

	return append(modifiers, modifier)
}
