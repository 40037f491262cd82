package executor

import (
	"github.com/atotto/clipboard"
)

// Clipboard abstracts the system clipboard for the paste path. The default
// implementation uses the OS clipboard; tests substitute an in-memory one.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// systemClipboard is the OS clipboard.
type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) {
	return clipboard.ReadAll()
}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// clipboardGuard saves the clipboard and restores it on release, on every
// exit path.
type clipboardGuard struct {
	clip     Clipboard
	previous string
	valid    bool
}

func saveClipboard(clip Clipboard) *clipboardGuard {
	guard := &clipboardGuard{clip: clip}

	previous, err := clip.ReadAll()
	if err == nil {
		guard.previous = previous
		guard.valid = true
	}

	return guard
}

func (g *clipboardGuard) restore() {
	if g.valid {
		_ = g.clip.WriteAll(g.previous)
	}
}
