// Package platform supplies the OS accessibility adapters behind
// ports.Platform: UI Automation over COM on Windows, AXUIElement over cgo on
// macOS, and AT-SPI2 over D-Bus on Linux. Input synthesis is shared across
// adapters through a robotgo-backed engine.
//
// All normalization happens here: role strings become canonical
// upper-cased-first forms, names are whitespace-trimmed, and bounds are
// DPI-resolved into logical screen pixels exactly once. Raw platform errors
// (HRESULTs, D-Bus errors, AX codes) are converted into the domain error
// taxonomy at this boundary and never escape.
//
// The package also carries Mock, a scriptable in-memory tree used by
// locator, executor, cache, and monitor tests.
package platform
