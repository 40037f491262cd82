package ports

import (
	"context"
	"image"

	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
)

// NativeNode is an opaque reference to a platform-owned accessibility node.
// Implementations that retain OS resources release them in Release; pure-Go
// implementations may no-op.
//
//nolint:iface // Intentionally small interface for future extension
type NativeNode interface {
	Release()
}

// RuntimeID is the opaque, lifetime-stable identity of an element within a
// process. Equality of RuntimeIDs is equality of elements.
type RuntimeID string

// NodeInfo is a normalized property snapshot of one accessibility node.
// Roles are canonical upper-cased-first forms (Button, Window, Edit), names
// are whitespace-trimmed labels, and bounds are screen-space logical pixels
// with DPI scaling already applied.
type NodeInfo struct {
	Role        string
	Name        string
	NativeID    string
	ClassName   string
	Bounds      image.Rectangle
	Enabled     bool
	Focused     bool
	ProcessID   int
	WindowTitle string
}

// AppInfo describes one running application with toplevel windows.
type AppInfo struct {
	Name        string
	ProcessID   int
	WindowTitle string
	Window      NativeNode
}

// EventKind identifies an OS accessibility notification.
type EventKind int

// Event kinds delivered by SubscribeEvents. Adapters that cannot provide a
// given kind silently degrade; handlers still receive the ones available.
const (
	EventFocusChanged EventKind = iota
	EventForegroundChanged
	EventTitleChanged
)

// Event is one OS accessibility notification, already resolved to the owning
// application name and window title.
type Event struct {
	Kind        EventKind
	AppName     string
	WindowTitle string
	ProcessID   int
}

// Subscription is an active event registration.
type Subscription interface {
	Close() error
}

// OverlayHandle is one visible highlight overlay.
type OverlayHandle interface {
	Close() error
}

// TreeAccess walks the platform accessibility tree.
type TreeAccess interface {
	// Root returns the desktop root node.
	Root(ctx context.Context) (NativeNode, error)

	// Children returns the node's children in platform sibling order. The
	// order is deterministic across adjacent calls unless the tree mutated.
	Children(ctx context.Context, node NativeNode) ([]NativeNode, error)

	// Parent returns the node's parent, or nil for the root.
	Parent(ctx context.Context, node NativeNode) (NativeNode, error)

	// Info reads the node's normalized property snapshot. It fails with
	// ElementDetached when the underlying UI node no longer exists.
	Info(ctx context.Context, node NativeNode) (*NodeInfo, error)

	// NodeRuntimeID returns the platform-stable identifier for the node.
	NodeRuntimeID(node NativeNode) (RuntimeID, error)

	// ElementAtPoint hit-tests the topmost node at screen coordinates, or
	// nil when nothing is there.
	ElementAtPoint(ctx context.Context, point image.Point) (NativeNode, error)
}

// Patterns exposes accessibility interaction patterns.
type Patterns interface {
	// Invoke fires the node's default-action pattern. Fails with
	// InvokeUnsupported when the node lacks the pattern.
	Invoke(ctx context.Context, node NativeNode) error

	// Focus gives the node keyboard focus via its native pattern.
	Focus(ctx context.Context, node NativeNode) error

	// Value reads the node's text value.
	Value(ctx context.Context, node NativeNode) (string, error)

	// Toggled reads the node's toggle/checked state.
	Toggled(ctx context.Context, node NativeNode) (bool, error)

	// ScrollIntoView asks the node's container to scroll it on screen.
	ScrollIntoView(ctx context.Context, node NativeNode) error
}

// InputSynthesis emits OS-level input events.
type InputSynthesis interface {
	// Click synthesizes a pointer click at screen coordinates.
	Click(ctx context.Context, point image.Point, button action.Button, count int, modifiers []action.Modifier) error

	// MoveMouse moves the pointer to screen coordinates.
	MoveMouse(ctx context.Context, point image.Point) error

	// TypeKeystrokes emits the text one keystroke at a time.
	TypeKeystrokes(ctx context.Context, text string) error

	// PressChords emits each chord in modifier-down → key → modifier-up order.
	PressChords(ctx context.Context, chords []action.Chord) error

	// Scroll synthesizes wheel events at the given point. Amount is in
	// ticks (3 lines per tick).
	Scroll(ctx context.Context, point image.Point, direction action.ScrollDirection, amount float64) error

	// Drag presses at from, moves through intermediate points, and releases
	// at to, honoring the system drag threshold.
	Drag(ctx context.Context, from, to image.Point, button action.Button) error
}

// WindowManagement enumerates and controls toplevel windows.
type WindowManagement interface {
	// ListApplications returns direct-child toplevel windows and their
	// owning processes without walking the full tree.
	ListApplications(ctx context.Context) ([]AppInfo, error)

	// ActivateWindow brings the node's owning window to the foreground.
	ActivateWindow(ctx context.Context, node NativeNode) error

	// FocusedWindow returns the currently focused toplevel window.
	FocusedWindow(ctx context.Context) (NativeNode, error)

	// OpenApplication launches an application by name.
	OpenApplication(ctx context.Context, name string) error
}

// ScreenAccess reads monitor geometry and pixels.
type ScreenAccess interface {
	// Screens returns the logical-pixel rectangle of every monitor.
	Screens(ctx context.Context) ([]image.Rectangle, error)

	// CapturePNG captures the desktop, clipped to clip when non-nil, and
	// returns PNG bytes.
	CapturePNG(ctx context.Context, clip *image.Rectangle) ([]byte, error)
}

// EventSource delivers OS accessibility notifications.
type EventSource interface {
	// SubscribeEvents registers a handler for focus-change, foreground-app,
	// and window-title notifications. The handler runs on the platform's
	// notification thread and must not block.
	SubscribeEvents(handler func(Event)) (Subscription, error)
}

// OverlaySupport draws highlight overlays. Adapters without overlay drawing
// return InvokeUnsupported; highlighting is a visual side effect and never
// blocks the action pipeline.
type OverlaySupport interface {
	// ShowHighlight draws a colored border at bounds with an optional text
	// label. Color is 32-bit BGR.
	ShowHighlight(ctx context.Context, bounds image.Rectangle, color uint32, text string, pos action.TextPosition) (OverlayHandle, error)
}

// Health checks adapter availability.
type Health interface {
	// CheckPermissions verifies accessibility permissions are granted.
	CheckPermissions(ctx context.Context) error
}

// Platform is the full capability surface one OS adapter provides.
//
//nolint:interfacebloat // Facade interface composed of segregated concerns
type Platform interface {
	TreeAccess
	Patterns
	InputSynthesis
	WindowManagement
	ScreenAccess
	EventSource
	OverlaySupport
	Health
}
