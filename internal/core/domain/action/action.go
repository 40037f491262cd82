package action

import (
	"image"
	"time"
)

// Kind identifies an action performed on an element.
type Kind string

// Action kinds.
const (
	KindClick          Kind = "click"
	KindInvoke         Kind = "invoke"
	KindTypeText       Kind = "type_text"
	KindPressKey       Kind = "press_key"
	KindScroll         Kind = "scroll"
	KindHover          Kind = "hover"
	KindDrag           Kind = "drag"
	KindHighlight      Kind = "highlight"
	KindScreenshot     Kind = "screenshot"
	KindActivateWindow Kind = "activate_window"
)

// Button identifies a mouse button.
type Button string

// Mouse buttons.
const (
	ButtonLeft   Button = "left"
	ButtonMiddle Button = "middle"
	ButtonRight  Button = "right"
)

// Modifier identifies a keyboard modifier key.
type Modifier string

// Modifier keys. ModCmd maps to the Windows key on Windows and Super on Linux.
const (
	ModCtrl  Modifier = "ctrl"
	ModAlt   Modifier = "alt"
	ModShift Modifier = "shift"
	ModCmd   Modifier = "cmd"
)

// ScrollDirection identifies a scroll axis and sign.
type ScrollDirection string

// Scroll directions.
const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// TextPosition identifies where a highlight label is drawn relative to the
// highlighted bounds.
type TextPosition string

// Highlight label positions.
const (
	PosTopLeft     TextPosition = "top-left"
	PosTop         TextPosition = "top"
	PosTopRight    TextPosition = "top-right"
	PosLeft        TextPosition = "left"
	PosCenter      TextPosition = "center"
	PosRight       TextPosition = "right"
	PosBottomLeft  TextPosition = "bottom-left"
	PosBottom      TextPosition = "bottom"
	PosBottomRight TextPosition = "bottom-right"
)

// Click describes a pointer click.
type Click struct {
	Button    Button
	Count     int
	Modifiers []Modifier
	// Offset, when non-nil, replaces the bounds centroid as the click point,
	// relative to the element's top-left corner.
	Offset *image.Point
}

// TypeText describes text entry into an element.
type TypeText struct {
	Text       string
	ClearFirst bool
	Verify     bool
}

// PressKey describes a key chord sequence in the brace DSL.
type PressKey struct {
	KeySpec string
}

// Scroll describes a wheel scroll. Amount is in ticks (3 lines per tick).
type Scroll struct {
	Direction ScrollDirection
	Amount    float64
}

// Drag describes a pointer drag from the element to a destination point.
type Drag struct {
	To     image.Point
	Button Button
}

// Highlight describes a visual border overlay. Color is a 32-bit BGR value
// (blue in the low byte).
type Highlight struct {
	Color    uint32
	Duration time.Duration
	Text     string
	Position TextPosition
}

// Options carries execution policy shared by all action kinds.
type Options struct {
	Timeout               time.Duration
	Retries               int
	HighlightBeforeAction bool
	VerifyAction          bool
	AllowOffscreen        bool
}

// Actionability enumerates precondition check outcomes.
type Actionability string

// Actionability states.
const (
	Ready         Actionability = "ready"
	NotAttached   Actionability = "not_attached"
	NotVisible    Actionability = "not_visible"
	NotEnabled    Actionability = "not_enabled"
	NotInViewport Actionability = "not_in_viewport"
	Unstable      Actionability = "unstable"
	Obscured      Actionability = "obscured"
	ScrollFailed  Actionability = "scroll_failed"
)

// Transient reports whether the state may clear on its own within the action
// deadline. Transient states are retried; the rest fail fast.
func (a Actionability) Transient() bool {
	return a == NotInViewport || a == Unstable
}

// Report is the outcome of an executed action.
type Report struct {
	// ID uniquely identifies the execution for log correlation.
	ID string
	// Kind is the action that ran.
	Kind Kind
	// Validated is true when the action's effect was confirmed: the invoke
	// pattern fired, or an input event was synthesized at the resolved point.
	Validated bool
	// Method records how the action was performed (e.g. "invoke",
	// "pointer", "clipboard-paste", "keystrokes").
	Method string
	// Point is the screen coordinate used for pointer actions.
	Point image.Point
	// Elapsed is the total execution time including precondition waits.
	Elapsed time.Duration
	// Attempts counts precondition cycles run before the action fired.
	Attempts int
	// Data carries kind-specific output (PNG bytes for screenshots).
	Data []byte
}
