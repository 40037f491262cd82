package terminator

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
)

// Element is a handle to one UI node, bound to the Desktop that found it.
type Element struct {
	desktop *Desktop
	inner   *element.Element
}

// ActionOption tunes one action invocation.
type ActionOption func(*action.Options)

// ActionTimeout bounds the action including precondition waits.
func ActionTimeout(timeout time.Duration) ActionOption {
	return func(o *action.Options) {
		o.Timeout = timeout
	}
}

// VerifyAction enables postcondition verification for the action.
func VerifyAction() ActionOption {
	return func(o *action.Options) {
		o.VerifyAction = true
	}
}

// AllowOffscreen skips the visibility and viewport preconditions.
func AllowOffscreen() ActionOption {
	return func(o *action.Options) {
		o.AllowOffscreen = true
	}
}

// HighlightBeforeAction flashes a border around the target before acting.
func HighlightBeforeAction() ActionOption {
	return func(o *action.Options) {
		o.HighlightBeforeAction = true
	}
}

func buildOptions(opts []ActionOption) action.Options {
	var options action.Options

	for _, opt := range opts {
		opt(&options)
	}

	return options
}

// RuntimeID returns the element's stable identity string.
func (e *Element) RuntimeID() string {
	return string(e.inner.RuntimeID())
}

// Role returns the element's normalized role.
func (e *Element) Role(ctx context.Context) (string, error) {
	return e.inner.Role(ctx)
}

// Name returns the element's accessible label.
func (e *Element) Name(ctx context.Context) (string, error) {
	return e.inner.Name(ctx)
}

// Bounds returns the element's screen-space rectangle.
func (e *Element) Bounds(ctx context.Context) (image.Rectangle, error) {
	return e.inner.Bounds(ctx)
}

// Visible reports whether the element is on some monitor with non-empty
// bounds.
func (e *Element) Visible(ctx context.Context) (bool, error) {
	return e.inner.Visible(ctx)
}

// Enabled reports whether the element accepts interaction.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	return e.inner.Enabled(ctx)
}

// Click synthesizes a left pointer click at the element's centroid.
func (e *Element) Click(ctx context.Context, opts ...ActionOption) error {
	_, err := e.desktop.executor.Click(ctx, e.inner, action.Click{}, buildOptions(opts))

	return err
}

// DoubleClick synthesizes a double left click.
func (e *Element) DoubleClick(ctx context.Context, opts ...ActionOption) error {
	_, err := e.desktop.executor.Click(ctx, e.inner, action.Click{Count: 2}, buildOptions(opts))

	return err
}

// RightClick synthesizes a right pointer click.
func (e *Element) RightClick(ctx context.Context, opts ...ActionOption) error {
	_, err := e.desktop.executor.Click(ctx, e.inner,
		action.Click{Button: action.ButtonRight}, buildOptions(opts))

	return err
}

// Invoke fires the element's native default action, falling back to a
// pointer click when the pattern is absent.
func (e *Element) Invoke(ctx context.Context, opts ...ActionOption) error {
	_, err := e.desktop.executor.Invoke(ctx, e.inner, buildOptions(opts))

	return err
}

// TypeText focuses the element and enters text. VerifyAction compares the
// element's value afterwards.
func (e *Element) TypeText(ctx context.Context, text string, opts ...ActionOption) error {
	options := buildOptions(opts)

	_, err := e.desktop.executor.TypeText(ctx, e.inner, action.TypeText{
		Text:       text,
		ClearFirst: true,
		Verify:     options.VerifyAction,
	}, options)

	return err
}

// AppendText enters text without clearing the existing content first.
func (e *Element) AppendText(ctx context.Context, text string, opts ...ActionOption) error {
	_, err := e.desktop.executor.TypeText(ctx, e.inner,
		action.TypeText{Text: text}, buildOptions(opts))

	return err
}

// PressKey emits a brace-notation key sequence ("{Ctrl}c", "{Alt}{F4}") with
// the element focused.
func (e *Element) PressKey(ctx context.Context, keySpec string, opts ...ActionOption) error {
	_, err := e.desktop.executor.PressKey(ctx, e.inner,
		action.PressKey{KeySpec: keySpec}, buildOptions(opts))

	return err
}

// Scroll synthesizes wheel events over the element. Amount is in ticks.
func (e *Element) Scroll(
	ctx context.Context,
	direction action.ScrollDirection,
	amount float64,
	opts ...ActionOption,
) error {
	_, err := e.desktop.executor.Scroll(ctx, e.inner,
		action.Scroll{Direction: direction, Amount: amount}, buildOptions(opts))

	return err
}

// Hover moves the pointer onto the element without clicking.
func (e *Element) Hover(ctx context.Context, opts ...ActionOption) error {
	_, err := e.desktop.executor.Hover(ctx, e.inner, buildOptions(opts))

	return err
}

// Drag presses on the element and releases at the destination point.
func (e *Element) Drag(ctx context.Context, to image.Point, opts ...ActionOption) error {
	_, err := e.desktop.executor.Drag(ctx, e.inner, action.Drag{To: to}, buildOptions(opts))

	return err
}

// Highlight draws a colored border overlay around the element. Color is
// 32-bit BGR (0x00FF00 is green).
func (e *Element) Highlight(
	ctx context.Context,
	color uint32,
	duration time.Duration,
	opts ...ActionOption,
) error {
	_, err := e.desktop.executor.Highlight(ctx, e.inner,
		action.Highlight{Color: color, Duration: duration}, buildOptions(opts))

	return err
}

// Screenshot captures the element's bounds as PNG bytes.
func (e *Element) Screenshot(ctx context.Context, opts ...ActionOption) ([]byte, error) {
	report, err := e.desktop.executor.Screenshot(ctx, e.inner, buildOptions(opts))
	if err != nil {
		return nil, err
	}

	return report.Data, nil
}

// Activate brings the element's owning window to the foreground.
func (e *Element) Activate(ctx context.Context, opts ...ActionOption) error {
	_, err := e.desktop.executor.ActivateWindow(ctx, e.inner, buildOptions(opts))

	return err
}

// Locator builds a query rooted at this element's subtree.
func (e *Element) Locator(selector string) *Locator {
	return &Locator{desktop: e.desktop, selector: selector, root: e.inner}
}

// Parent returns the element's parent, or nil at the root.
func (e *Element) Parent(ctx context.Context) (*Element, error) {
	parent, err := e.inner.Parent(ctx)
	if err != nil || parent == nil {
		return nil, err
	}

	return &Element{desktop: e.desktop, inner: parent}, nil
}

// Children returns the element's direct children.
func (e *Element) Children(ctx context.Context) ([]*Element, error) {
	inners, err := e.inner.Children(ctx)
	if err != nil {
		return nil, err
	}

	children := make([]*Element, 0, len(inners))

	for _, inner := range inners {
		children = append(children, &Element{desktop: e.desktop, inner: inner})
	}

	return children, nil
}

// Text concatenates the visible text of the element's subtree, walking at
// most maxDepth levels.
func (e *Element) Text(ctx context.Context, maxDepth int) (string, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}

	var parts []string

	var walk func(elem *element.Element, depth int) error

	walk = func(elem *element.Element, depth int) error {
		info, err := elem.Info(ctx)
		if err != nil {
			return nil //nolint:nilerr // vanished descendants contribute nothing
		}

		if info.Name != "" {
			parts = append(parts, info.Name)
		}

		if value, valueErr := e.desktop.platform.Value(ctx, elem.Node()); valueErr == nil {
			if value != "" && value != info.Name {
				parts = append(parts, value)
			}
		}

		if depth >= maxDepth {
			return nil
		}

		children, err := elem.Children(ctx)
		if err != nil {
			return nil //nolint:nilerr // vanished descendants contribute nothing
		}

		for _, child := range children {
			if walkErr := walk(child, depth+1); walkErr != nil {
				return walkErr
			}
		}

		return nil
	}

	if err := walk(e.inner, 0); err != nil {
		return "", err
	}

	return strings.Join(parts, " "), nil
}
