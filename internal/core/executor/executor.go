package executor

import (
	"context"
	"errors"
	"image"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tribhuwan-kumar/terminator/internal/config"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

const (
	// transientRetryDelay spaces precondition cycles for transient states.
	transientRetryDelay = 50 * time.Millisecond

	// toggleVerifyWindow bounds post-click toggle state polling.
	toggleVerifyWindow = 300 * time.Millisecond

	// toggleVerifyInterval spaces toggle state polls.
	toggleVerifyInterval = 25 * time.Millisecond
)

// Executor runs validated actions against resolved elements.
type Executor struct {
	platform   ports.Platform
	cfg        *config.Config
	logger     *zap.Logger
	highlights *highlightRegistry
	clip       Clipboard
}

// Option configures an Executor.
type Option func(*Executor)

// WithClipboard substitutes the system clipboard.
func WithClipboard(clip Clipboard) Option {
	return func(e *Executor) {
		e.clip = clip
	}
}

// New creates an action executor.
func New(platform ports.Platform, cfg *config.Config, logger *zap.Logger, opts ...Option) *Executor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	executor := &Executor{
		platform:   platform,
		cfg:        cfg,
		logger:     logger,
		highlights: newHighlightRegistry(logger),
		clip:       systemClipboard{},
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// StopHighlighting ends all live highlight overlays immediately.
func (e *Executor) StopHighlighting() {
	e.highlights.stopAll()
}

// run drives the per-action state machine: precondition cycle with bounded
// retries for transient states, then the kind-specific fire step.
func (e *Executor) run(
	ctx context.Context,
	target *element.Element,
	kind action.Kind,
	opts action.Options,
	offset *image.Point,
	fire func(ctx context.Context, point image.Point) (string, error),
) (*action.Report, error) {
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeoutFor(opts))
	defer cancel()

	report := &action.Report{
		ID:   uuid.NewString(),
		Kind: kind,
	}

	var state action.Actionability

	for {
		if ctxErr := checkContext(ctx); ctxErr != nil {
			return nil, ctxErr
		}

		report.Attempts++

		result, err := e.precheck(ctx, target, kind, opts, offset)
		if err != nil {
			return nil, err
		}

		state = result.state

		if state == action.Ready {
			report.Point = result.point

			break
		}

		if !state.Transient() {
			return nil, stateError(state, target)
		}

		// Retries, when set, bound the precondition cycles below the
		// deadline.
		if opts.Retries > 0 && report.Attempts > opts.Retries {
			return nil, stateError(state, target)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, derrors.New(derrors.CodeCanceled, "action canceled")
			}

			// The deadline passed while the state was still transient.
			return nil, stateError(state, target)
		case <-time.After(transientRetryDelay):
		}
	}

	if opts.HighlightBeforeAction && kind != action.KindHighlight {
		if bounds, boundsErr := target.Bounds(ctx); boundsErr == nil {
			e.highlights.show(ctx, e.platform, bounds, action.Highlight{
				Color:    0x00FF00,
				Duration: time.Second,
			})
		}
	}

	method, err := fire(ctx, report.Point)
	if err != nil {
		return nil, err
	}

	report.Validated = true
	report.Method = method
	report.Elapsed = time.Since(started)

	e.logger.Debug("Action executed",
		zap.String("id", report.ID),
		zap.String("kind", string(kind)),
		zap.String("method", method),
		zap.Int("attempts", report.Attempts))

	return report, nil
}

func (e *Executor) timeoutFor(opts action.Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}

	return time.Duration(e.cfg.Action.DefaultTimeoutMs) * time.Millisecond
}

// toggleRoles are the roles whose click verification polls the toggle state.
var toggleRoles = map[string]bool{
	"CheckBox":     true,
	"RadioButton":  true,
	"Switch":       true,
	"ToggleButton": true,
}

// Click synthesizes a pointer click at the element's centroid (or the given
// offset).
func (e *Executor) Click(
	ctx context.Context,
	target *element.Element,
	click action.Click,
	opts action.Options,
) (*action.Report, error) {
	if click.Button == "" {
		click.Button = action.ButtonLeft
	}

	if click.Count <= 0 {
		click.Count = 1
	}

	verifyToggle := false

	var toggleBefore bool

	if opts.VerifyAction {
		if role, roleErr := target.Role(ctx); roleErr == nil && toggleRoles[role] {
			if before, toggleErr := e.platform.Toggled(ctx, target.Node()); toggleErr == nil {
				verifyToggle = true
				toggleBefore = before
			}
		}
	}

	report, err := e.run(ctx, target, action.KindClick, opts, click.Offset,
		func(ctx context.Context, point image.Point) (string, error) {
			clickErr := e.platform.Click(ctx, point, click.Button, click.Count, click.Modifiers)
			if clickErr != nil {
				return "", clickErr
			}

			target.InvalidateReadCache()

			return "pointer", nil
		})
	if err != nil {
		return nil, err
	}

	if verifyToggle {
		if verifyErr := e.verifyToggleFlip(ctx, target, toggleBefore); verifyErr != nil {
			return nil, verifyErr
		}
	}

	return report, nil
}

// Invoke prefers the element's invoke pattern, falling back to a pointer
// click when the pattern is absent.
func (e *Executor) Invoke(
	ctx context.Context,
	target *element.Element,
	opts action.Options,
) (*action.Report, error) {
	return e.run(ctx, target, action.KindInvoke, opts, nil,
		func(ctx context.Context, point image.Point) (string, error) {
			invokeErr := e.platform.Invoke(ctx, target.Node())
			if invokeErr == nil {
				target.InvalidateReadCache()

				return "invoke", nil
			}

			if !derrors.IsCode(invokeErr, derrors.CodeInvokeUnsupported) {
				return "", invokeErr
			}

			clickErr := e.platform.Click(ctx, point, action.ButtonLeft, 1, nil)
			if clickErr != nil {
				return "", clickErr
			}

			target.InvalidateReadCache()

			return "pointer", nil
		})
}

// TypeText focuses the element and enters text, via clipboard paste for long
// or non-keyboard strings with keystroke fallback.
func (e *Executor) TypeText(
	ctx context.Context,
	target *element.Element,
	spec action.TypeText,
	opts action.Options,
) (*action.Report, error) {
	report, err := e.run(ctx, target, action.KindTypeText, opts, nil,
		func(ctx context.Context, _ image.Point) (string, error) {
			if focusErr := e.platform.Focus(ctx, target.Node()); focusErr != nil {
				return "", focusErr
			}

			if spec.ClearFirst {
				if clearErr := e.clearText(ctx); clearErr != nil {
					return "", clearErr
				}
			}

			method, typeErr := e.enterText(ctx, spec.Text)
			if typeErr != nil {
				return "", typeErr
			}

			target.InvalidateReadCache()

			return method, nil
		})
	if err != nil {
		return nil, err
	}

	if spec.Verify || opts.VerifyAction {
		value, valueErr := e.platform.Value(ctx, target.Node())
		if valueErr != nil {
			return nil, valueErr
		}

		if value != spec.Text {
			return nil, derrors.Newf(
				derrors.CodeVerificationFailed,
				"element value does not match the typed text (%d vs %d chars)",
				len(value), len(spec.Text),
			).WithRuntimeID(string(target.RuntimeID()))
		}
	}

	return report, nil
}

// enterText picks clipboard paste for strings at or above the configured
// threshold or containing non-keyboard characters, falling back to
// keystrokes when the clipboard path fails. The previous clipboard content
// is restored on all exit paths.
func (e *Executor) enterText(ctx context.Context, text string) (string, error) {
	usePaste := len(text) >= e.cfg.Input.ClipboardPasteThreshold || !isKeyboardText(text)

	if usePaste {
		guard := saveClipboard(e.clip)
		defer guard.restore()

		if writeErr := e.clip.WriteAll(text); writeErr == nil {
			pasteErr := e.platform.PressChords(ctx, []action.Chord{{
				Key:       "v",
				Modifiers: []action.Modifier{primaryModifier()},
			}})
			if pasteErr == nil {
				return "clipboard-paste", nil
			}
		}

		// Headless displays may have no clipboard; keystrokes still work.
		e.logger.Debug("Clipboard paste unavailable, falling back to keystrokes")
	}

	if typeErr := e.platform.TypeKeystrokes(ctx, text); typeErr != nil {
		return "", typeErr
	}

	return "keystrokes", nil
}

// clearText selects everything and deletes it.
func (e *Executor) clearText(ctx context.Context) error {
	return e.platform.PressChords(ctx, []action.Chord{
		{Key: "a", Modifiers: []action.Modifier{primaryModifier()}},
		{Key: "delete"},
	})
}

// PressKey parses the key spec and emits the chords with the element focused.
func (e *Executor) PressKey(
	ctx context.Context,
	target *element.Element,
	spec action.PressKey,
	opts action.Options,
) (*action.Report, error) {
	chords, err := action.ParseKeySpec(spec.KeySpec)
	if err != nil {
		return nil, err
	}

	var valueBefore string

	verifyValue := false

	if opts.VerifyAction && anyPrintable(chords) {
		if before, valueErr := e.platform.Value(ctx, target.Node()); valueErr == nil {
			valueBefore = before
			verifyValue = true
		}
	}

	report, err := e.run(ctx, target, action.KindPressKey, opts, nil,
		func(ctx context.Context, _ image.Point) (string, error) {
			if focusErr := e.platform.Focus(ctx, target.Node()); focusErr != nil {
				return "", focusErr
			}

			if pressErr := e.platform.PressChords(ctx, chords); pressErr != nil {
				return "", pressErr
			}

			target.InvalidateReadCache()

			return "keystrokes", nil
		})
	if err != nil {
		return nil, err
	}

	if verifyValue {
		after, valueErr := e.platform.Value(ctx, target.Node())
		if valueErr == nil && after == valueBefore {
			return nil, derrors.New(
				derrors.CodeVerificationFailed,
				"element content did not change after printable key input",
			).WithRuntimeID(string(target.RuntimeID()))
		}
	}

	return report, nil
}

// Scroll synthesizes wheel events at the element's centroid.
func (e *Executor) Scroll(
	ctx context.Context,
	target *element.Element,
	spec action.Scroll,
	opts action.Options,
) (*action.Report, error) {
	if spec.Amount <= 0 {
		spec.Amount = 3
	}

	return e.run(ctx, target, action.KindScroll, opts, nil,
		func(ctx context.Context, point image.Point) (string, error) {
			if scrollErr := e.platform.Scroll(ctx, point, spec.Direction, spec.Amount); scrollErr != nil {
				return "", scrollErr
			}

			target.InvalidateReadCache()

			return "wheel", nil
		})
}

// Hover moves the pointer onto the element without clicking.
func (e *Executor) Hover(
	ctx context.Context,
	target *element.Element,
	opts action.Options,
) (*action.Report, error) {
	return e.run(ctx, target, action.KindHover, opts, nil,
		func(ctx context.Context, point image.Point) (string, error) {
			if moveErr := e.platform.MoveMouse(ctx, point); moveErr != nil {
				return "", moveErr
			}

			return "pointer", nil
		})
}

// Drag presses on the element and releases at the destination.
func (e *Executor) Drag(
	ctx context.Context,
	target *element.Element,
	spec action.Drag,
	opts action.Options,
) (*action.Report, error) {
	if spec.Button == "" {
		spec.Button = action.ButtonLeft
	}

	return e.run(ctx, target, action.KindDrag, opts, nil,
		func(ctx context.Context, point image.Point) (string, error) {
			if dragErr := e.platform.Drag(ctx, point, spec.To, spec.Button); dragErr != nil {
				return "", dragErr
			}

			target.InvalidateReadCache()

			return "pointer", nil
		})
}

// Highlight draws a border overlay around the element. The overlay outlives
// the call and is tracked for StopHighlighting.
func (e *Executor) Highlight(
	ctx context.Context,
	target *element.Element,
	spec action.Highlight,
	opts action.Options,
) (*action.Report, error) {
	return e.run(ctx, target, action.KindHighlight, opts, nil,
		func(ctx context.Context, _ image.Point) (string, error) {
			bounds, boundsErr := target.Bounds(ctx)
			if boundsErr != nil {
				return "", boundsErr
			}

			e.highlights.show(ctx, e.platform, bounds, spec)

			return "overlay", nil
		})
}

// Screenshot captures the desktop, clipped to the element when given one.
func (e *Executor) Screenshot(
	ctx context.Context,
	target *element.Element,
	opts action.Options,
) (*action.Report, error) {
	if target == nil {
		data, err := e.platform.CapturePNG(ctx, nil)
		if err != nil {
			return nil, err
		}

		return &action.Report{
			ID:        uuid.NewString(),
			Kind:      action.KindScreenshot,
			Validated: true,
			Method:    "capture",
			Data:      data,
		}, nil
	}

	var data []byte

	report, err := e.run(ctx, target, action.KindScreenshot, opts, nil,
		func(ctx context.Context, _ image.Point) (string, error) {
			bounds, boundsErr := target.Bounds(ctx)
			if boundsErr != nil {
				return "", boundsErr
			}

			captured, captureErr := e.platform.CapturePNG(ctx, &bounds)
			if captureErr != nil {
				return "", captureErr
			}

			data = captured

			return "capture", nil
		})
	if err != nil {
		return nil, err
	}

	report.Data = data

	return report, nil
}

// ActivateWindow brings the element's owning window to the foreground.
func (e *Executor) ActivateWindow(
	ctx context.Context,
	target *element.Element,
	opts action.Options,
) (*action.Report, error) {
	allowOffscreen := opts
	allowOffscreen.AllowOffscreen = true

	return e.run(ctx, target, action.KindActivateWindow, allowOffscreen, nil,
		func(ctx context.Context, _ image.Point) (string, error) {
			if activateErr := e.platform.ActivateWindow(ctx, target.Node()); activateErr != nil {
				return "", activateErr
			}

			return "activate", nil
		})
}

// verifyToggleFlip polls the toggle state until it differs from the
// pre-click state or the verification window closes.
func (e *Executor) verifyToggleFlip(
	ctx context.Context,
	target *element.Element,
	before bool,
) error {
	deadline := time.Now().Add(toggleVerifyWindow)

	for {
		after, err := e.platform.Toggled(ctx, target.Node())
		if err == nil && after != before {
			return nil
		}

		if time.Now().After(deadline) {
			return derrors.New(
				derrors.CodeVerificationFailed,
				"toggle state did not change after click",
			).WithRuntimeID(string(target.RuntimeID()))
		}

		select {
		case <-ctx.Done():
			return checkContext(ctx)
		case <-time.After(toggleVerifyInterval):
		}
	}
}

// primaryModifier is the platform's shortcut modifier.
func primaryModifier() action.Modifier {
	if runtime.GOOS == "darwin" {
		return action.ModCmd
	}

	return action.ModCtrl
}

// isKeyboardText reports whether every rune is plain ASCII reachable from a
// keyboard layout.
func isKeyboardText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
	}

	return !strings.ContainsRune(text, '\x00')
}

func anyPrintable(chords []action.Chord) bool {
	for _, chord := range chords {
		if chord.Printable() {
			return true
		}
	}

	return false
}
