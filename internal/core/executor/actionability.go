package executor

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
)

// boundsTolerance is the per-axis pixel slack between stability samples.
const boundsTolerance = 1

// enabledExempt lists the kinds that act on disabled elements too.
func enabledExempt(kind action.Kind) bool {
	return kind == action.KindHover || kind == action.KindScreenshot || kind == action.KindHighlight
}

// pointerKind reports whether the action dispatches a pointer event and so
// needs its target point inside the viewport.
func pointerKind(kind action.Kind) bool {
	switch kind {
	case action.KindClick, action.KindInvoke, action.KindHover, action.KindDrag:
		return true
	default:
		return false
	}
}

// precheckResult carries the actionability verdict and the resolved pointer
// target.
type precheckResult struct {
	state action.Actionability
	point image.Point
}

// precheck runs the full precondition set against live platform reads. It
// never uses the handle's per-action cache: each sample is a fresh read.
func (e *Executor) precheck(
	ctx context.Context,
	target *element.Element,
	kind action.Kind,
	opts action.Options,
	offset *image.Point,
) (precheckResult, error) {
	// Attached.
	info, err := target.FreshInfo(ctx)
	if err != nil {
		if derrors.IsCode(err, derrors.CodeElementDetached) {
			return precheckResult{state: action.NotAttached}, nil
		}

		return precheckResult{}, err
	}

	screens, err := e.platform.Screens(ctx)
	if err != nil {
		return precheckResult{}, err
	}

	// Visible.
	if !opts.AllowOffscreen && !element.VisibleIn(info.Bounds, screens) {
		return precheckResult{state: action.NotVisible}, nil
	}

	// Enabled.
	if !enabledExempt(kind) && !info.Enabled {
		return precheckResult{state: action.NotEnabled}, nil
	}

	point := actionPoint(info.Bounds, offset)

	// In viewport, with one scroll-into-view attempt.
	if pointerKind(kind) && !opts.AllowOffscreen && !pointIn(point, screens) {
		if scrollErr := e.platform.ScrollIntoView(ctx, target.Node()); scrollErr != nil {
			return precheckResult{state: action.NotInViewport}, nil
		}

		info, err = target.FreshInfo(ctx)
		if err != nil {
			return precheckResult{state: action.NotAttached}, nil //nolint:nilerr // detachment mid-check is a state, not a failure
		}

		point = actionPoint(info.Bounds, offset)

		if !pointIn(point, screens) {
			return precheckResult{state: action.NotInViewport}, nil
		}
	}

	// Stable bounds.
	stable, stableErr := e.waitStable(ctx, target)
	if stableErr != nil {
		return precheckResult{}, stableErr
	}

	if !stable {
		return precheckResult{state: action.Unstable}, nil
	}

	// Bounds may have settled elsewhere; refresh the target point.
	info, err = target.FreshInfo(ctx)
	if err != nil {
		return precheckResult{state: action.NotAttached}, nil //nolint:nilerr // detachment mid-check is a state, not a failure
	}

	point = actionPoint(info.Bounds, offset)

	// Obscured: the topmost node at the action point must be the target or
	// one of its descendants.
	if pointerKind(kind) && kind != action.KindHover {
		obscured, obscuredErr := e.isObscured(ctx, target, point)
		if obscuredErr == nil && obscured {
			return precheckResult{state: action.Obscured, point: point}, nil
		}
	}

	return precheckResult{state: action.Ready, point: point}, nil
}

// waitStable samples bounds at the configured interval until the configured
// number of consecutive samples agree within ±1 px, capped by the stability
// window.
func (e *Executor) waitStable(ctx context.Context, target *element.Element) (bool, error) {
	samples := e.cfg.Action.StabilitySamples
	interval := time.Duration(e.cfg.Action.StabilityIntervalMs) * time.Millisecond
	maxWait := time.Duration(e.cfg.Action.StabilityMaxWaitMs) * time.Millisecond

	deadline := time.Now().Add(maxWait)

	var (
		previous image.Rectangle
		agreed   int
	)

	for {
		info, err := target.FreshInfo(ctx)
		if err != nil {
			return false, err
		}

		if agreed > 0 && rectsWithin(info.Bounds, previous, boundsTolerance) {
			agreed++
		} else {
			agreed = 1
			previous = info.Bounds
		}

		if agreed >= samples {
			return true, nil
		}

		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return false, checkContext(ctx)
			}

			// The action deadline closing mid-sample is an unstable verdict,
			// not a bare timeout: the caller reports what the element did.
			return false, nil
		case <-time.After(interval):
		}
	}
}

// isObscured hit-tests the action point and walks the hit node's ancestry
// looking for the target.
func (e *Executor) isObscured(
	ctx context.Context,
	target *element.Element,
	point image.Point,
) (bool, error) {
	hit, err := e.platform.ElementAtPoint(ctx, point)
	if err != nil || hit == nil {
		return false, err
	}

	node := hit

	for range 32 {
		id, idErr := e.platform.NodeRuntimeID(node)
		if idErr != nil {
			return false, nil //nolint:nilerr // an unidentifiable hit node cannot prove obstruction
		}

		if id == target.RuntimeID() {
			return false, nil
		}

		parent, parentErr := e.platform.Parent(ctx, node)
		if parentErr != nil || parent == nil {
			break
		}

		node = parent
	}

	return true, nil
}

func actionPoint(bounds image.Rectangle, offset *image.Point) image.Point {
	if offset != nil {
		return bounds.Min.Add(*offset)
	}

	return image.Point{
		X: bounds.Min.X + bounds.Dx()/2,
		Y: bounds.Min.Y + bounds.Dy()/2,
	}
}

func pointIn(point image.Point, screens []image.Rectangle) bool {
	for _, screen := range screens {
		if point.In(screen) {
			return true
		}
	}

	return false
}

func rectsWithin(a, b image.Rectangle, tolerance int) bool {
	return absInt(a.Min.X-b.Min.X) <= tolerance &&
		absInt(a.Min.Y-b.Min.Y) <= tolerance &&
		absInt(a.Max.X-b.Max.X) <= tolerance &&
		absInt(a.Max.Y-b.Max.Y) <= tolerance
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

// stateError maps a non-ready actionability state to its error kind.
func stateError(state action.Actionability, target *element.Element) error {
	var err *derrors.Error

	switch state {
	case action.NotAttached:
		err = derrors.New(derrors.CodeElementDetached, "element no longer exists")
	case action.NotVisible:
		err = derrors.New(derrors.CodeElementNotVisible, "element has empty or off-screen bounds")
	case action.NotEnabled:
		err = derrors.New(derrors.CodeElementNotEnabled, "element is disabled")
	case action.NotInViewport:
		err = derrors.New(derrors.CodeElementNotVisible, "element could not be brought into the viewport")
	case action.Unstable:
		err = derrors.New(derrors.CodeElementNotStable, "element bounds kept moving past the stability window")
	case action.Obscured:
		err = derrors.New(derrors.CodeElementObscured, "another element covers the action point")
	case action.ScrollFailed:
		err = derrors.New(derrors.CodeScrollFailed, "element could not be scrolled")
	default:
		err = derrors.Newf(derrors.CodeInternal, "unhandled actionability state %q", state)
	}

	return err.WithRuntimeID(string(target.RuntimeID()))
}

// checkContext maps context termination into the taxonomy.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return derrors.New(derrors.CodeCanceled, "action canceled")
		}

		return derrors.New(derrors.CodeTimeout, "action deadline elapsed")
	default:
		return nil
	}
}
