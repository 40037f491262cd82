package locator

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/selector"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
)

// nearBaseTolerance is the minimum pixel distance for the near relation.
const nearBaseTolerance = 64

// matchPositional resolves the anchor and applies the geometric predicate.
// Anchors are resolved once per evaluation pass and shared across candidates.
func (e *Engine) matchPositional(
	ctx context.Context,
	elem *element.Element,
	node *selector.Positional,
	stepRoot *element.Element,
	state *evalState,
) (bool, error) {
	anchor, ok := state.anchors[node]
	if !ok {
		resolved, err := e.resolveAnchor(ctx, node, stepRoot, state)
		if err != nil {
			return false, err
		}

		state.anchors[node] = resolved
		anchor = resolved
	}

	info, err := elem.Info(ctx)
	if err != nil {
		return false, err
	}

	// The anchor itself is never its own positional match.
	if elem.Equal(anchor.elem) {
		return false, nil
	}

	bounds := anchor.info.Bounds

	switch node.Relation {
	case selector.RelRightOf:
		return info.Bounds.Min.X >= bounds.Max.X && verticalOverlap(info.Bounds, bounds), nil
	case selector.RelLeftOf:
		return info.Bounds.Max.X <= bounds.Min.X && verticalOverlap(info.Bounds, bounds), nil
	case selector.RelAbove:
		return info.Bounds.Max.Y <= bounds.Min.Y && horizontalOverlap(info.Bounds, bounds), nil
	case selector.RelBelow:
		return info.Bounds.Min.Y >= bounds.Max.Y && horizontalOverlap(info.Bounds, bounds), nil
	case selector.RelNear:
		tolerance, tolErr := e.nearTolerance(ctx, anchor)
		if tolErr != nil {
			tolerance = nearBaseTolerance
		}

		return centroidDistance(info.Bounds, bounds) <= tolerance, nil
	default:
		return false, derrors.Newf(derrors.CodeInternal, "unhandled relation %q", node.Relation)
	}
}

// resolveAnchor finds the single anchor element for a positional relation
// within the step's search root.
func (e *Engine) resolveAnchor(
	ctx context.Context,
	node *selector.Positional,
	stepRoot *element.Element,
	state *evalState,
) (*anchorData, error) {
	candidates := []*element.Element{stepRoot}

	for stepIndex := range node.Inner.Steps {
		step := &node.Inner.Steps[stepIndex]

		var (
			next []*element.Element
			err  error
		)

		if step.Parent {
			next, err = e.parentStep(ctx, candidates)
		} else {
			next, _, err = e.filterStep(ctx, candidates, step, e.cfg.Locator.DefaultDepth, state, 0)
		}

		if err != nil {
			return nil, err
		}

		next = applyIndex(next, step.Index)

		if len(next) == 0 {
			return nil, derrors.Newf(
				derrors.CodeElementNotFound,
				"positional anchor %q matched nothing",
				node.Inner.String(),
			)
		}

		candidates = next
	}

	// The first match anchors the relation.
	info, err := candidates[0].Info(ctx)
	if err != nil {
		return nil, err
	}

	return &anchorData{elem: candidates[0], info: info}, nil
}

// nearTolerance is max(64 px, 2× the median spacing between the anchor's
// adjacent siblings).
func (e *Engine) nearTolerance(ctx context.Context, anchor *anchorData) (float64, error) {
	parent, err := anchor.elem.Parent(ctx)
	if err != nil || parent == nil {
		return nearBaseTolerance, nil //nolint:nilerr // missing parent just means no sibling data
	}

	siblings, err := parent.Children(ctx)
	if err != nil || len(siblings) < 2 {
		return nearBaseTolerance, nil //nolint:nilerr // too few siblings to estimate spacing
	}

	var spacings []float64

	var previous *image.Rectangle

	for _, sibling := range siblings {
		info, infoErr := sibling.Info(ctx)
		if infoErr != nil {
			continue
		}

		bounds := info.Bounds
		if previous != nil {
			spacings = append(spacings, centroidDistance(*previous, bounds))
		}

		previous = &bounds
	}

	if len(spacings) == 0 {
		return nearBaseTolerance, nil
	}

	sort.Float64s(spacings)
	median := spacings[len(spacings)/2]

	return math.Max(nearBaseTolerance, 2*median), nil
}

func verticalOverlap(a, b image.Rectangle) bool {
	return a.Min.Y < b.Max.Y && b.Min.Y < a.Max.Y
}

func horizontalOverlap(a, b image.Rectangle) bool {
	return a.Min.X < b.Max.X && b.Min.X < a.Max.X
}

func centroidDistance(a, b image.Rectangle) float64 {
	ax := float64(a.Min.X) + float64(a.Dx())/2
	ay := float64(a.Min.Y) + float64(a.Dy())/2
	bx := float64(b.Min.X) + float64(b.Dx())/2
	by := float64(b.Min.Y) + float64(b.Dy())/2

	return math.Hypot(ax-bx, ay-by)
}
