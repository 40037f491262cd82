package locator

import (
	"context"
	"errors"
	"image"
	"strconv"
	"strings"

	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/selector"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
)

// anchorData is a resolved positional anchor: the element and its property
// snapshot at resolution time.
type anchorData struct {
	elem *element.Element
	info *ports.NodeInfo
}

// evalState carries per-evaluation shared data: monitor geometry and resolved
// positional anchors.
type evalState struct {
	screens []image.Rectangle
	anchors map[*selector.Positional]*anchorData
}

// evaluate runs one full pass of the chain against the current tree snapshot.
// It returns the surviving candidates, or the index of the step that emptied
// the set.
func (e *Engine) evaluate(
	ctx context.Context,
	parsed *selector.Selector,
	query Query,
) ([]*element.Element, int, error) {
	root := query.Root
	rootIsDesktop := root == nil

	if root == nil {
		rootNode, err := e.platform.Root(ctx)
		if err != nil {
			return nil, 0, err
		}

		desktopRoot, rootErr := element.New(e.platform, rootNode)
		if rootErr != nil {
			return nil, 0, rootErr
		}

		root = desktopRoot
	}

	screens, err := e.platform.Screens(ctx)
	if err != nil {
		return nil, 0, err
	}

	state := &evalState{
		screens: screens,
		anchors: make(map[*selector.Positional]*anchorData),
	}

	candidates := []*element.Element{root}
	considered := 0

	for stepIndex := range parsed.Steps {
		if ctxErr := checkContext(ctx); ctxErr != nil {
			return nil, stepIndex, ctxErr
		}

		step := &parsed.Steps[stepIndex]

		var next []*element.Element

		if step.Parent {
			next, err = e.parentStep(ctx, candidates)
		} else {
			depth := e.resolveDepth(query.Depth, step, stepIndex == 0, rootIsDesktop)
			next, considered, err = e.filterStep(ctx, candidates, step, depth, state, considered)
		}

		if err != nil {
			return nil, stepIndex, err
		}

		next = applyIndex(next, step.Index)

		if len(next) == 0 {
			return nil, stepIndex, derrors.New(
				derrors.CodeElementNotFound,
				"no element matched the selector",
			).WithStep(stepIndex).WithContext("candidates_considered", considered)
		}

		candidates = next
	}

	return candidates, len(parsed.Steps) - 1, nil
}

// resolveDepth picks the per-step descent depth. The two overrides from the
// tree-walking policy are: nativeid steps walk deep to reach browser content,
// and named toplevel-container steps walk shallow when they are the first
// step of the chain or the query is rooted at the desktop.
func (e *Engine) resolveDepth(
	userDepth int,
	step *selector.Step,
	isFirstStep bool,
	rootIsDesktop bool,
) int {
	if stepUsesNativeID(step) {
		return e.cfg.Locator.NativeIDDepth
	}

	if step.ShallowEligible() && (isFirstStep || rootIsDesktop) {
		return e.cfg.Locator.ShallowDepthForNamedWindow
	}

	if userDepth > 0 {
		return userDepth
	}

	return e.cfg.Locator.DefaultDepth
}

func stepUsesNativeID(step *selector.Step) bool {
	probe := &selector.Selector{Steps: []selector.Step{{Expr: step.Expr}}}

	return probe.UsesNativeID()
}

// parentStep replaces every candidate with its parent, deduplicated.
func (e *Engine) parentStep(
	ctx context.Context,
	candidates []*element.Element,
) ([]*element.Element, error) {
	seen := make(map[ports.RuntimeID]bool, len(candidates))
	parents := make([]*element.Element, 0, len(candidates))

	for _, candidate := range candidates {
		parent, err := candidate.Parent(ctx)
		if err != nil || parent == nil {
			continue
		}

		if seen[parent.RuntimeID()] {
			continue
		}

		seen[parent.RuntimeID()] = true
		parents = append(parents, parent)
	}

	return parents, nil
}

// filterStep expands each candidate's subtree up to depth and keeps the
// elements the step expression matches, in document order, deduplicated.
func (e *Engine) filterStep(
	ctx context.Context,
	candidates []*element.Element,
	step *selector.Step,
	depth int,
	state *evalState,
	considered int,
) ([]*element.Element, int, error) {
	seen := make(map[ports.RuntimeID]bool)

	var matches []*element.Element

	for _, candidate := range candidates {
		found, walked, err := e.walkMatch(ctx, candidate, step.Expr, depth, state)
		considered += walked

		if err != nil {
			return nil, considered, err
		}

		for _, match := range found {
			if seen[match.RuntimeID()] {
				continue
			}

			seen[match.RuntimeID()] = true
			matches = append(matches, match)
		}
	}

	return matches, considered, nil
}

// walkMatch walks root's descendants breadth-first up to maxDepth, returning
// those the expression matches. The root itself is not a candidate.
func (e *Engine) walkMatch(
	ctx context.Context,
	root *element.Element,
	expr selector.Node,
	maxDepth int,
	state *evalState,
) ([]*element.Element, int, error) {
	type queued struct {
		elem  *element.Element
		depth int
	}

	queue := []queued{{elem: root, depth: 0}}
	considered := 0

	var matches []*element.Element

	for len(queue) > 0 {
		if ctxErr := checkContext(ctx); ctxErr != nil {
			return nil, considered, ctxErr
		}

		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		children, err := current.elem.Children(ctx)
		if err != nil {
			// A subtree vanishing mid-walk only empties that subtree.
			if derrors.IsCode(err, derrors.CodeElementDetached) {
				continue
			}

			return nil, considered, err
		}

		for _, child := range children {
			considered++

			matched, matchErr := e.match(ctx, child, expr, root, state)
			if matchErr != nil {
				if derrors.IsCode(matchErr, derrors.CodeElementDetached) {
					continue
				}

				return nil, considered, matchErr
			}

			if matched {
				matches = append(matches, child)
			}

			queue = append(queue, queued{elem: child, depth: current.depth + 1})
		}
	}

	return matches, considered, nil
}

// match evaluates a step expression against one element. A nil expression
// matches everything.
func (e *Engine) match(
	ctx context.Context,
	elem *element.Element,
	expr selector.Node,
	stepRoot *element.Element,
	state *evalState,
) (bool, error) {
	if expr == nil {
		return true, nil
	}

	switch node := expr.(type) {
	case *selector.Atom:
		return e.matchAtom(ctx, elem, node, state)
	case *selector.Compound:
		for _, atom := range node.Atoms {
			ok, err := e.matchAtom(ctx, elem, atom, state)
			if err != nil || !ok {
				return false, err
			}
		}

		return true, nil
	case *selector.And:
		ok, err := e.match(ctx, elem, node.LHS, stepRoot, state)
		if err != nil || !ok {
			return false, err
		}

		return e.match(ctx, elem, node.RHS, stepRoot, state)
	case *selector.Or:
		ok, err := e.match(ctx, elem, node.LHS, stepRoot, state)
		if err != nil {
			return false, err
		}

		if ok {
			return true, nil
		}

		return e.match(ctx, elem, node.RHS, stepRoot, state)
	case *selector.Positional:
		return e.matchPositional(ctx, elem, node, stepRoot, state)
	default:
		return false, derrors.Newf(derrors.CodeInternal, "unhandled selector node %T", expr)
	}
}

// matchAtom evaluates one key:value predicate.
func (e *Engine) matchAtom(
	ctx context.Context,
	elem *element.Element,
	atom *selector.Atom,
	state *evalState,
) (bool, error) {
	info, err := elem.Info(ctx)
	if err != nil {
		return false, err
	}

	switch atom.Key {
	case selector.KeyRole:
		return strings.EqualFold(info.Role, atom.Value), nil
	case selector.KeyName:
		return matchText(info.Name, atom.Value, atom.Contains), nil
	case selector.KeyID:
		return matchText(string(elem.RuntimeID()), atom.Value, atom.Contains), nil
	case selector.KeyNativeID:
		return matchText(info.NativeID, atom.Value, atom.Contains), nil
	case selector.KeyClassName:
		return matchText(info.ClassName, atom.Value, atom.Contains), nil
	case selector.KeyText:
		if matchText(info.Name, atom.Value, atom.Contains) {
			return true, nil
		}

		value, valueErr := e.platform.Value(ctx, elem.Node())
		if valueErr != nil {
			return false, nil //nolint:nilerr // elements without a value pattern simply don't match
		}

		return matchText(value, atom.Value, atom.Contains), nil
	case selector.KeyPos:
		point, parseErr := parsePoint(atom.Value)
		if parseErr != nil {
			return false, parseErr
		}

		return point.In(info.Bounds), nil
	case selector.KeyVisible:
		want := strings.EqualFold(atom.Value, "true")

		return element.VisibleIn(info.Bounds, state.screens) == want, nil
	default:
		return false, derrors.Newf(derrors.CodeInternal, "unhandled atom key %q", atom.Key)
	}
}

// matchText compares case-insensitively, as substring when contains is set.
func matchText(have, want string, contains bool) bool {
	if contains {
		return strings.Contains(strings.ToLower(have), strings.ToLower(want))
	}

	return strings.EqualFold(have, want)
}

func parsePoint(value string) (image.Point, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return image.Point{}, derrors.Newf(derrors.CodeInvalidSelector, "pos expects 'x,y', got %q", value)
	}

	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))

	if errX != nil || errY != nil {
		return image.Point{}, derrors.Newf(derrors.CodeInvalidSelector, "pos expects integers, got %q", value)
	}

	return image.Point{X: x, Y: y}, nil
}

// applyIndex reduces a match set to the indexed element. nth-1 is the last.
func applyIndex(matches []*element.Element, index *selector.Index) []*element.Element {
	if index == nil {
		return matches
	}

	position := index.Nth
	if index.FromEnd {
		position = len(matches) - index.Nth
	}

	if position < 0 || position >= len(matches) {
		return nil
	}

	return []*element.Element{matches[position]}
}

// checkContext maps context termination into the taxonomy.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return derrors.New(derrors.CodeCanceled, "operation canceled")
		}

		return derrors.New(derrors.CodeTimeout, "operation deadline elapsed")
	default:
		return nil
	}
}
