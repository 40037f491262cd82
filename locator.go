package terminator

import (
	"context"
	"time"

	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	"github.com/tribhuwan-kumar/terminator/internal/core/locator"
)

// Condition names a waitable element state for Locator.Wait.
type Condition = locator.Condition

// Wait conditions.
const (
	Exists  = locator.CondExists
	Visible = locator.CondVisible
	Enabled = locator.CondEnabled
	Focused = locator.CondFocused
	Gone    = locator.CondGone
)

// Locator is a lazily-evaluated element query. Locators are immutable; every
// With* call returns a derived locator.
type Locator struct {
	desktop      *Desktop
	selector     string
	alternatives []string
	fallbacks    []string
	root         *element.Element
	timeout      time.Duration
	depth        int
}

// Locator builds a query for the given selector, rooted at the desktop.
func (d *Desktop) Locator(selector string) *Locator {
	return &Locator{desktop: d, selector: selector}
}

// Within re-roots the query at an element's subtree.
func (l *Locator) Within(root *Element) *Locator {
	derived := *l
	derived.root = root.inner

	return &derived
}

// WithTimeout bounds the whole search including retries.
func (l *Locator) WithTimeout(timeout time.Duration) *Locator {
	derived := *l
	derived.timeout = timeout

	return &derived
}

// WithDepth overrides the per-step descent depth.
func (l *Locator) WithDepth(depth int) *Locator {
	derived := *l
	derived.depth = depth

	return &derived
}

// WithAlternatives adds selectors that race in parallel with the primary;
// the first non-empty result wins.
func (l *Locator) WithAlternatives(selectors ...string) *Locator {
	derived := *l
	derived.alternatives = append(append([]string{}, l.alternatives...), selectors...)

	return &derived
}

// WithFallbacks adds selectors tried sequentially after the primary and its
// alternatives exhaust their budget.
func (l *Locator) WithFallbacks(selectors ...string) *Locator {
	derived := *l
	derived.fallbacks = append(append([]string{}, l.fallbacks...), selectors...)

	return &derived
}

func (l *Locator) query() locator.Query {
	return locator.Query{
		Selector:     l.selector,
		Alternatives: l.alternatives,
		Fallbacks:    l.fallbacks,
		Root:         l.root,
		Timeout:      l.timeout,
		Depth:        l.depth,
	}
}

// First returns the first matching element.
func (l *Locator) First(ctx context.Context) (*Element, error) {
	inner, err := l.desktop.engine.First(ctx, l.query())
	if err != nil {
		return nil, err
	}

	return &Element{desktop: l.desktop, inner: inner}, nil
}

// All returns every matching element.
func (l *Locator) All(ctx context.Context) ([]*Element, error) {
	inners, err := l.desktop.engine.Find(ctx, l.query())
	if err != nil {
		return nil, err
	}

	elements := make([]*Element, 0, len(inners))

	for _, inner := range inners {
		elements = append(elements, &Element{desktop: l.desktop, inner: inner})
	}

	return elements, nil
}

// Wait polls until the condition holds or the timeout elapses. For Gone the
// returned element is nil on success.
func (l *Locator) Wait(ctx context.Context, condition Condition) (*Element, error) {
	inner, err := l.desktop.engine.WaitFor(ctx, l.query(), condition)
	if err != nil {
		return nil, err
	}

	if inner == nil {
		return nil, nil
	}

	return &Element{desktop: l.desktop, inner: inner}, nil
}

// Validate reports whether the selector currently matches anything, without
// retrying.
func (l *Locator) Validate(ctx context.Context) (bool, error) {
	return l.desktop.engine.Validate(ctx, l.query())
}
