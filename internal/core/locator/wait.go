package locator

import (
	"context"
	"time"

	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/selector"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
)

// Condition names a waitable element state.
type Condition string

// Wait conditions.
const (
	CondExists  Condition = "exists"
	CondVisible Condition = "visible"
	CondEnabled Condition = "enabled"
	CondFocused Condition = "focused"
	CondGone    Condition = "gone"
)

// WaitFor polls the selector on a bounded schedule until the condition holds
// or the deadline passes. For CondGone the returned element is nil on
// success; for every other condition it is the first satisfying match.
func (e *Engine) WaitFor(
	ctx context.Context,
	query Query,
	condition Condition,
) (*element.Element, error) {
	parsed, err := selector.Parse(query.Selector)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeoutFor(query))
	defer cancel()

	wait := pollInitial

	for {
		satisfied, match, evalErr := e.checkCondition(ctx, parsed, query, condition)
		if evalErr != nil && !derrors.IsRetryable(evalErr) {
			return nil, evalErr
		}

		if satisfied {
			return match, nil
		}

		select {
		case <-ctx.Done():
			if checkErr := checkContext(ctx); checkErr != nil {
				if derrors.IsCode(checkErr, derrors.CodeCanceled) {
					return nil, checkErr
				}
			}

			return nil, derrors.Newf(
				derrors.CodeTimeout,
				"condition %q not reached before the deadline",
				condition,
			).WithSelector(query.Selector)
		case <-time.After(wait):
		}

		wait *= 2
		if wait > pollMax {
			wait = pollMax
		}
	}
}

// checkCondition runs one evaluation pass and tests the condition.
func (e *Engine) checkCondition(
	ctx context.Context,
	parsed *selector.Selector,
	query Query,
	condition Condition,
) (bool, *element.Element, error) {
	results, _, err := e.evaluate(ctx, parsed, query)

	notFound := err != nil && derrors.IsCode(err, derrors.CodeElementNotFound)

	if condition == CondGone {
		// Only a completed evaluation may prove absence; an interrupted
		// walk proves nothing.
		if err != nil && !notFound {
			return false, nil, err
		}

		return notFound || len(results) == 0, nil, nil
	}

	if err != nil {
		return false, nil, err
	}

	if len(results) == 0 {
		return false, nil, nil
	}

	match := results[0]

	switch condition {
	case CondExists:
		return true, match, nil
	case CondVisible:
		visible, visErr := match.Visible(ctx)
		if visErr != nil {
			return false, nil, visErr
		}

		return visible, match, nil
	case CondEnabled:
		enabled, enErr := match.Enabled(ctx)
		if enErr != nil {
			return false, nil, enErr
		}

		return enabled, match, nil
	case CondFocused:
		info, infoErr := match.FreshInfo(ctx)
		if infoErr != nil {
			return false, nil, infoErr
		}

		return info.Focused, match, nil
	default:
		return false, nil, derrors.Newf(derrors.CodeInvalidInput, "unknown wait condition %q", condition)
	}
}
