package locator

import (
	"context"
	"errors"
	"time"

	"github.com/tribhuwan-kumar/terminator/internal/config"
	"github.com/tribhuwan-kumar/terminator/internal/core/cache"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/selector"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

const (
	// pollInitial is the first wait between evaluation rounds.
	pollInitial = 100 * time.Millisecond

	// pollMax caps the exponential poll schedule.
	pollMax = 500 * time.Millisecond
)

// Engine evaluates selectors against a platform's accessibility tree.
type Engine struct {
	platform ports.Platform
	cache    *cache.Cache // nil when caching is disabled
	cfg      *config.Config
	logger   *zap.Logger
}

// NewEngine creates a locator engine. elementCache may be nil to disable
// caching.
func NewEngine(
	platform ports.Platform,
	elementCache *cache.Cache,
	cfg *config.Config,
	logger *zap.Logger,
) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		platform: platform,
		cache:    elementCache,
		cfg:      cfg,
		logger:   logger,
	}
}

// Query describes one search.
type Query struct {
	// Selector is the primary selector text.
	Selector string

	// Alternatives race in parallel with the primary.
	Alternatives []string

	// Fallbacks run sequentially after the primary and alternatives exhaust
	// their budget.
	Fallbacks []string

	// Root limits the search to a subtree; nil means the desktop root.
	Root *element.Element

	// Timeout bounds the whole search including retries. Zero uses the
	// configured action default.
	Timeout time.Duration

	// Depth overrides the per-step descent depth when positive.
	Depth int
}

// Find returns all elements matching the query, polling until at least one
// match appears or the deadline passes.
func (e *Engine) Find(ctx context.Context, query Query) ([]*element.Element, error) {
	parsed, alternatives, err := e.parseQuery(query)
	if err != nil {
		return nil, err
	}

	// Fallbacks parse up front so malformed ones surface before any search.
	fallbacks := make([]*selector.Selector, 0, len(query.Fallbacks))

	for _, fallbackText := range query.Fallbacks {
		fallbackSel, parseErr := selector.Parse(fallbackText)
		if parseErr != nil {
			return nil, parseErr
		}

		fallbacks = append(fallbacks, fallbackSel)
	}

	deadline := e.timeoutFor(query)

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if cached := e.probeCache(ctx, query); cached != nil {
		return []*element.Element{cached}, nil
	}

	// The primary (with its alternatives) and each fallback get an equal
	// share of the deadline; the last phase runs to the overall deadline.
	share := deadline / time.Duration(1+len(fallbacks))

	started := time.Now()

	primaryCtx := ctx

	var cancelPrimary context.CancelFunc

	if len(fallbacks) > 0 {
		primaryCtx, cancelPrimary = context.WithTimeout(ctx, share)
	}

	results, err := e.findRace(primaryCtx, query, parsed, alternatives)

	if cancelPrimary != nil {
		cancelPrimary()
	}

	if err == nil {
		e.maybeCache(ctx, query, results, time.Since(started))

		return results, nil
	}

	if !derrors.IsRetryable(err) {
		return nil, err
	}

	// Fallbacks only mask ElementNotFound and Timeout.
	for index, fallbackSel := range fallbacks {
		fallbackCtx := ctx

		var cancelFallback context.CancelFunc

		if index < len(fallbacks)-1 {
			fallbackCtx, cancelFallback = context.WithTimeout(ctx, share)
		}

		results, fallbackErr := e.findLoop(fallbackCtx, query.Fallbacks[index], fallbackSel, query)

		if cancelFallback != nil {
			cancelFallback()
		}

		if fallbackErr == nil {
			return results, nil
		}

		if !derrors.IsRetryable(fallbackErr) {
			return nil, fallbackErr
		}
	}

	return nil, err
}

// First returns the first element matching the query.
func (e *Engine) First(ctx context.Context, query Query) (*element.Element, error) {
	results, err := e.Find(ctx, query)
	if err != nil {
		return nil, err
	}

	return results[0], nil
}

// Validate reports whether the selector currently matches at least one
// element, without retrying.
func (e *Engine) Validate(ctx context.Context, query Query) (bool, error) {
	parsed, err := selector.Parse(query.Selector)
	if err != nil {
		return false, err
	}

	results, _, evalErr := e.evaluate(ctx, parsed, query)
	if evalErr != nil {
		if derrors.IsCode(evalErr, derrors.CodeElementNotFound) {
			return false, nil
		}

		return false, evalErr
	}

	return len(results) > 0, nil
}

func (e *Engine) parseQuery(query Query) (*selector.Selector, []*selector.Selector, error) {
	parsed, err := selector.Parse(query.Selector)
	if err != nil {
		return nil, nil, err
	}

	alternatives := make([]*selector.Selector, 0, len(query.Alternatives))

	for _, alternativeText := range query.Alternatives {
		alternative, parseErr := selector.Parse(alternativeText)
		if parseErr != nil {
			return nil, nil, parseErr
		}

		alternatives = append(alternatives, alternative)
	}

	return parsed, alternatives, nil
}

func (e *Engine) timeoutFor(query Query) time.Duration {
	if query.Timeout > 0 {
		return query.Timeout
	}

	return time.Duration(e.cfg.Action.DefaultTimeoutMs) * time.Millisecond
}

// raceResult carries one racer's outcome.
type raceResult struct {
	index   int
	results []*element.Element
	err     error
}

// findRace runs the primary selector and its alternatives concurrently. The
// first non-empty result wins; when several have completed by the time the
// first is received, the lowest index wins (the primary before any
// alternative). Losers are canceled.
func (e *Engine) findRace(
	ctx context.Context,
	query Query,
	primary *selector.Selector,
	alternatives []*selector.Selector,
) ([]*element.Element, error) {
	if len(alternatives) == 0 {
		return e.findLoop(ctx, query.Selector, primary, query)
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	racers := append([]*selector.Selector{primary}, alternatives...)
	texts := append([]string{query.Selector}, query.Alternatives...)
	outcomes := make(chan raceResult, len(racers))

	for index, racer := range racers {
		go func(index int, text string, sel *selector.Selector) {
			results, err := e.findLoop(raceCtx, text, sel, query)
			outcomes <- raceResult{index: index, results: results, err: err}
		}(index, texts[index], racer)
	}

	var (
		winner   *raceResult
		firstErr error
		received int
	)

	for received < len(racers) {
		outcome := <-outcomes
		received++

		if outcome.err != nil {
			if firstErr == nil || outcome.index == 0 {
				firstErr = outcome.err
			}

			continue
		}

		winner = &outcome

		// Drain results that completed in the same tick; the primary wins
		// over any alternative that finished alongside it.
	drain:
		for winner.index != 0 && received < len(racers) {
			select {
			case extra := <-outcomes:
				received++

				if extra.err == nil && extra.index < winner.index {
					winner = &extra
				}
			default:
				break drain
			}
		}

		break
	}

	if winner != nil {
		return winner.results, nil
	}

	return nil, firstErr
}

// findLoop evaluates the selector repeatedly on the poll schedule until a
// match appears or the deadline passes.
func (e *Engine) findLoop(
	ctx context.Context,
	selectorText string,
	parsed *selector.Selector,
	query Query,
) ([]*element.Element, error) {
	var lastErr error

	wait := pollInitial

	for {
		results, failedStep, err := e.evaluate(ctx, parsed, query)

		switch {
		case err == nil && len(results) > 0:
			return results, nil
		case err != nil && !derrors.IsRetryable(err):
			return nil, err
		case err != nil:
			lastErr = err
		default:
			lastErr = derrors.New(derrors.CodeElementNotFound, "no element matched the selector").
				WithSelector(selectorText).
				WithStep(failedStep)
		}

		select {
		case <-ctx.Done():
			return nil, e.ctxError(ctx, selectorText, lastErr)
		case <-time.After(wait):
		}

		wait *= 2
		if wait > pollMax {
			wait = pollMax
		}
	}
}

// ctxError maps a context termination to the taxonomy, preferring the last
// concrete evaluation failure over a bare timeout.
func (e *Engine) ctxError(ctx context.Context, selectorText string, lastErr error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return derrors.New(derrors.CodeCanceled, "search canceled").WithSelector(selectorText)
	}

	if lastErr != nil {
		return lastErr
	}

	return derrors.New(derrors.CodeTimeout, "search deadline elapsed").WithSelector(selectorText)
}

// probeCache looks the query up in the element cache.
func (e *Engine) probeCache(ctx context.Context, query Query) *element.Element {
	if e.cache == nil {
		return nil
	}

	return e.cache.Get(ctx, cache.Fingerprint(query.Selector, e.rootIdentity(query.Root)))
}

// maybeCache inserts the first result when the uncached search was slow
// enough to be worth remembering.
func (e *Engine) maybeCache(
	ctx context.Context,
	query Query,
	results []*element.Element,
	elapsed time.Duration,
) {
	if e.cache == nil || len(results) == 0 {
		return
	}

	threshold := time.Duration(e.cfg.Cache.MinSearchMsToCache) * time.Millisecond
	if elapsed < threshold {
		return
	}

	appName, windowTitle := e.scopeOf(ctx, results[0])

	e.cache.Insert(
		cache.Fingerprint(query.Selector, e.rootIdentity(query.Root)),
		results[0],
		appName,
		windowTitle,
	)
}

func (e *Engine) rootIdentity(root *element.Element) string {
	if root == nil {
		return "desktop"
	}

	return string(root.RuntimeID())
}

// scopeOf resolves the toplevel ancestor of an element to name the owning
// application and window for event-driven invalidation.
func (e *Engine) scopeOf(ctx context.Context, elem *element.Element) (string, string) {
	info, err := elem.Info(ctx)
	if err != nil {
		return "", ""
	}

	appName := ""
	windowTitle := info.WindowTitle

	current := elem

	// Walk up to the child-of-root toplevel; its name is the application's.
	for range 64 {
		parent, parentErr := current.Parent(ctx)
		if parentErr != nil || parent == nil {
			break
		}

		grand, grandErr := parent.Parent(ctx)
		if grandErr != nil {
			break
		}

		if grand == nil {
			currentInfo, infoErr := current.Info(ctx)
			if infoErr == nil {
				appName = currentInfo.Name

				if windowTitle == "" {
					windowTitle = currentInfo.Name
				}
			}

			break
		}

		current = parent
	}

	return appName, windowTitle
}
