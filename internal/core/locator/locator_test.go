package locator_test

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribhuwan-kumar/terminator/internal/config"
	"github.com/tribhuwan-kumar/terminator/internal/core/cache"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/platform"
	"github.com/tribhuwan-kumar/terminator/internal/core/locator"
	"go.uber.org/zap"
)

// calculatorTree builds a desktop with a calculator window, a text editor,
// and a second Seven button for index tests.
func calculatorTree() *platform.MockNode {
	return platform.Node("desktop", "Desktop", "", image.Rect(0, 0, 1920, 1080),
		platform.Node("calc", "Window", "Calculator", image.Rect(100, 100, 500, 600),
			platform.Node("display", "Edit", "Display", image.Rect(110, 120, 490, 160)),
			platform.Node("pad", "Pane", "", image.Rect(110, 170, 490, 590),
				platform.Node("btn7", "Button", "Seven", image.Rect(110, 170, 160, 220)),
				platform.Node("btn8", "Button", "Eight", image.Rect(170, 170, 220, 220)),
				platform.Node("btn7b", "Button", "Seven", image.Rect(110, 230, 160, 280)),
				platform.Node("btnoff", "Button", "Offscreen", image.Rect(-500, -500, -450, -450)),
			),
		),
		platform.Node("editor", "Window", "Notepad", image.Rect(600, 100, 1200, 700),
			platform.Node("edit", "Edit", "", image.Rect(610, 140, 1190, 690)),
		),
	)
}

func newEngine(t *testing.T, mock *platform.Mock) *locator.Engine {
	t.Helper()

	return locator.NewEngine(mock, nil, config.DefaultConfig(), zap.NewNop())
}

func TestFind_SingleAtom(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Edit",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	assert.Len(t, results, 2, "both edits match")
}

func TestFind_Chain(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Window|name:Calculator >> role:Button|name:Seven",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		name, nameErr := result.Name(context.Background())
		require.NoError(t, nameErr)
		assert.Equal(t, "Seven", name)
	}
}

func TestFind_ChainScopesToSubtree(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	// The editor window has no buttons; the chain must not leak into the
	// calculator subtree.
	_, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Window|name:Notepad >> role:Button",
		Timeout:  300 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeElementNotFound), "got %v", err)
}

func TestFind_IndexFirstAndLast(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)
	ctx := context.Background()

	first, err := engine.Find(ctx, locator.Query{
		Selector: "role:Window|name:Calculator >> role:Button|name:Seven nth:0",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "btn7", string(first[0].RuntimeID()))

	last, err := engine.Find(ctx, locator.Query{
		Selector: "role:Window|name:Calculator >> role:Button|name:Seven nth-1",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "btn7b", string(last[0].RuntimeID()), "nth-1 selects the last match")
}

func TestFind_IndexAppliesAfterBooleanFilters(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Window|name:Calculator >> role:Button|name:Seven nth:0 && visible:true",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "btn7", string(results[0].RuntimeID()))
}

func TestFind_IndexStability(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)
	ctx := context.Background()

	all, err := engine.Find(ctx, locator.Query{Selector: "role:Button", Timeout: time.Second})
	require.NoError(t, err)
	require.NotEmpty(t, all)

	indexed, err := engine.Find(ctx, locator.Query{Selector: "role:Button nth:0", Timeout: time.Second})
	require.NoError(t, err)
	require.Len(t, indexed, 1)
	assert.True(t, indexed[0].Equal(all[0]), "nth:0 returns the first of the full match set")
}

func TestFind_VisibleFilter(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Button && visible:true",
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	for _, result := range results {
		id := string(result.RuntimeID())
		assert.NotEqual(t, "btnoff", id, "offscreen button filtered out")
	}

	assert.Len(t, results, 3)
}

func TestFind_BooleanOr(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector: "name:Seven || name:Eight",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestFind_ParentStep(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Button|name:Eight >> ..",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pad", string(results[0].RuntimeID()))
}

func TestFind_NativeID(t *testing.T) {
	tree := calculatorTree()
	mock := platform.NewMock(tree)
	mock.FindNode("btn8").Info.NativeID = "num8Button"

	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector: "nativeid:num8Button",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "btn8", string(results[0].RuntimeID()))
}

func TestFind_Contains(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Window|name:contains:calc",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "calc", string(results[0].RuntimeID()))
}

func TestFind_InvalidSelectorSurfacesImmediately(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	started := time.Now()

	_, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:A && name:B || name:C",
		Timeout:  5 * time.Second,
	})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeInvalidSelector))
	assert.Less(t, time.Since(started), time.Second, "parse errors do not wait for the deadline")
}

func TestFind_NotFoundCarriesStepIndex(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	_, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Window|name:Calculator >> role:Hyperlink",
		Timeout:  200 * time.Millisecond,
	})
	require.Error(t, err)

	var domainErr *derrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 1, domainErr.Context()["step"], "failure attributed to the second step")
}

// Depth override: a named Window query from the desktop root walks shallow
// and cannot reach a window buried deeper than the shallow cap, while a
// non-eligible query with the same nesting can.
func TestFind_ShallowDepthForNamedWindow(t *testing.T) {
	deep := platform.Node("desktop", "Desktop", "", image.Rect(0, 0, 1920, 1080),
		platform.Node("l1", "Group", "", image.Rect(0, 0, 1920, 1080),
			platform.Node("l2", "Group", "", image.Rect(0, 0, 1920, 1080),
				platform.Node("l3", "Group", "", image.Rect(0, 0, 1920, 1080),
					platform.Node("l4", "Group", "", image.Rect(0, 0, 1920, 1080),
						platform.Node("l5", "Group", "", image.Rect(0, 0, 1920, 1080),
							platform.Node("buried", "Window", "Calculator", image.Rect(0, 0, 800, 600)),
						),
					),
				),
			),
		),
	)

	mock := platform.NewMock(deep)
	engine := newEngine(t, mock)
	ctx := context.Background()

	// Named-window query: shallow search cannot reach depth 6.
	_, err := engine.Find(ctx, locator.Query{
		Selector: "role:Window|name:contains:Calc",
		Timeout:  200 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeElementNotFound))

	// Same window, queried without a name atom: full depth applies.
	results, err := engine.Find(ctx, locator.Query{
		Selector: "role:Window",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestFind_UserDepthCapsWalk(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	// Buttons live at depth 3 (window > pane > button); a depth-2 walk
	// cannot see them.
	_, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Button",
		Timeout:  200 * time.Millisecond,
		Depth:    2,
	})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeElementNotFound))
}

func TestFind_Alternatives(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector:     "role:Hyperlink|name:Nope",
		Alternatives: []string{"role:Button|name:Eight"},
		Timeout:      2 * time.Second,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "btn8", string(results[0].RuntimeID()))
}

func TestFind_Fallbacks(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	results, err := engine.Find(context.Background(), locator.Query{
		Selector:  "role:Hyperlink",
		Fallbacks: []string{"role:Slider", "role:Button|name:Eight"},
		Timeout:   1500 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "btn8", string(results[0].RuntimeID()))
}

func TestFind_FallbacksOnlyMaskNotFound(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	_, err := engine.Find(context.Background(), locator.Query{
		Selector:  "role:A && name:B || name:C",
		Fallbacks: []string{"role:Button"},
		Timeout:   time.Second,
	})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeInvalidSelector),
		"parse errors are not masked by fallbacks")
}

func TestFind_CacheInsertGate(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	elementCache := cache.New(10, time.Minute, zap.NewNop())

	cfg := config.DefaultConfig()
	cfg.Cache.MinSearchMsToCache = 0 // every successful search caches

	engine := locator.NewEngine(mock, elementCache, cfg, zap.NewNop())
	ctx := context.Background()

	_, err := engine.Find(ctx, locator.Query{Selector: "role:Button|name:Eight", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 1, elementCache.Size(), "slow search result cached")

	// Second search hits the cache.
	results, err := engine.Find(ctx, locator.Query{Selector: "role:Button|name:Eight", Timeout: time.Second})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Positive(t, elementCache.Hits())
}

func TestFind_FastSearchNotCached(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	elementCache := cache.New(10, time.Minute, zap.NewNop())

	engine := locator.NewEngine(mock, elementCache, config.DefaultConfig(), zap.NewNop())

	_, err := engine.Find(context.Background(), locator.Query{
		Selector: "role:Button|name:Eight",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, elementCache.Size(),
		"a search faster than the gate threshold is not cached")
}

func TestFind_Cancellation(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Find(ctx, locator.Query{Selector: "role:Hyperlink", Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeCanceled), "got %v", err)
}

func TestFind_ChainMonotonicity(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)
	ctx := context.Background()

	chained, err := engine.Find(ctx, locator.Query{
		Selector: "role:Window|name:Calculator >> role:Button|name:Eight",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.NotEmpty(t, chained)

	prefix, err := engine.Find(ctx, locator.Query{
		Selector: "role:Window|name:Calculator",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.NotEmpty(t, prefix, "the chain prefix matches whenever the chain does")
}

func TestValidate(t *testing.T) {
	mock := platform.NewMock(calculatorTree())
	engine := newEngine(t, mock)
	ctx := context.Background()

	exists, err := engine.Validate(ctx, locator.Query{Selector: "role:Button|name:Seven"})
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := engine.Validate(ctx, locator.Query{Selector: "role:Hyperlink"})
	require.NoError(t, err)
	assert.False(t, missing)
}
