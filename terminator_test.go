package terminator_test

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	terminator "github.com/tribhuwan-kumar/terminator"
	"github.com/tribhuwan-kumar/terminator/internal/config"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/platform"
	"github.com/tribhuwan-kumar/terminator/internal/core/monitor"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
)

// desktopTree models a calculator and an editor the way the OS exposes them.
func desktopTree() *platform.MockNode {
	seven := platform.Node("btn7", "Button", "Seven", image.Rect(110, 170, 160, 220))
	seven.HasInvoke = true

	display := platform.Node("display", "Edit", "Display", image.Rect(110, 120, 490, 160))
	editor := platform.Node("edit", "Edit", "", image.Rect(610, 140, 1190, 690))

	return platform.Node("desktop", "Desktop", "", image.Rect(0, 0, 1920, 1080),
		platform.Node("calc", "Window", "Calculator", image.Rect(100, 100, 500, 600),
			display,
			seven,
		),
		platform.Node("notepad", "Window", "Notepad", image.Rect(600, 100, 1200, 700),
			editor,
		),
	)
}

func newDesktop(t *testing.T, mock *platform.Mock, mutate ...func(*config.Config)) *terminator.Desktop {
	t.Helper()

	cfg := config.DefaultConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	desktop, err := terminator.New(
		terminator.WithPlatform(mock),
		terminator.WithConfig(cfg),
	)
	require.NoError(t, err)
	t.Cleanup(desktop.Close)

	return desktop
}

func TestCalculatorClickScenario(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock)
	ctx := context.Background()

	elem, err := desktop.Locator("role:Window|name:Calculator >> role:Button|name:Seven").
		WithTimeout(time.Second).
		First(ctx)
	require.NoError(t, err)

	require.NoError(t, elem.Invoke(ctx))
	assert.Equal(t, 1, mock.FindNode("btn7").Invoked, "the invoke pattern fired")
}

func TestTypeTextVerifyScenario(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock)
	ctx := context.Background()

	// The mock applies no keystrokes; preload the value a real editor would
	// hold afterwards so verification reads it back.
	mock.FindNode("edit").Value = "Hello World!"

	elem, err := desktop.Locator("role:Window|name:Notepad >> role:Edit").
		WithTimeout(time.Second).
		First(ctx)
	require.NoError(t, err)

	require.NoError(t, elem.AppendText(ctx, "Hello World!", terminator.VerifyAction()))
	assert.Equal(t, []string{"Hello World!"}, mock.Typed)
}

func TestLocatorAllAndWithin(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock)
	ctx := context.Background()

	window, err := desktop.Locator("role:Window|name:Calculator").WithTimeout(time.Second).First(ctx)
	require.NoError(t, err)

	edits, err := desktop.Locator("role:Edit").Within(window).WithTimeout(time.Second).All(ctx)
	require.NoError(t, err)
	require.Len(t, edits, 1, "the search stays inside the calculator subtree")
	assert.Equal(t, "display", edits[0].RuntimeID())
}

func TestCacheInvalidationOnApplicationSwitch(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock, func(cfg *config.Config) {
		cfg.Cache.MinSearchMsToCache = 0
	})
	ctx := context.Background()

	selector := "role:Window|name:Calculator >> role:Button|name:Seven"

	_, err := desktop.Locator(selector).WithTimeout(time.Second).First(ctx)
	require.NoError(t, err)

	// The entry is scoped to the Calculator app. Establish it as current,
	// then switch away: the monitor's invalidation handler must purge it.
	mock.InjectEvent(ports.Event{Kind: ports.EventForegroundChanged, AppName: "Calculator"})
	mock.InjectEvent(ports.Event{Kind: ports.EventForegroundChanged, AppName: "Notepad"})

	// A detached node would surface a stale cache entry; the purge means the
	// next search walks the live tree and still succeeds.
	_, err = desktop.Locator(selector).WithTimeout(time.Second).First(ctx)
	require.NoError(t, err)
}

func TestOnEventDeliversSignals(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock)

	var signals []monitor.Signal

	require.True(t, desktop.OnEvent(func(signal monitor.Signal) {
		signals = append(signals, signal)
	}))

	mock.InjectEvent(ports.Event{Kind: ports.EventForegroundChanged, AppName: "Calculator"})

	require.Len(t, signals, 1)
	assert.IsType(t, monitor.ApplicationSwitch{}, signals[0])
}

func TestListApplications(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	mock.Apps = []ports.AppInfo{
		{Name: "Calculator", ProcessID: 100, WindowTitle: "Calculator", Window: mock.FindNode("calc")},
		{Name: "Notepad", ProcessID: 200, WindowTitle: "Untitled", Window: mock.FindNode("notepad")},
	}

	desktop := newDesktop(t, mock)

	apps, err := desktop.ListApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "Calculator", apps[0].Name)
	assert.Equal(t, 200, apps[1].ProcessID)
}

func TestActivateApplication(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	mock.Apps = []ports.AppInfo{
		{Name: "Notepad", ProcessID: 200, WindowTitle: "Untitled", Window: mock.FindNode("notepad")},
	}

	desktop := newDesktop(t, mock)

	require.NoError(t, desktop.ActivateApplication(context.Background(), "notepad"))
	assert.Equal(t, []string{"notepad"}, mock.Activated)
}

func TestDesktopScreenshot(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock)

	data, err := desktop.Screenshot(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestFocusedWindowTree(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock)

	tree, err := desktop.FocusedWindowTree(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "Window", tree.Role)
	assert.Equal(t, "Calculator", tree.Name)
	require.Len(t, tree.Children, 2)
}

func TestElementExploreAndText(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock)
	ctx := context.Background()

	window, err := desktop.Locator("role:Window|name:Calculator").WithTimeout(time.Second).First(ctx)
	require.NoError(t, err)

	explored, err := window.Explore(ctx)
	require.NoError(t, err)
	assert.Len(t, explored.Children, 2)

	text, err := window.Text(ctx, 3)
	require.NoError(t, err)
	assert.Contains(t, text, "Seven")
}

func TestWaitGone(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock)

	go func() {
		time.Sleep(150 * time.Millisecond)
		mock.Detach(mock.FindNode("btn7"))
	}()

	elem, err := desktop.Locator("role:Button|name:Seven").
		WithTimeout(2 * time.Second).
		Wait(context.Background(), terminator.Gone)
	require.NoError(t, err)
	assert.Nil(t, elem)
}

func TestHighlightLifecycle(t *testing.T) {
	mock := platform.NewMock(desktopTree())
	desktop := newDesktop(t, mock)
	ctx := context.Background()

	elem, err := desktop.Locator("role:Button|name:Seven").WithTimeout(time.Second).First(ctx)
	require.NoError(t, err)

	require.NoError(t, elem.Highlight(ctx, 0x00FF00, time.Minute))
	require.Len(t, mock.Highlights, 1)

	desktop.StopHighlighting()
	assert.True(t, mock.Highlights[0].Closed)
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.MaxSize = -1

	_, err := terminator.New(
		terminator.WithPlatform(platform.NewMock(desktopTree())),
		terminator.WithConfig(cfg),
	)
	require.Error(t, err)
}
