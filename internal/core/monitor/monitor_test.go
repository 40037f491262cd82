package monitor_test

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribhuwan-kumar/terminator/internal/config"
	"github.com/tribhuwan-kumar/terminator/internal/core/cache"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/platform"
	"github.com/tribhuwan-kumar/terminator/internal/core/monitor"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

func newMonitorFixture(t *testing.T) (*platform.Mock, *monitor.Monitor, *[]monitor.Signal) {
	t.Helper()

	mock := platform.NewMock(platform.Node("desktop", "Desktop", "", image.Rect(0, 0, 1920, 1080)))

	mon := monitor.New(mock, config.DefaultBrowserPrefixes(), zap.NewNop())

	var received []monitor.Signal

	mon.AddHandler(func(signal monitor.Signal) {
		received = append(received, signal)
	})

	require.NoError(t, mon.Start())
	t.Cleanup(mon.Stop)

	return mock, mon, &received
}

func TestApplicationSwitch(t *testing.T) {
	mock, _, received := newMonitorFixture(t)

	mock.InjectEvent(ports.Event{Kind: ports.EventForegroundChanged, AppName: "Calculator"})
	mock.InjectEvent(ports.Event{Kind: ports.EventForegroundChanged, AppName: "Notepad"})

	require.Len(t, *received, 2)

	first, ok := (*received)[0].(monitor.ApplicationSwitch)
	require.True(t, ok)
	assert.Equal(t, "", first.Old)
	assert.Equal(t, "Calculator", first.New)

	second, ok := (*received)[1].(monitor.ApplicationSwitch)
	require.True(t, ok)
	assert.Equal(t, "Calculator", second.Old)
	assert.Equal(t, "Notepad", second.New)
}

func TestSameAppNoSignal(t *testing.T) {
	mock, _, received := newMonitorFixture(t)

	mock.InjectEvent(ports.Event{AppName: "Calculator", WindowTitle: "Calculator"})
	mock.InjectEvent(ports.Event{AppName: "Calculator", WindowTitle: "Calculator"})

	assert.Len(t, *received, 1, "identical repeated events derive nothing new")
}

func TestWindowTitleChange(t *testing.T) {
	mock, _, received := newMonitorFixture(t)

	mock.InjectEvent(ports.Event{AppName: "Notepad", WindowTitle: "Untitled"})
	mock.InjectEvent(ports.Event{AppName: "Notepad", WindowTitle: "notes.txt"})

	require.Len(t, *received, 2)

	change, ok := (*received)[1].(monitor.WindowTitleChange)
	require.True(t, ok)
	assert.Equal(t, "Notepad", change.App)
	assert.Equal(t, "Untitled", change.Old)
	assert.Equal(t, "notes.txt", change.New)
}

func TestBrowserNavigation(t *testing.T) {
	mock, _, received := newMonitorFixture(t)

	mock.InjectEvent(ports.Event{AppName: "Chrome", WindowTitle: "New Tab"})
	mock.InjectEvent(ports.Event{AppName: "Chrome", WindowTitle: "GitHub"})

	require.Len(t, *received, 3, "title change in a browser derives both signals")

	_, isTitle := (*received)[1].(monitor.WindowTitleChange)
	assert.True(t, isTitle)

	nav, isNav := (*received)[2].(monitor.BrowserNavigation)
	require.True(t, isNav)
	assert.Equal(t, "Chrome", nav.App)
}

func TestNonBrowserTitleChangeNoNavigation(t *testing.T) {
	mock, _, received := newMonitorFixture(t)

	mock.InjectEvent(ports.Event{AppName: "Notepad", WindowTitle: "a.txt"})
	mock.InjectEvent(ports.Event{AppName: "Notepad", WindowTitle: "b.txt"})

	for _, signal := range *received {
		_, isNav := signal.(monitor.BrowserNavigation)
		assert.False(t, isNav)
	}
}

func TestAttachCache_AppSwitchInvalidates(t *testing.T) {
	mock := platform.NewMock(platform.Node("desktop", "Desktop", "", image.Rect(0, 0, 1920, 1080),
		platform.Node("btn", "Button", "OK", image.Rect(0, 0, 40, 20)),
	))

	elementCache := cache.New(10, time.Minute, zap.NewNop())
	mon := monitor.New(mock, config.DefaultBrowserPrefixes(), zap.NewNop())
	mon.AttachCache(elementCache)
	require.NoError(t, mon.Start())
	t.Cleanup(mon.Stop)

	elem, err := element.New(mock, mock.FindNode("btn"))
	require.NoError(t, err)

	fp := cache.Fingerprint("role:Button|name:OK", "desktop")
	elementCache.Insert(fp, elem, "Calculator", "Calculator")

	// Establish Calculator as the current app, then switch away.
	mock.InjectEvent(ports.Event{AppName: "Calculator"})
	mock.InjectEvent(ports.Event{AppName: "Notepad"})

	assert.Nil(t, elementCache.Get(context.Background(), fp),
		"entries scoped to the switched-away app miss after the signal")
}
