package monitor

import (
	"strings"
	"sync"

	"github.com/tribhuwan-kumar/terminator/internal/core/cache"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

// Signal is a derived higher-level event.
type Signal interface {
	signal()
}

// ApplicationSwitch reports the foreground application changing.
type ApplicationSwitch struct {
	Old string
	New string
}

func (ApplicationSwitch) signal() {}

// WindowTitleChange reports the focused window's title changing within the
// same application.
type WindowTitleChange struct {
	App string
	Old string
	New string
}

func (WindowTitleChange) signal() {}

// BrowserNavigation reports a likely page navigation in a browser, derived
// from a title change in an application with a known browser name prefix.
type BrowserNavigation struct {
	App string
}

func (BrowserNavigation) signal() {}

// Handler receives derived signals. Handlers run on the platform notification
// thread and must not block.
type Handler func(Signal)

// Monitor subscribes to platform events and fans derived signals out to
// registered handlers.
type Monitor struct {
	source          ports.EventSource
	logger          *zap.Logger
	browserPrefixes []string

	handlersMu sync.Mutex
	handlers   []Handler

	stateMu      sync.Mutex
	lastApp      string
	lastTitle    string
	subscription ports.Subscription
}

// New creates a monitor over the given event source. browserPrefixes name the
// applications whose title changes also produce BrowserNavigation signals.
func New(source ports.EventSource, browserPrefixes []string, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		source:          source,
		logger:          logger,
		browserPrefixes: browserPrefixes,
	}
}

// AddHandler registers a signal handler.
func (m *Monitor) AddHandler(handler Handler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()

	m.handlers = append(m.handlers, handler)
}

// AttachCache registers the standard cache-invalidation handler: an
// application switch drops the old application's entries, a title change
// drops entries scoped to the old title, and a browser navigation drops the
// browser's entries wholesale.
func (m *Monitor) AttachCache(c *cache.Cache) {
	m.AddHandler(func(signal Signal) {
		switch sig := signal.(type) {
		case ApplicationSwitch:
			if sig.Old != "" {
				c.InvalidateApp(sig.Old)
			}
		case WindowTitleChange:
			if sig.Old != "" {
				c.InvalidateTitlePrefix(sig.Old)
			}
		case BrowserNavigation:
			c.InvalidateApp(sig.App)
		}
	})
}

// Start subscribes to the platform event source.
func (m *Monitor) Start() error {
	subscription, err := m.source.SubscribeEvents(m.handleEvent)
	if err != nil {
		return err
	}

	m.stateMu.Lock()
	m.subscription = subscription
	m.stateMu.Unlock()

	m.logger.Debug("Event monitor started")

	return nil
}

// Stop unsubscribes from the platform event source.
func (m *Monitor) Stop() {
	m.stateMu.Lock()
	subscription := m.subscription
	m.subscription = nil
	m.stateMu.Unlock()

	if subscription != nil {
		if err := subscription.Close(); err != nil {
			m.logger.Warn("Failed to close event subscription", zap.Error(err))
		}
	}

	m.logger.Debug("Event monitor stopped")
}

// handleEvent derives signals from one raw platform event and delivers them.
func (m *Monitor) handleEvent(event ports.Event) {
	var signals []Signal

	m.stateMu.Lock()

	switch {
	case event.AppName != "" && event.AppName != m.lastApp:
		signals = append(signals, ApplicationSwitch{Old: m.lastApp, New: event.AppName})

		m.lastApp = event.AppName
		m.lastTitle = event.WindowTitle
	case event.WindowTitle != m.lastTitle:
		oldTitle := m.lastTitle
		m.lastTitle = event.WindowTitle

		signals = append(signals, WindowTitleChange{
			App: m.lastApp,
			Old: oldTitle,
			New: event.WindowTitle,
		})

		if m.isBrowser(m.lastApp) {
			signals = append(signals, BrowserNavigation{App: m.lastApp})
		}
	}

	m.stateMu.Unlock()

	if len(signals) == 0 {
		return
	}

	// Snapshot handlers, then call with the lock released.
	m.handlersMu.Lock()
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.handlersMu.Unlock()

	for _, signal := range signals {
		m.logger.Debug("Event monitor signal", zap.Any("signal", signal))

		for _, handler := range handlers {
			handler(signal)
		}
	}
}

func (m *Monitor) isBrowser(appName string) bool {
	for _, prefix := range m.browserPrefixes {
		if strings.HasPrefix(appName, prefix) {
			return true
		}
	}

	return false
}
