//go:build darwin

package platform

/*
#include "ax_bridge.h"
*/
import "C"

import (
	"context"
	"sync"
	"time"

	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

// titlePollInterval drives the focused-window title poller. The AX API has
// no process-global title-change notification without per-app observers, so
// title changes degrade to polling.
const titlePollInterval = 500 * time.Millisecond

var (
	axHandlersMu sync.Mutex
	axHandlers   = map[int]func(ports.Event){}
	axNextHandle int
)

//export goAXEvent
func goAXEvent(kind C.int, pid C.int, name *C.char) {
	event := ports.Event{
		Kind:      ports.EventForegroundChanged,
		AppName:   C.GoString(name),
		ProcessID: int(pid),
	}

	if kind != 0 {
		event.Kind = ports.EventFocusChanged
	}

	axHandlersMu.Lock()
	handlers := make([]func(ports.Event), 0, len(axHandlers))

	for _, handler := range axHandlers {
		handlers = append(handlers, handler)
	}
	axHandlersMu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// axSubscription is one live registration.
type axSubscription struct {
	id   int
	stop chan struct{}
}

func (s *axSubscription) Close() error {
	axHandlersMu.Lock()
	delete(axHandlers, s.id)
	empty := len(axHandlers) == 0
	axHandlersMu.Unlock()

	close(s.stop)

	if empty {
		C.ax_stop_observers()
	}

	return nil
}

func newAXSubscription(logger *zap.Logger, handler func(ports.Event)) (ports.Subscription, error) {
	axHandlersMu.Lock()
	axNextHandle++
	id := axNextHandle
	axHandlers[id] = handler
	axHandlersMu.Unlock()

	C.ax_start_observers()

	sub := &axSubscription{id: id, stop: make(chan struct{})}

	// Title changes have no global notification; poll the focused window.
	go func() {
		ticker := time.NewTicker(titlePollInterval)
		defer ticker.Stop()

		var lastTitle string

		probe := &axPlatform{logger: logger}

		for {
			select {
			case <-sub.stop:
				return
			case <-ticker.C:
				window, err := probe.FocusedWindow(context.Background())
				if err != nil {
					continue
				}

				info, infoErr := probe.Info(context.Background(), window)
				window.Release()

				if infoErr != nil {
					continue
				}

				title := info.WindowTitle
				if title == "" {
					title = info.Name
				}

				if title != "" && title != lastTitle {
					lastTitle = title

					handler(ports.Event{
						Kind:        ports.EventTitleChanged,
						WindowTitle: title,
						ProcessID:   info.ProcessID,
					})
				}
			}
		}
	}()

	return sub, nil
}
