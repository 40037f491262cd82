// Package monitor derives coarse invalidation signals from OS focus,
// foreground-window, and title-change notifications.
//
// The monitor runs on the platform's notification thread; handlers are
// invoked snapshot-then-call with the handler lock released so a slow handler
// cannot stall delivery, and they must not block. Lost or out-of-order events
// are tolerated: the element cache the signals feed is an optimization, never
// a source of truth.
package monitor
