// Package cache implements the bounded, TTL'd element cache keyed by search
// fingerprint (selector text plus root identity).
//
// The cache is a correctness optimization, never a source of truth: every hit
// revalidates the underlying element with a live property read, and failed
// validations remove the entry atomically. Event-monitor signals invalidate
// app-scoped and title-scoped entries in bulk.
package cache
