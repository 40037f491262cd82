// Package executor runs validated actions against resolved elements.
//
// Every action passes through the same state machine: precondition checks
// (attached, visible, enabled, in-viewport, bounds-stable, unobscured) run as
// live platform reads, transient failures retry within the action deadline,
// fatal ones fail fast with their matching error kind, and optional
// postcondition verification confirms the action's effect. Preconditions are
// never converted into false-positive successes.
package executor
