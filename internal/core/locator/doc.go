// Package locator evaluates parsed selectors against the live accessibility
// tree.
//
// A chain evaluates step by step: each step expands the previous step's
// matches into a candidate pool by walking descendants up to a depth cap and
// keeps the ones its expression matches. Two depth overrides exist: named
// toplevel-container steps rooted at the desktop walk shallow (≤ 5), and
// nativeid steps walk deep (500) to reach browser content trees.
//
// Alternative selectors race in parallel with the primary; the first
// non-empty result wins with a deterministic preference for the primary.
// Fallback selectors run sequentially only after the primary and all
// alternatives exhaust their budget, and only mask ElementNotFound and
// Timeout.
package locator
