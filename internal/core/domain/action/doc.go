// Package action defines the vocabulary of element actions: kinds, options,
// input primitives (mouse buttons, modifiers, scroll directions), the
// brace-notation key specification DSL, and the actionability report produced
// by precondition checks.
package action
