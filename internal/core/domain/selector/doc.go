// Package selector implements the element selector language: the AST,
// a recursive-descent parser, and a canonical printer.
//
// A selector is a chain of steps separated by ">>". Each step filters the
// descendants of the previous step's matches. Within a step, atoms
// (key:value pairs) combine through the legacy compact form "|", explicit
// boolean operators "&&" and "||" (mixing the two requires parentheses),
// positional relations (rightof:, leftof:, above:, below:, near:), and an
// index suffix ("nth:K" from the start, "nth-K" from the end) that is always
// applied after all boolean filtering. ".." navigates to the parent.
//
// Parsing never panics; malformed input produces an error carrying the byte
// position and reason. Every AST round-trips: Parse(sel.String()) yields an
// equal tree.
package selector
