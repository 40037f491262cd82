// Package cli implements the terminator command-line interface: a thin
// wrapper over the public automation API for scripting and diagnosis.
package cli
