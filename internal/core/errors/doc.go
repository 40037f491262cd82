// Package derrors provides domain-specific error types and utilities.
//
// This package implements a structured error handling system with error codes,
// wrapping, and context information. It follows Go 1.13+ error handling patterns
// with errors.Is and errors.As support. Platform adapters convert raw OS errors
// (HRESULTs, D-Bus errors, AX error codes) into these codes at the adapter
// boundary; higher layers never see raw platform errors.
package derrors
