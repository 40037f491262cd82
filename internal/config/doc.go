// Package config defines the Terminator configuration structure, defaults,
// TOML loading, and validation.
//
// Configuration is optional: every field has a working default matching the
// automation core's documented behavior. A process-wide instance is held via
// SetGlobal/Global and set lazily by the public API on first use.
package config
