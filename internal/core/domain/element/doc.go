// Package element provides the shared-ownership handle around a
// platform-native accessibility node.
//
// A handle's identity is its runtime id: equality and hashing consider
// nothing else, and the id never mutates for the handle's lifetime.
// Properties are read through to the platform on every access apart from a
// short per-action cache, so a handle can always discover that its node has
// been destroyed (ElementDetached) instead of serving stale state.
package element
