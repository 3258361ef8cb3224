// Package state keeps per-user conversation records. Backends are
// interchangeable behind Store; each operation on one key is atomic and
// safe for concurrent callers.
package state
