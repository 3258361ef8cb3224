package state

import (
	"context"
	"errors"
)

// ErrBackend wraps failures of a remote store backend.
var ErrBackend = errors.New("state: backend failure")

// Store holds at most one value of T per user.
type Store[T any] interface {
	// Get returns the user's value and whether one exists.
	Get(ctx context.Context, userID int64) (T, bool, error)
	// Set stores v for the user, replacing any previous value.
	Set(ctx context.Context, userID int64, v T) error
	// Delete removes the user's value. Deleting a missing key is not an error.
	Delete(ctx context.Context, userID int64) error
}
