package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KVStore.Get when the key has never been set.
var ErrNotFound = errors.New("key not found")

// KVStore persists the small set of values that must survive a restart.
type KVStore interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
