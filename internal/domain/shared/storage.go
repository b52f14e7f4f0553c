package shared

import (
	"context"
	"errors"
)

// ErrStorageUnavailable is returned by key-value stores that cannot reach
// their backing medium (closed client, unwritable directory, dropped connection)
var ErrStorageUnavailable = errors.New("storage unavailable")

// KeyValueStore is durable client-side storage scoped to one storefront
// installation. It plays the role a browser's local storage plays for a web
// client: string values under fixed keys, surviving restarts.
type KeyValueStore interface {
	// Get returns the value stored under key. found is false when the key
	// has never been set or was deleted.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}
