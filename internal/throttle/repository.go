package throttle

import (
	"context"
	"time"
)

// Repository defines the interface for throttle entry persistence.
type Repository interface {
	// Get retrieves an entry by key.
	// Returns ErrEntryNotFound if no entry exists for the key.
	Get(ctx context.Context, key string) (*Entry, error)

	// Upsert creates or overwrites the entry for its key.
	Upsert(ctx context.Context, entry *Entry) error

	// Delete removes the entry for a key.
	// Returns whether an entry existed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteExpired removes all entries with an expiry at or before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Stats counts entries relative to now.
	Stats(ctx context.Context, now time.Time) (Stats, error)
}
