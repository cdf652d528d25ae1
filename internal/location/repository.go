package location

import "context"

// Repository defines the latest-known-location store. Full sample history
// persistence belongs to the ingestion layer; this store keeps only the
// newest fix per user for membership re-validation.
type Repository interface {
	// LatestForUser retrieves the newest recorded fix for a user.
	// Returns ErrNoLocation when the user has no recorded fix.
	LatestForUser(ctx context.Context, userID string) (*Sample, error)

	// Record stores a fix if it is newer than the one already held.
	Record(ctx context.Context, sample *Sample) error
}
