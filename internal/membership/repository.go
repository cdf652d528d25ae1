package membership

import "context"

// Repository defines the interface for transition event persistence.
// Events are append-only; there is no update or delete.
type Repository interface {
	// LatestForPair retrieves the most recent event for a (user, zone) pair.
	// Returns ErrNoTransition when the pair has no recorded event.
	LatestForPair(ctx context.Context, userID, zoneID string) (*TransitionEvent, error)

	// Append stores a new transition event.
	Append(ctx context.Context, event *TransitionEvent) error
}
