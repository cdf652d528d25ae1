package quiethours

import "context"

// Repository defines the interface for quiet-hours preference persistence.
type Repository interface {
	// Get retrieves the preference for a user.
	// Returns ErrPreferenceNotFound if the user has no stored preference.
	Get(ctx context.Context, userID string) (*Preference, error)

	// Upsert creates or replaces the preference for its user.
	Upsert(ctx context.Context, pref *Preference) error
}
