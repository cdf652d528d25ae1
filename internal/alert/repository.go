package alert

import (
	"context"
	"time"
)

// Repository defines the interface for pending alert persistence.
type Repository interface {
	// Create stores a new pending alert. Returns ErrAlertExists when an
	// unconfirmed alert already exists for the same (user, zone) pair.
	Create(ctx context.Context, alert *PendingAlert) error

	// Get retrieves an alert by ID.
	// Returns ErrAlertNotFound for an unknown id.
	Get(ctx context.Context, id string) (*PendingAlert, error)

	// UnconfirmedForPair retrieves the unconfirmed alert for a (user, zone)
	// pair. Returns ErrAlertNotFound when none exists.
	UnconfirmedForPair(ctx context.Context, userID, zoneID string) (*PendingAlert, error)

	// DueForReminder selects unconfirmed alerts below the reminder cap whose
	// last activity (first alert, or last reminder) is at least spacing ago.
	DueForReminder(ctx context.Context, now time.Time, spacing time.Duration, maxReminders int) ([]*PendingAlert, error)

	// MarkReminded increments the reminder count and stamps the reminder
	// time. Returns ErrAlertNotFound for an unknown id.
	MarkReminded(ctx context.Context, id string, at time.Time) error

	// Confirm marks the alert confirmed. A no-op on an already-confirmed
	// alert. Returns ErrAlertNotFound for an unknown id.
	Confirm(ctx context.Context, id string, at time.Time, by string) error
}
