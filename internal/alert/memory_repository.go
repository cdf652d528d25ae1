package alert

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]*PendingAlert
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]*PendingAlert),
	}
}

// Create stores a new pending alert, enforcing the single-unconfirmed-
// per-pair invariant.
func (r *InMemoryRepository) Create(_ context.Context, alert *PendingAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.alerts {
		if !a.Confirmed && a.UserID == alert.UserID && a.ZoneID == alert.ZoneID {
			return ErrAlertExists
		}
	}

	cpy := *alert
	r.alerts[alert.ID] = &cpy
	return nil
}

// Get retrieves an alert by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*PendingAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}

	cpy := *a
	return &cpy, nil
}

// UnconfirmedForPair retrieves the unconfirmed alert for a (user, zone) pair.
func (r *InMemoryRepository) UnconfirmedForPair(_ context.Context, userID, zoneID string) (*PendingAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.alerts {
		if !a.Confirmed && a.UserID == userID && a.ZoneID == zoneID {
			cpy := *a
			return &cpy, nil
		}
	}
	return nil, ErrAlertNotFound
}

// DueForReminder selects unconfirmed alerts needing a reminder.
func (r *InMemoryRepository) DueForReminder(_ context.Context, now time.Time, spacing time.Duration, maxReminders int) ([]*PendingAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := now.Add(-spacing)

	var due []*PendingAlert
	for _, a := range r.alerts {
		if a.Confirmed || a.ReminderCount >= maxReminders {
			continue
		}
		last := a.FirstAlertSentAt
		if a.LastReminderSentAt != nil {
			last = *a.LastReminderSentAt
		}
		if !last.After(cutoff) {
			cpy := *a
			due = append(due, &cpy)
		}
	}
	return due, nil
}

// MarkReminded increments the reminder count and stamps the reminder time.
func (r *InMemoryRepository) MarkReminded(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}

	a.ReminderCount++
	stamp := at
	a.LastReminderSentAt = &stamp
	return nil
}

// Confirm marks the alert confirmed.
func (r *InMemoryRepository) Confirm(_ context.Context, id string, at time.Time, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	if a.Confirmed {
		return nil
	}

	a.Confirmed = true
	stamp := at
	a.ConfirmedAt = &stamp
	confirmer := by
	a.ConfirmedBy = &confirmer
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
