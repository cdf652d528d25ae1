package quiethours

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	prefs map[string]*Preference
}

// NewInMemoryRepository creates a new in-memory preference repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		prefs: make(map[string]*Preference),
	}
}

// Get retrieves the preference for a user.
func (r *InMemoryRepository) Get(_ context.Context, userID string) (*Preference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prefs[userID]
	if !ok {
		return nil, ErrPreferenceNotFound
	}

	cpy := *p
	return &cpy, nil
}

// Upsert creates or replaces the preference for its user.
func (r *InMemoryRepository) Upsert(_ context.Context, pref *Preference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *pref
	r.prefs[pref.UserID] = &cpy
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
