package location

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	latest map[string]*Sample
}

// NewInMemoryRepository creates a new in-memory location repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		latest: make(map[string]*Sample),
	}
}

// LatestForUser retrieves the newest recorded fix for a user.
func (r *InMemoryRepository) LatestForUser(_ context.Context, userID string) (*Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.latest[userID]
	if !ok {
		return nil, ErrNoLocation
	}

	cpy := *s
	return &cpy, nil
}

// Record stores a fix if it is newer than the one already held.
func (r *InMemoryRepository) Record(_ context.Context, sample *Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.latest[sample.UserID]; ok && cur.CapturedAt.After(sample.CapturedAt) {
		return nil
	}

	cpy := *sample
	r.latest[sample.UserID] = &cpy
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
