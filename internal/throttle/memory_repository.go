package throttle

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewInMemoryRepository creates a new in-memory throttle repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves an entry by key.
func (r *InMemoryRepository) Get(_ context.Context, key string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	if !ok {
		return nil, ErrEntryNotFound
	}

	cpy := *e
	return &cpy, nil
}

// Upsert creates or overwrites the entry for its key.
func (r *InMemoryRepository) Upsert(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *entry
	r.entries[entry.Key] = &cpy
	return nil
}

// Delete removes the entry for a key.
func (r *InMemoryRepository) Delete(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[key]
	delete(r.entries, key)
	return ok, nil
}

// DeleteExpired removes all entries expired at now.
func (r *InMemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for key, e := range r.entries {
		if !e.ExpiresAt.After(now) {
			delete(r.entries, key)
			count++
		}
	}
	return count, nil
}

// Stats counts entries relative to now.
func (r *InMemoryRepository) Stats(_ context.Context, now time.Time) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.entries)}
	for _, e := range r.entries {
		if e.ExpiresAt.After(now) {
			stats.Active++
		} else {
			stats.Expired++
		}
	}
	return stats, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
