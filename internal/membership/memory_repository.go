package membership

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events map[string][]*TransitionEvent
}

// NewInMemoryRepository creates a new in-memory event repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		events: make(map[string][]*TransitionEvent),
	}
}

func pairKey(userID, zoneID string) string {
	return userID + "|" + zoneID
}

// LatestForPair retrieves the most recent event for a (user, zone) pair.
func (r *InMemoryRepository) LatestForPair(_ context.Context, userID, zoneID string) (*TransitionEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[pairKey(userID, zoneID)]
	if len(events) == 0 {
		return nil, ErrNoTransition
	}

	cpy := *events[len(events)-1]
	return &cpy, nil
}

// Append stores a new transition event.
func (r *InMemoryRepository) Append(_ context.Context, event *TransitionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *event
	key := pairKey(event.UserID, event.ZoneID)
	r.events[key] = append(r.events[key], &cpy)
	return nil
}

// AllForPair returns every recorded event for a pair in append order.
// Test helper for asserting event sequences.
func (r *InMemoryRepository) AllForPair(userID, zoneID string) []TransitionEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[pairKey(userID, zoneID)]
	out := make([]TransitionEvent, 0, len(events))
	for _, e := range events {
		out = append(out, *e)
	}
	return out
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
