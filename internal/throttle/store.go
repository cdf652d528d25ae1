package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Store provides throttle operations on top of a Repository.
//
// Reads fail open: a backend error on IsThrottled is logged and treated as
// "not throttled" so a persistence outage never silently drops
// safety-critical notifications. Writes fail closed: errors on Set and
// Remove are returned to the caller.
type Store struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// StoreConfig holds configuration for creating a Store.
type StoreConfig struct {
	Repo   Repository
	Logger zerolog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewStore creates a new throttle store.
func NewStore(cfg StoreConfig) *Store {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		repo:   cfg.Repo,
		logger: cfg.Logger,
		now:    now,
	}
}

// IsThrottled reports whether a non-expired entry exists for key.
func (s *Store) IsThrottled(ctx context.Context, key string) bool {
	entry, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrEntryNotFound) {
			s.logger.Warn().Err(err).Str("key", key).
				Msg("throttle read failed, treating as not throttled")
		}
		return false
	}
	return entry.ExpiresAt.After(s.now())
}

// Set upserts an entry for key expiring ttl from now.
func (s *Store) Set(ctx context.Context, key string, ttl time.Duration, metadata string) error {
	entry := &Entry{
		Key:       key,
		ExpiresAt: s.now().Add(ttl),
		Metadata:  metadata,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("throttle write failed")
		return fmt.Errorf("set throttle %q: %w", key, err)
	}
	return nil
}

// Remove deletes the entry for key and reports whether one existed.
func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	existed, err := s.repo.Delete(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("throttle delete failed")
		return false, fmt.Errorf("remove throttle %q: %w", key, err)
	}
	return existed, nil
}

// Sweep deletes all expired entries and returns how many were removed.
// Safe to run concurrently with reads; the TTL is best-effort, not a hard
// real-time guarantee.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	count, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep throttles: %w", err)
	}
	if count > 0 {
		s.logger.Debug().Int("removed", count).Msg("swept expired throttle entries")
	}
	return count, nil
}

// Stats returns counts of total, active, and expired entries.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.repo.Stats(ctx, s.now())
	if err != nil {
		return Stats{}, fmt.Errorf("throttle stats: %w", err)
	}
	return stats, nil
}
