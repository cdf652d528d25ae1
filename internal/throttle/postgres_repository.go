package throttle

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL throttle repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves an entry by key.
func (r *PostgresRepository) Get(ctx context.Context, key string) (*Entry, error) {
	query := `
		SELECT key, expires_at, metadata
		FROM throttle_entries
		WHERE key = $1
	`

	var entry Entry
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&entry.Key,
		&entry.ExpiresAt,
		&entry.Metadata,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	return &entry, nil
}

// Upsert creates or overwrites the entry for its key.
func (r *PostgresRepository) Upsert(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO throttle_entries (key, expires_at, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			expires_at = EXCLUDED.expires_at,
			metadata = EXCLUDED.metadata
	`

	_, err := r.pool.Exec(ctx, query, entry.Key, entry.ExpiresAt, entry.Metadata)
	return err
}

// Delete removes the entry for a key.
func (r *PostgresRepository) Delete(ctx context.Context, key string) (bool, error) {
	query := `DELETE FROM throttle_entries WHERE key = $1`

	result, err := r.pool.Exec(ctx, query, key)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// DeleteExpired removes all entries expired at now.
// The expires_at index keeps the sweep cheap.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM throttle_entries WHERE expires_at <= $1`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

// Stats counts entries relative to now.
func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE expires_at > $1)
		FROM throttle_entries
	`

	var stats Stats
	if err := r.pool.QueryRow(ctx, query, now).Scan(&stats.Total, &stats.Active); err != nil {
		return Stats{}, err
	}
	stats.Expired = stats.Total - stats.Active

	return stats, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
