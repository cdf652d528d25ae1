package quiethours

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL preference repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves the preference for a user.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*Preference, error) {
	query := `
		SELECT user_id, enabled, start_local, end_local, timezone
		FROM quiet_hours_preferences
		WHERE user_id = $1
	`

	var pref Preference
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&pref.UserID,
		&pref.Enabled,
		&pref.Start,
		&pref.End,
		&pref.Timezone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreferenceNotFound
		}
		return nil, err
	}

	return &pref, nil
}

// Upsert creates or replaces the preference for its user.
func (r *PostgresRepository) Upsert(ctx context.Context, pref *Preference) error {
	query := `
		INSERT INTO quiet_hours_preferences (user_id, enabled, start_local, end_local, timezone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			start_local = EXCLUDED.start_local,
			end_local = EXCLUDED.end_local,
			timezone = EXCLUDED.timezone
	`

	_, err := r.pool.Exec(ctx, query,
		pref.UserID,
		pref.Enabled,
		pref.Start,
		pref.End,
		pref.Timezone,
	)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
