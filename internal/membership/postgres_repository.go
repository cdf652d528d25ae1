package membership

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// zone_transition_events carries an index on (user_id, zone_id,
// created_at DESC) so the latest-event lookup stays cheap.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL event repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// LatestForPair retrieves the most recent event for a (user, zone) pair.
func (r *PostgresRepository) LatestForPair(ctx context.Context, userID, zoneID string) (*TransitionEvent, error) {
	query := `
		SELECT id, user_id, zone_id, kind, lat, lng, captured_at, created_at
		FROM zone_transition_events
		WHERE user_id = $1 AND zone_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var event TransitionEvent
	err := r.pool.QueryRow(ctx, query, userID, zoneID).Scan(
		&event.ID,
		&event.UserID,
		&event.ZoneID,
		&event.Kind,
		&event.Location.Lat,
		&event.Location.Lon,
		&event.CapturedAt,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTransition
		}
		return nil, err
	}

	return &event, nil
}

// Append stores a new transition event.
func (r *PostgresRepository) Append(ctx context.Context, event *TransitionEvent) error {
	query := `
		INSERT INTO zone_transition_events (
			id, user_id, zone_id, kind, lat, lng, captured_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.UserID,
		event.ZoneID,
		event.Kind,
		event.Location.Lat,
		event.Location.Lon,
		event.CapturedAt,
		event.CreatedAt,
	)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
