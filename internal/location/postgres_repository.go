package location

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository backed by
// a one-row-per-user latest_locations table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL location repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// LatestForUser retrieves the newest recorded fix for a user.
func (r *PostgresRepository) LatestForUser(ctx context.Context, userID string) (*Sample, error) {
	query := `
		SELECT user_id, lat, lng, accuracy_m, speed_mps, heading,
		       captured_at, source, foreground, battery_level
		FROM latest_locations
		WHERE user_id = $1
	`

	var sample Sample
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&sample.UserID,
		&sample.Lat,
		&sample.Lon,
		&sample.AccuracyM,
		&sample.SpeedMPS,
		&sample.Heading,
		&sample.CapturedAt,
		&sample.Source,
		&sample.Foreground,
		&sample.BatteryLevel,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoLocation
		}
		return nil, err
	}

	return &sample, nil
}

// Record stores a fix if it is newer than the one already held. The
// conditional update keeps out-of-order batch delivery from regressing the
// latest fix.
func (r *PostgresRepository) Record(ctx context.Context, sample *Sample) error {
	query := `
		INSERT INTO latest_locations (
			user_id, lat, lng, accuracy_m, speed_mps, heading,
			captured_at, source, foreground, battery_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			accuracy_m = EXCLUDED.accuracy_m,
			speed_mps = EXCLUDED.speed_mps,
			heading = EXCLUDED.heading,
			captured_at = EXCLUDED.captured_at,
			source = EXCLUDED.source,
			foreground = EXCLUDED.foreground,
			battery_level = EXCLUDED.battery_level
		WHERE latest_locations.captured_at <= EXCLUDED.captured_at
	`

	_, err := r.pool.Exec(ctx, query,
		sample.UserID,
		sample.Lat,
		sample.Lon,
		sample.AccuracyM,
		sample.SpeedMPS,
		sample.Heading,
		sample.CapturedAt,
		sample.Source,
		sample.Foreground,
		sample.BatteryLevel,
	)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
