package alert

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
//
// pending_safe_zone_alerts carries a partial unique index on
// (user_id, zone_id) WHERE NOT confirmed, which enforces the
// single-unconfirmed-alert invariant even across concurrent writers, and
// an index on (confirmed, last_reminder_sent_at) for scheduler selection.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const alertColumns = `
	id, user_id, zone_id, event_id, first_alert_sent_at,
	last_reminder_sent_at, reminder_count, confirmed, confirmed_at, confirmed_by
`

// Create stores a new pending alert. The partial unique index turns a
// duplicate unconfirmed pair into a no-op insert, reported as
// ErrAlertExists.
func (r *PostgresRepository) Create(ctx context.Context, alert *PendingAlert) error {
	query := `
		INSERT INTO pending_safe_zone_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		alert.ID,
		alert.UserID,
		alert.ZoneID,
		alert.EventID,
		alert.FirstAlertSentAt,
		alert.LastReminderSentAt,
		alert.ReminderCount,
		alert.Confirmed,
		alert.ConfirmedAt,
		alert.ConfirmedBy,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAlertExists
	}
	return nil
}

// Get retrieves an alert by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*PendingAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM pending_safe_zone_alerts WHERE id = $1`
	return r.scanAlert(ctx, query, id)
}

// UnconfirmedForPair retrieves the unconfirmed alert for a (user, zone) pair.
func (r *PostgresRepository) UnconfirmedForPair(ctx context.Context, userID, zoneID string) (*PendingAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM pending_safe_zone_alerts
		WHERE user_id = $1 AND zone_id = $2 AND NOT confirmed
	`
	return r.scanAlert(ctx, query, userID, zoneID)
}

func (r *PostgresRepository) scanAlert(ctx context.Context, query string, args ...interface{}) (*PendingAlert, error) {
	var alert PendingAlert
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&alert.ID,
		&alert.UserID,
		&alert.ZoneID,
		&alert.EventID,
		&alert.FirstAlertSentAt,
		&alert.LastReminderSentAt,
		&alert.ReminderCount,
		&alert.Confirmed,
		&alert.ConfirmedAt,
		&alert.ConfirmedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return &alert, nil
}

// DueForReminder selects unconfirmed alerts needing a reminder.
func (r *PostgresRepository) DueForReminder(ctx context.Context, now time.Time, spacing time.Duration, maxReminders int) ([]*PendingAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM pending_safe_zone_alerts
		WHERE NOT confirmed
		  AND reminder_count < $1
		  AND (
			(last_reminder_sent_at IS NULL AND first_alert_sent_at <= $2)
			OR last_reminder_sent_at <= $2
		  )
		ORDER BY first_alert_sent_at
	`

	cutoff := now.Add(-spacing)
	rows, err := r.pool.Query(ctx, query, maxReminders, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*PendingAlert
	for rows.Next() {
		var alert PendingAlert
		err := rows.Scan(
			&alert.ID,
			&alert.UserID,
			&alert.ZoneID,
			&alert.EventID,
			&alert.FirstAlertSentAt,
			&alert.LastReminderSentAt,
			&alert.ReminderCount,
			&alert.Confirmed,
			&alert.ConfirmedAt,
			&alert.ConfirmedBy,
		)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, &alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

// MarkReminded increments the reminder count and stamps the reminder time.
func (r *PostgresRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE pending_safe_zone_alerts
		SET reminder_count = reminder_count + 1, last_reminder_sent_at = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// Confirm marks the alert confirmed. Already-confirmed rows are untouched.
func (r *PostgresRepository) Confirm(ctx context.Context, id string, at time.Time, by string) error {
	query := `
		UPDATE pending_safe_zone_alerts
		SET confirmed = TRUE, confirmed_at = $2, confirmed_by = $3
		WHERE id = $1 AND NOT confirmed
	`

	result, err := r.pool.Exec(ctx, query, id, at, by)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		// Distinguish missing from already confirmed.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
