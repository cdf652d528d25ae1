package zone

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zonesentry/zonesentry/internal/geo"
)

// Shape discriminator values for the safe_zones table.
const (
	shapeCircle  = "circle"
	shapePolygon = "polygon"
)

// PostgresDirectory is a PostgreSQL implementation of Directory.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a new PostgreSQL zone directory.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

// ActiveDangerZonesNear retrieves active danger zones within radiusM of p.
// A lat/lon bounding box narrows the scan; the exact distance check runs on
// the decoded rows.
func (d *PostgresDirectory) ActiveDangerZonesNear(ctx context.Context, p geo.Point, radiusM float64) ([]DangerZone, error) {
	// Degrees per meter: ~111.32 km per degree latitude; longitude shrinks
	// with the cosine of the latitude.
	latDelta := radiusM / 111320
	lonDelta := latDelta
	if cosLat := math.Cos(p.Lat * math.Pi / 180); cosLat > 0.01 {
		lonDelta = latDelta / cosLat
	}

	query := `
		SELECT id, lat, lng, radius_m, severity, active, last_report_at
		FROM danger_zones
		WHERE active
		  AND lat BETWEEN $1 AND $2
		  AND lng BETWEEN $3 AND $4
	`

	rows, err := d.pool.Query(ctx, query,
		p.Lat-latDelta, p.Lat+latDelta,
		p.Lon-lonDelta, p.Lon+lonDelta,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []DangerZone
	for rows.Next() {
		var z DangerZone
		err := rows.Scan(
			&z.ID,
			&z.Center.Lat,
			&z.Center.Lon,
			&z.RadiusM,
			&z.Severity,
			&z.Active,
			&z.LastReportAt,
		)
		if err != nil {
			return nil, err
		}
		if geo.Distance(z.Center, p) <= radiusM {
			zones = append(zones, z)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return zones, nil
}

// AssignedSafeZonesFor retrieves the active safe zones for a subject user.
func (d *PostgresDirectory) AssignedSafeZonesFor(ctx context.Context, userID string) ([]SubjectZone, error) {
	query := `
		SELECT id, owner_id, name, shape, center_lat, center_lng, radius_m, ring, active
		FROM safe_zones
		WHERE owner_id = $1 AND active
	`

	rows, err := d.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []SubjectZone
	for rows.Next() {
		z, err := scanSafeZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, SubjectZone{Zone: *z})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range zones {
		watchers, err := d.activeAssignments(ctx, zones[i].Zone.ID)
		if err != nil {
			return nil, err
		}
		zones[i].Watchers = watchers
	}

	return zones, nil
}

// SafeZoneByID retrieves one safe zone and its active watcher assignments.
func (d *PostgresDirectory) SafeZoneByID(ctx context.Context, zoneID string) (*SafeZone, []WatchAssignment, error) {
	query := `
		SELECT id, owner_id, name, shape, center_lat, center_lng, radius_m, ring, active
		FROM safe_zones
		WHERE id = $1
	`

	rows, err := d.pool.Query(ctx, query, zoneID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrZoneNotFound
	}

	z, err := scanSafeZone(rows)
	if err != nil {
		return nil, nil, err
	}
	rows.Close()

	watchers, err := d.activeAssignments(ctx, zoneID)
	if err != nil {
		return nil, nil, err
	}

	return z, watchers, nil
}

// IsZoneMuted reports whether the user has muted the danger zone.
func (d *PostgresDirectory) IsZoneMuted(ctx context.Context, userID, zoneID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM zone_mutes WHERE user_id = $1 AND zone_id = $2)`

	var muted bool
	if err := d.pool.QueryRow(ctx, query, userID, zoneID).Scan(&muted); err != nil {
		return false, err
	}
	return muted, nil
}

func (d *PostgresDirectory) activeAssignments(ctx context.Context, zoneID string) ([]WatchAssignment, error) {
	query := `
		SELECT safe_zone_id, watcher_user_id, active, notify_on_entry, notify_on_exit
		FROM zone_watch_assignments
		WHERE safe_zone_id = $1 AND active
	`

	rows, err := d.pool.Query(ctx, query, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watchers []WatchAssignment
	for rows.Next() {
		var w WatchAssignment
		err := rows.Scan(
			&w.SafeZoneID,
			&w.WatcherUserID,
			&w.Active,
			&w.NotifyOnEntry,
			&w.NotifyOnExit,
		)
		if err != nil {
			return nil, err
		}
		watchers = append(watchers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return watchers, nil
}

// scanSafeZone decodes one safe_zones row. The shape column discriminates
// the tagged union: circles use center/radius, polygons use the JSONB ring
// of [lon, lat] pairs.
func scanSafeZone(rows pgx.Rows) (*SafeZone, error) {
	var (
		z         SafeZone
		shape     string
		centerLat *float64
		centerLng *float64
		radiusM   *float64
		ringJSON  []byte
	)

	err := rows.Scan(
		&z.ID,
		&z.OwnerID,
		&z.Name,
		&shape,
		&centerLat,
		&centerLng,
		&radiusM,
		&ringJSON,
		&z.Active,
	)
	if err != nil {
		return nil, err
	}

	switch shape {
	case shapeCircle:
		if centerLat == nil || centerLng == nil || radiusM == nil {
			return nil, fmt.Errorf("safe zone %s: circle shape with missing geometry", z.ID)
		}
		z.Circle = &Circle{
			Center:  geo.Point{Lat: *centerLat, Lon: *centerLng},
			RadiusM: *radiusM,
		}
	case shapePolygon:
		var pairs [][2]float64
		if err := json.Unmarshal(ringJSON, &pairs); err != nil {
			return nil, fmt.Errorf("safe zone %s: decode ring: %w", z.ID, err)
		}
		ring := make([]geo.Point, 0, len(pairs))
		for _, pair := range pairs {
			ring = append(ring, geo.Point{Lon: pair[0], Lat: pair[1]})
		}
		z.Polygon = &Polygon{Ring: ring}
	default:
		return nil, fmt.Errorf("safe zone %s: unknown shape %q", z.ID, shape)
	}

	return &z, nil
}

// Ensure PostgresDirectory implements Directory interface.
var _ Directory = (*PostgresDirectory)(nil)
