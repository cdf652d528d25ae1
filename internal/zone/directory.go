package zone

import (
	"context"

	"github.com/zonesentry/zonesentry/internal/geo"
)

// Directory is the read-only zone and watcher lookup consumed by the
// detection engine and the reminder scheduler.
type Directory interface {
	// ActiveDangerZonesNear retrieves active danger zones whose center lies
	// within radiusM meters of p. This is a coarse prefilter; callers still
	// test each zone's own radius.
	ActiveDangerZonesNear(ctx context.Context, p geo.Point, radiusM float64) ([]DangerZone, error)

	// AssignedSafeZonesFor retrieves the active safe zones whose subject is
	// the given user, each with its active watcher assignments.
	AssignedSafeZonesFor(ctx context.Context, userID string) ([]SubjectZone, error)

	// SafeZoneByID retrieves one safe zone and its active watcher
	// assignments. Returns ErrZoneNotFound for an unknown id.
	SafeZoneByID(ctx context.Context, zoneID string) (*SafeZone, []WatchAssignment, error)

	// IsZoneMuted reports whether the user has muted alerts for the given
	// danger zone.
	IsZoneMuted(ctx context.Context, userID, zoneID string) (bool, error)
}
