// Package zone provides the danger-zone and safe-zone directory consumed by
// the detection engine and the reminder scheduler. Zone management itself
// (CRUD, reporting) lives outside this core; the directory is read-only
// apart from test seeding on the in-memory implementation.
package zone

import (
	"errors"
	"time"

	"github.com/zonesentry/zonesentry/internal/geo"
)

// Directory errors.
var (
	ErrZoneNotFound = errors.New("zone not found")
)

// Severity rates a danger zone.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityMed  Severity = "med"
	SeverityHigh Severity = "high"
)

// DangerZone is a community-reported circular area. Re-alerting is purely
// time-throttled; danger zones have no enter/exit concept.
type DangerZone struct {
	ID           string
	Center       geo.Point
	RadiusM      float64
	Severity     Severity
	Active       bool
	LastReportAt time.Time
}

// Circle is a circular safe-zone shape.
type Circle struct {
	Center  geo.Point
	RadiusM float64
}

// Polygon is a polygonal safe-zone shape. Ring should be closed; an
// unclosed ring is closed at evaluation time.
type Polygon struct {
	Ring []geo.Point
}

// SafeZone is an owner-defined area whose enter/exit transitions are
// tracked. Exactly one of Circle or Polygon is set. The zone's owner is the
// tracked subject; watchers are assigned separately.
type SafeZone struct {
	ID      string
	OwnerID string
	Name    string
	Circle  *Circle
	Polygon *Polygon
	Active  bool
}

// Contains reports whether p lies inside the zone's shape.
func (z *SafeZone) Contains(p geo.Point) bool {
	switch {
	case z.Circle != nil:
		return geo.CircleContains(z.Circle.Center, z.Circle.RadiusM, p)
	case z.Polygon != nil:
		return geo.PolygonContains(z.Polygon.Ring, p)
	default:
		return false
	}
}

// WatchAssignment names a user who is notified when the zone's subject
// crosses the boundary.
type WatchAssignment struct {
	SafeZoneID    string
	WatcherUserID string
	Active        bool
	NotifyOnEntry bool
	NotifyOnExit  bool
}

// SubjectZone pairs a safe zone with its watcher assignments for one
// subject user.
type SubjectZone struct {
	Zone     SafeZone
	Watchers []WatchAssignment
}
