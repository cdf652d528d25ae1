package zone

import (
	"context"
	"sync"

	"github.com/zonesentry/zonesentry/internal/geo"
)

// InMemoryDirectory is an in-memory implementation of Directory.
// This is intended for testing. Production should use PostgresDirectory.
type InMemoryDirectory struct {
	mu          sync.RWMutex
	dangerZones map[string]*DangerZone
	safeZones   map[string]*SafeZone
	assignments map[string][]WatchAssignment
	mutes       map[string]map[string]bool
}

// NewInMemoryDirectory creates a new in-memory zone directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		dangerZones: make(map[string]*DangerZone),
		safeZones:   make(map[string]*SafeZone),
		assignments: make(map[string][]WatchAssignment),
		mutes:       make(map[string]map[string]bool),
	}
}

// AddDangerZone registers a danger zone.
func (d *InMemoryDirectory) AddDangerZone(z DangerZone) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dangerZones[z.ID] = &z
}

// AddSafeZone registers a safe zone with its watcher assignments.
func (d *InMemoryDirectory) AddSafeZone(z SafeZone, watchers ...WatchAssignment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.safeZones[z.ID] = &z
	d.assignments[z.ID] = append([]WatchAssignment(nil), watchers...)
}

// MuteZone marks a danger zone as muted for a user.
func (d *InMemoryDirectory) MuteZone(userID, zoneID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mutes[userID] == nil {
		d.mutes[userID] = make(map[string]bool)
	}
	d.mutes[userID][zoneID] = true
}

// ActiveDangerZonesNear retrieves active danger zones within radiusM of p.
func (d *InMemoryDirectory) ActiveDangerZonesNear(_ context.Context, p geo.Point, radiusM float64) ([]DangerZone, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var zones []DangerZone
	for _, z := range d.dangerZones {
		if z.Active && geo.Distance(z.Center, p) <= radiusM {
			zones = append(zones, *z)
		}
	}
	return zones, nil
}

// AssignedSafeZonesFor retrieves the active safe zones for a subject user.
func (d *InMemoryDirectory) AssignedSafeZonesFor(_ context.Context, userID string) ([]SubjectZone, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var zones []SubjectZone
	for _, z := range d.safeZones {
		if !z.Active || z.OwnerID != userID {
			continue
		}
		zones = append(zones, SubjectZone{
			Zone:     *z,
			Watchers: activeWatchers(d.assignments[z.ID]),
		})
	}
	return zones, nil
}

// SafeZoneByID retrieves one safe zone and its active watcher assignments.
func (d *InMemoryDirectory) SafeZoneByID(_ context.Context, zoneID string) (*SafeZone, []WatchAssignment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	z, ok := d.safeZones[zoneID]
	if !ok {
		return nil, nil, ErrZoneNotFound
	}

	cpy := *z
	return &cpy, activeWatchers(d.assignments[zoneID]), nil
}

// IsZoneMuted reports whether the user has muted the danger zone.
func (d *InMemoryDirectory) IsZoneMuted(_ context.Context, userID, zoneID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mutes[userID][zoneID], nil
}

func activeWatchers(assignments []WatchAssignment) []WatchAssignment {
	var active []WatchAssignment
	for _, w := range assignments {
		if w.Active {
			active = append(active, w)
		}
	}
	return active
}

// Ensure InMemoryDirectory implements Directory interface.
var _ Directory = (*InMemoryDirectory)(nil)
