// Package throttle provides a generic expiring-key suppression store used to
// rate-limit repeat notifications ("cooldowns").
package throttle

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrEntryNotFound = errors.New("throttle entry not found")
)

// Entry represents a single suppression key. A non-expired entry for a key
// means "suppressed".
type Entry struct {
	Key       string
	ExpiresAt time.Time
	Metadata  string
}

// Stats summarizes the contents of the store at a point in time.
type Stats struct {
	Total   int
	Active  int
	Expired int
}

// DangerKey builds the throttle key guarding danger-zone re-alerts for a
// (zone, user) pair.
func DangerKey(zoneID, userID string) string {
	return "danger:" + zoneID + ":" + userID
}
