// Package notifier defines the push-notification capability consumed by the
// detection engine and the reminder scheduler, plus the concrete transports.
// Delivery to devices happens downstream; this package only hands a message
// to the dispatch pipeline.
package notifier

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the transport is known to be down (for
// example an open circuit breaker) without attempting delivery.
var ErrUnavailable = errors.New("notifier unavailable")

// Kind identifies the message template a notification renders with.
type Kind string

const (
	KindDangerAlert      Kind = "danger_alert"
	KindSafeZoneEntry    Kind = "safe_zone_entry"
	KindSafeZoneExit     Kind = "safe_zone_exit"
	KindSafeZoneReminder Kind = "safe_zone_reminder"
)

// Payload carries the template data for one notification. Fields not
// relevant to a kind are left at their zero value.
type Payload struct {
	ZoneID         string  `json:"zone_id"`
	ZoneName       string  `json:"zone_name,omitempty"`
	SubjectUserID  string  `json:"subject_user_id,omitempty"`
	Severity       string  `json:"severity,omitempty"`
	DistanceM      float64 `json:"distance_m,omitempty"`
	ReminderNumber int     `json:"reminder_number,omitempty"`
}

// Notifier accepts a notification for delivery to one recipient.
type Notifier interface {
	Send(ctx context.Context, recipientID string, kind Kind, payload Payload) error
}
