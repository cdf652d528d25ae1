// Package alert manages pending safe-zone-exit alerts: the unconfirmed
// records created on an exit transition that the reminder scheduler works
// through until a watcher confirms, the subject returns, or the reminder
// budget runs out.
package alert

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrAlertNotFound = errors.New("pending alert not found")
	ErrAlertExists   = errors.New("unconfirmed alert already exists for pair")
)

// PendingAlert tracks one unconfirmed safe-zone exit. At most one
// unconfirmed alert exists per (user, zone) pair. Alerts are never
// hard-deleted by the core.
type PendingAlert struct {
	ID                 string
	UserID             string
	ZoneID             string
	EventID            string
	FirstAlertSentAt   time.Time
	LastReminderSentAt *time.Time
	ReminderCount      int
	Confirmed          bool
	ConfirmedAt        *time.Time
	ConfirmedBy        *string
}
