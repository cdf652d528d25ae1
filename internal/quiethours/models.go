// Package quiethours evaluates per-user local-time windows during which
// notifications are suppressed.
package quiethours

import "errors"

// Repository errors.
var (
	ErrPreferenceNotFound = errors.New("quiet hours preference not found")
)

// Preference holds a user's quiet-hours window. Start and End are local
// times of day in HH:MM format, interpreted in Timezone.
type Preference struct {
	UserID   string
	Enabled  bool
	Start    string
	End      string
	Timezone string
}

// PreferenceUpdate is a partial update; nil fields are left untouched.
type PreferenceUpdate struct {
	Enabled  *bool
	Start    *string
	End      *string
	Timezone *string
}

// FieldError describes a single invalid field in an update.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
