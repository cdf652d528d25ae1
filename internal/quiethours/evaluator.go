package quiethours

import (
	"strconv"
	"strings"
	"time"
)

// IsQuietNow reports whether nowUTC falls inside the preference's quiet
// window. A disabled preference is never quiet. When Start > End the window
// wraps midnight (22:00-07:00 is quiet at 23:30 and 03:00); otherwise it is
// a same-day range, inclusive at both ends.
//
// A preference that fails to parse (bad timezone or time-of-day) is treated
// as not quiet; UpdatePreference validates inputs so this only happens on
// data written outside the service.
func IsQuietNow(pref Preference, nowUTC time.Time) bool {
	if !pref.Enabled {
		return false
	}

	loc, err := time.LoadLocation(pref.Timezone)
	if err != nil {
		return false
	}

	start, ok := minutesOfDay(pref.Start)
	if !ok {
		return false
	}
	end, ok := minutesOfDay(pref.End)
	if !ok {
		return false
	}

	local := nowUTC.In(loc)
	cur := local.Hour()*60 + local.Minute()

	if start <= end {
		return cur >= start && cur <= end
	}
	// Window wraps midnight.
	return cur >= start || cur <= end
}

// NextAllowedInstant returns when the current quiet window ends, or nil if
// the preference is not currently quiet. The result is the next occurrence
// of pref.End in the preference's timezone, rolling to the next day when
// that time of day has already passed.
func NextAllowedInstant(pref Preference, nowUTC time.Time) *time.Time {
	if !IsQuietNow(pref, nowUTC) {
		return nil
	}

	loc, err := time.LoadLocation(pref.Timezone)
	if err != nil {
		return nil
	}
	end, ok := minutesOfDay(pref.End)
	if !ok {
		return nil
	}

	local := nowUTC.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), end/60, end%60, 0, 0, loc)
	if candidate.Before(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	utc := candidate.UTC()
	return &utc
}

// minutesOfDay parses an HH:MM string into minutes since midnight.
func minutesOfDay(hhmm string) (int, bool) {
	h, m, ok := strings.Cut(hhmm, ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
