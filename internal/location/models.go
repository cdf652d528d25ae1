// Package location holds the GPS sample model produced by the ingestion
// layer and the latest-known-fix lookup used by the reminder scheduler.
package location

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrNoLocation = errors.New("no location recorded for user")
)

// Source identifies how a sample was obtained on the device.
type Source string

const (
	SourceGPS     Source = "gps"
	SourceNetwork Source = "network"
	SourcePassive Source = "passive"
	SourceFused   Source = "fused"
)

// Sample is one immutable GPS fix. CapturedAt carries the device clock;
// batches are ordered by it before processing.
type Sample struct {
	UserID       string
	Lat          float64
	Lon          float64
	AccuracyM    *float64
	SpeedMPS     *float64
	Heading      *float64
	CapturedAt   time.Time
	Source       Source
	Foreground   bool
	BatteryLevel *float64
}
