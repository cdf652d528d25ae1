// Package membership derives "is the user currently inside zone Z" from an
// append-only log of transition events. There is no separate mutable
// membership flag; the most recent event for a (user, zone) pair is the
// sole source of truth.
package membership

import (
	"errors"
	"time"

	"github.com/zonesentry/zonesentry/internal/geo"
)

// Repository errors.
var (
	ErrNoTransition = errors.New("no transition recorded for pair")
)

// Kind is the direction of a boundary crossing.
type Kind string

const (
	KindEnter Kind = "enter"
	KindExit  Kind = "exit"
)

// TransitionEvent is one append-only boundary crossing record.
type TransitionEvent struct {
	ID         string
	UserID     string
	ZoneID     string
	Kind       Kind
	Location   geo.Point
	CapturedAt time.Time
	CreatedAt  time.Time
}
