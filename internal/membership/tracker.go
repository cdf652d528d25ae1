package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zonesentry/zonesentry/internal/geo"
)

// Tracker answers membership queries and is the only writer of transition
// events. Writes for the same (user, zone) pair must be serialized by the
// caller (the per-user worker affinity rule); the tracker itself takes no
// locks.
type Tracker struct {
	repo Repository
	now  func() time.Time
}

// NewTracker creates a new membership tracker.
func NewTracker(repo Repository) *Tracker {
	return &Tracker{repo: repo, now: time.Now}
}

// CurrentlyInside reports whether the user's most recent recorded
// transition for the zone was an enter. A pair with no recorded event is
// outside.
func (t *Tracker) CurrentlyInside(ctx context.Context, userID, zoneID string) (bool, error) {
	event, err := t.repo.LatestForPair(ctx, userID, zoneID)
	if err != nil {
		if errors.Is(err, ErrNoTransition) {
			return false, nil
		}
		return false, fmt.Errorf("latest transition for %s/%s: %w", userID, zoneID, err)
	}
	return event.Kind == KindEnter, nil
}

// RecordTransitionIfChanged appends an enter or exit event when the newly
// computed containment differs from the state implied by the latest prior
// event. Returns nil with no side effect when the state is unchanged,
// which makes replays of already-processed samples idempotent.
func (t *Tracker) RecordTransitionIfChanged(ctx context.Context, userID, zoneID string, loc geo.Point, capturedAt time.Time, inside bool) (*TransitionEvent, error) {
	current, err := t.CurrentlyInside(ctx, userID, zoneID)
	if err != nil {
		return nil, err
	}
	if current == inside {
		return nil, nil
	}

	kind := KindExit
	if inside {
		kind = KindEnter
	}

	event := &TransitionEvent{
		ID:         "zte_" + uuid.New().String()[:22],
		UserID:     userID,
		ZoneID:     zoneID,
		Kind:       kind,
		Location:   loc,
		CapturedAt: capturedAt,
		CreatedAt:  t.now(),
	}

	if err := t.repo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("append transition for %s/%s: %w", userID, zoneID, err)
	}

	return event, nil
}
