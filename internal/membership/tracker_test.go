package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonesentry/zonesentry/internal/geo"
	"github.com/zonesentry/zonesentry/internal/membership"
)

func TestTracker_NoHistoryMeansOutside(t *testing.T) {
	tracker := membership.NewTracker(membership.NewInMemoryRepository())

	inside, err := tracker.CurrentlyInside(context.Background(), "u1", "z1")
	require.NoError(t, err)
	assert.False(t, inside)
}

func TestTracker_RecordTransitionIfChanged(t *testing.T) {
	repo := membership.NewInMemoryRepository()
	tracker := membership.NewTracker(repo)
	ctx := context.Background()
	loc := geo.Point{Lat: 52.37, Lon: 4.90}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// Outside -> outside: no event.
	ev, err := tracker.RecordTransitionIfChanged(ctx, "u1", "z1", loc, at, false)
	require.NoError(t, err)
	assert.Nil(t, ev)

	// Outside -> inside: enter event.
	ev, err = tracker.RecordTransitionIfChanged(ctx, "u1", "z1", loc, at.Add(time.Minute), true)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, membership.KindEnter, ev.Kind)
	assert.NotEmpty(t, ev.ID)

	inside, err := tracker.CurrentlyInside(ctx, "u1", "z1")
	require.NoError(t, err)
	assert.True(t, inside)

	// Inside -> inside: no event.
	ev, err = tracker.RecordTransitionIfChanged(ctx, "u1", "z1", loc, at.Add(2*time.Minute), true)
	require.NoError(t, err)
	assert.Nil(t, ev)

	// Inside -> outside: exit event.
	ev, err = tracker.RecordTransitionIfChanged(ctx, "u1", "z1", loc, at.Add(3*time.Minute), false)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, membership.KindExit, ev.Kind)
}

func TestTracker_KindsAlternate(t *testing.T) {
	repo := membership.NewInMemoryRepository()
	tracker := membership.NewTracker(repo)
	ctx := context.Background()
	loc := geo.Point{Lat: 1, Lon: 1}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// A noisy containment sequence still yields strictly alternating kinds.
	sequence := []bool{false, true, true, false, false, true, false, true, true}
	for i, inside := range sequence {
		_, err := tracker.RecordTransitionIfChanged(ctx, "u1", "z1", loc, at.Add(time.Duration(i)*time.Minute), inside)
		require.NoError(t, err)
	}

	events := repo.AllForPair("u1", "z1")
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.NotEqual(t, events[i-1].Kind, events[i].Kind,
			"events %d and %d have the same kind", i-1, i)
	}
}

func TestTracker_ReplayIsIdempotent(t *testing.T) {
	repo := membership.NewInMemoryRepository()
	tracker := membership.NewTracker(repo)
	ctx := context.Background()
	loc := geo.Point{Lat: 1, Lon: 1}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	batch := []bool{false, true, false}
	for i, inside := range batch {
		_, err := tracker.RecordTransitionIfChanged(ctx, "u1", "z1", loc, at.Add(time.Duration(i)*time.Minute), inside)
		require.NoError(t, err)
	}
	recorded := len(repo.AllForPair("u1", "z1"))

	// Replaying the final state produces no new events.
	for i := 0; i < 3; i++ {
		ev, err := tracker.RecordTransitionIfChanged(ctx, "u1", "z1", loc, at.Add(time.Hour), false)
		require.NoError(t, err)
		assert.Nil(t, ev)
	}
	assert.Len(t, repo.AllForPair("u1", "z1"), recorded)
}

func TestTracker_PairsAreIndependent(t *testing.T) {
	tracker := membership.NewTracker(membership.NewInMemoryRepository())
	ctx := context.Background()
	loc := geo.Point{}
	at := time.Now()

	_, err := tracker.RecordTransitionIfChanged(ctx, "u1", "z1", loc, at, true)
	require.NoError(t, err)

	inside, err := tracker.CurrentlyInside(ctx, "u1", "z2")
	require.NoError(t, err)
	assert.False(t, inside)

	inside, err = tracker.CurrentlyInside(ctx, "u2", "z1")
	require.NoError(t, err)
	assert.False(t, inside)
}
