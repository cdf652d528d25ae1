package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonesentry/zonesentry/internal/alert"
	"github.com/zonesentry/zonesentry/internal/detection"
	"github.com/zonesentry/zonesentry/internal/location"
	"github.com/zonesentry/zonesentry/internal/membership"
	"github.com/zonesentry/zonesentry/internal/notifier"
	"github.com/zonesentry/zonesentry/internal/quiethours"
	"github.com/zonesentry/zonesentry/internal/throttle"
	"github.com/zonesentry/zonesentry/internal/zone"
)

func newBatchHandler(t *testing.T, locations location.Repository) *PubSubHandler {
	t.Helper()

	engine, err := detection.NewEngine(detection.EngineConfig{
		Directory: zone.NewInMemoryDirectory(),
		Tracker:   membership.NewTracker(membership.NewInMemoryRepository()),
		Throttles: throttle.NewStore(throttle.StoreConfig{
			Repo:   throttle.NewInMemoryRepository(),
			Logger: zerolog.Nop(),
		}),
		Quiet:    quiethours.NewService(quiethours.NewInMemoryRepository(), zerolog.Nop()),
		Alerts:   alert.NewInMemoryRepository(),
		Notifier: notifier.NewRecorder(),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	return &PubSubHandler{
		engine:    engine,
		locations: locations,
		config:    DefaultConfig(),
		logger:    zerolog.Nop(),
	}
}

func TestProcessBatchRecordsNewestSample(t *testing.T) {
	locations := location.NewInMemoryRepository()
	h := newBatchHandler(t, locations)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	accuracy := 12.5

	// Samples arrive out of order; the newest fix carries the optional
	// fields and must be the one stored for the reminder scheduler.
	batch := BatchMessage{
		JobType: "location_batch",
		UserID:  "usr_walker",
		Samples: []SampleMessage{
			{Lat: 52.38, Lon: 4.90, CapturedAt: base.Add(5 * time.Minute), AccuracyM: &accuracy, Source: "gps", Foreground: true},
			{Lat: 52.37, Lon: 4.89, CapturedAt: base},
		},
	}

	require.NoError(t, h.processBatch(context.Background(), batch))

	latest, err := locations.LatestForUser(context.Background(), "usr_walker")
	require.NoError(t, err)
	assert.Equal(t, 52.38, latest.Lat)
	assert.Equal(t, base.Add(5*time.Minute), latest.CapturedAt)
	assert.Equal(t, location.SourceGPS, latest.Source)
	assert.True(t, latest.Foreground)
	require.NotNil(t, latest.AccuracyM)
	assert.Equal(t, accuracy, *latest.AccuracyM)
}
