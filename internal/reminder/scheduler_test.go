package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonesentry/zonesentry/internal/alert"
	"github.com/zonesentry/zonesentry/internal/geo"
	"github.com/zonesentry/zonesentry/internal/location"
	"github.com/zonesentry/zonesentry/internal/notifier"
	"github.com/zonesentry/zonesentry/internal/quiethours"
	"github.com/zonesentry/zonesentry/internal/zone"
)

type schedulerFixture struct {
	scheduler *Scheduler
	alerts    *alert.InMemoryRepository
	directory *zone.InMemoryDirectory
	locations *location.InMemoryRepository
	quietRepo *quiethours.InMemoryRepository
	recorder  *notifier.Recorder
	now       time.Time
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	f := &schedulerFixture{
		alerts:    alert.NewInMemoryRepository(),
		directory: zone.NewInMemoryDirectory(),
		locations: location.NewInMemoryRepository(),
		quietRepo: quiethours.NewInMemoryRepository(),
		recorder:  notifier.NewRecorder(),
		now:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	f.scheduler = NewScheduler(SchedulerConfig{
		Alerts:    f.alerts,
		Directory: f.directory,
		Locations: f.locations,
		Quiet:     quiethours.NewService(f.quietRepo, zerolog.Nop()),
		Notifier:  f.recorder,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return f.now },
	})

	f.directory.AddSafeZone(zone.SafeZone{
		ID:      "sz_home",
		OwnerID: "usr_walker",
		Name:    "Home",
		Circle:  &zone.Circle{Center: geo.Point{Lat: 52.37, Lon: 4.89}, RadiusM: 150},
		Active:  true,
	},
		zone.WatchAssignment{SafeZoneID: "sz_home", WatcherUserID: "usr_guardian", Active: true, NotifyOnExit: true},
		zone.WatchAssignment{SafeZoneID: "sz_home", WatcherUserID: "usr_entry_only", Active: true, NotifyOnEntry: true},
	)

	return f
}

func (f *schedulerFixture) seedAlert(t *testing.T, firstAt time.Time) *alert.PendingAlert {
	t.Helper()
	a := &alert.PendingAlert{
		ID:               "alr_test",
		UserID:           "usr_walker",
		ZoneID:           "sz_home",
		EventID:          "zte_test",
		FirstAlertSentAt: firstAt,
	}
	require.NoError(t, f.alerts.Create(context.Background(), a))
	return a
}

func (f *schedulerFixture) recordLocation(t *testing.T, lat, lon float64) {
	t.Helper()
	require.NoError(t, f.locations.Record(context.Background(), &location.Sample{
		UserID:     "usr_walker",
		Lat:        lat,
		Lon:        lon,
		CapturedAt: f.now,
	}))
}

func TestSchedulerStillOutsideSendsReminder(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.seedAlert(t, f.now.Add(-20*time.Minute))
	f.recordLocation(t, 52.40, 4.89)

	failed, err := f.scheduler.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, failed)

	calls := f.recorder.CallsFor("usr_guardian")
	require.Len(t, calls, 1)
	assert.Equal(t, notifier.KindSafeZoneReminder, calls[0].Kind)
	assert.Equal(t, 1, calls[0].Payload.ReminderNumber)
	assert.Empty(t, f.recorder.CallsFor("usr_entry_only"))

	a, err := f.alerts.Get(ctx, "alr_test")
	require.NoError(t, err)
	assert.Equal(t, 1, a.ReminderCount)
	require.NotNil(t, a.LastReminderSentAt)
	assert.Equal(t, f.now, *a.LastReminderSentAt)
	assert.False(t, a.Confirmed)
}

func TestSchedulerBackInsideResolvesAlert(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.seedAlert(t, f.now.Add(-20*time.Minute))
	f.recordLocation(t, 52.37, 4.89)

	failed, err := f.scheduler.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, failed)
	assert.Empty(t, f.recorder.Calls())

	a, err := f.alerts.Get(ctx, "alr_test")
	require.NoError(t, err)
	assert.True(t, a.Confirmed)
	require.NotNil(t, a.ConfirmedBy)
	assert.Equal(t, "usr_walker", *a.ConfirmedBy)
}

func TestSchedulerRespectsSpacing(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.seedAlert(t, f.now.Add(-20*time.Minute))
	f.recordLocation(t, 52.40, 4.89)

	_, err := f.scheduler.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, f.recorder.CallsFor("usr_guardian"), 1)

	// Five minutes later the alert is not due yet.
	f.now = f.now.Add(5 * time.Minute)
	_, err = f.scheduler.Tick(ctx)
	require.NoError(t, err)
	assert.Len(t, f.recorder.CallsFor("usr_guardian"), 1)

	// At the spacing boundary it fires again.
	f.now = f.now.Add(10 * time.Minute)
	_, err = f.scheduler.Tick(ctx)
	require.NoError(t, err)
	assert.Len(t, f.recorder.CallsFor("usr_guardian"), 2)
}

func TestSchedulerReminderCap(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.seedAlert(t, f.now.Add(-20*time.Minute))
	f.recordLocation(t, 52.40, 4.89)

	for i := 0; i < 10; i++ {
		_, err := f.scheduler.Tick(ctx)
		require.NoError(t, err)
		f.now = f.now.Add(time.Hour)
	}

	// Four rounds went out, then the alert went silent without being
	// confirmed.
	assert.Len(t, f.recorder.CallsFor("usr_guardian"), 4)

	a, err := f.alerts.Get(ctx, "alr_test")
	require.NoError(t, err)
	assert.Equal(t, 4, a.ReminderCount)
	assert.False(t, a.Confirmed)
}

func TestSchedulerQuietRoundStillCounts(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.seedAlert(t, f.now.Add(-20*time.Minute))
	f.recordLocation(t, 52.40, 4.89)

	require.NoError(t, f.quietRepo.Upsert(ctx, &quiethours.Preference{
		UserID:   "usr_guardian",
		Enabled:  true,
		Start:    "11:00",
		End:      "13:00",
		Timezone: "UTC",
	}))

	failed, err := f.scheduler.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, failed)
	assert.Empty(t, f.recorder.Calls())

	// The suppressed round still consumed one of the capped reminders.
	a, err := f.alerts.Get(ctx, "alr_test")
	require.NoError(t, err)
	assert.Equal(t, 1, a.ReminderCount)
}

func TestSchedulerMissingLocationSkips(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.seedAlert(t, f.now.Add(-20*time.Minute))

	failed, err := f.scheduler.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, failed)
	assert.Empty(t, f.recorder.Calls())

	// Untouched; it will be retried on the next tick.
	a, err := f.alerts.Get(ctx, "alr_test")
	require.NoError(t, err)
	assert.Zero(t, a.ReminderCount)
	assert.False(t, a.Confirmed)
}

func TestSchedulerMissingZoneConfirmsAlert(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.alerts.Create(ctx, &alert.PendingAlert{
		ID:               "alr_orphan",
		UserID:           "usr_walker",
		ZoneID:           "sz_gone",
		EventID:          "zte_x",
		FirstAlertSentAt: f.now.Add(-time.Hour),
	}))
	f.recordLocation(t, 52.40, 4.89)

	failed, err := f.scheduler.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, failed)

	a, err := f.alerts.Get(ctx, "alr_orphan")
	require.NoError(t, err)
	assert.True(t, a.Confirmed)
	require.NotNil(t, a.ConfirmedBy)
	assert.Equal(t, "system", *a.ConfirmedBy)
}

func TestSchedulerIsolatesPerAlertFailures(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.directory.AddSafeZone(zone.SafeZone{
		ID:      "sz_school",
		OwnerID: "usr_other",
		Name:    "School",
		Circle:  &zone.Circle{Center: geo.Point{Lat: 48.85, Lon: 2.35}, RadiusM: 100},
		Active:  true,
	}, zone.WatchAssignment{SafeZoneID: "sz_school", WatcherUserID: "usr_parent", Active: true, NotifyOnExit: true})

	// First alert's subject has no location on record for lookups that
	// error; simulate a hard failure with a user the location repo rejects.
	require.NoError(t, f.alerts.Create(ctx, &alert.PendingAlert{
		ID:               "alr_broken",
		UserID:           "usr_other",
		ZoneID:           "sz_school",
		EventID:          "zte_a",
		FirstAlertSentAt: f.now.Add(-time.Hour),
	}))
	f.seedAlert(t, f.now.Add(-time.Hour))
	f.recordLocation(t, 52.40, 4.89)

	broken := &erroringLocations{inner: f.locations, failFor: "usr_other"}
	f.scheduler.locations = broken

	failed, err := f.scheduler.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	// The healthy alert still got its reminder.
	assert.Len(t, f.recorder.CallsFor("usr_guardian"), 1)
}

type erroringLocations struct {
	inner   *location.InMemoryRepository
	failFor string
}

func (r *erroringLocations) LatestForUser(ctx context.Context, userID string) (*location.Sample, error) {
	if userID == r.failFor {
		return nil, errors.New("connection refused")
	}
	return r.inner.LatestForUser(ctx, userID)
}

func (r *erroringLocations) Record(ctx context.Context, sample *location.Sample) error {
	return r.inner.Record(ctx, sample)
}
