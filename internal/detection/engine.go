// Package detection implements the location-batch processing engine: it
// matches samples against danger and safe zones, records membership
// transitions, and decides which transitions are worth a notification.
package detection

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zonesentry/zonesentry/internal/alert"
	"github.com/zonesentry/zonesentry/internal/geo"
	"github.com/zonesentry/zonesentry/internal/location"
	"github.com/zonesentry/zonesentry/internal/membership"
	"github.com/zonesentry/zonesentry/internal/notifier"
	"github.com/zonesentry/zonesentry/internal/quiethours"
	"github.com/zonesentry/zonesentry/internal/throttle"
	"github.com/zonesentry/zonesentry/internal/zone"
)

const meterName = "github.com/zonesentry/zonesentry/internal/detection"

// Defaults for EngineConfig.
const (
	// DefaultSearchRadiusM is the coarse danger-zone candidate radius.
	DefaultSearchRadiusM = 1000

	// DefaultDangerAlertTTL is the re-alert suppression window for a
	// (danger zone, user) pair.
	DefaultDangerAlertTTL = 12 * time.Hour
)

// Engine processes ordered location batches for one user at a time.
//
// Batches for the same user must not run concurrently; the queue worker
// enforces this with per-user ordering keys. Batches for different users
// are independent.
type Engine struct {
	directory zone.Directory
	tracker   *membership.Tracker
	throttles *throttle.Store
	quiet     *quiethours.Service
	alerts    alert.Repository
	notifier  notifier.Notifier

	pick func(n int) int
	now  func() time.Time

	searchRadiusM  float64
	dangerAlertTTL time.Duration

	logger  zerolog.Logger
	metrics *Metrics

	samplesTotal       metric.Int64Counter
	notificationsTotal metric.Int64Counter
	transitionsTotal   metric.Int64Counter
}

// EngineConfig holds configuration for creating an Engine.
type EngineConfig struct {
	Directory zone.Directory
	Tracker   *membership.Tracker
	Throttles *throttle.Store
	Quiet     *quiethours.Service
	Alerts    alert.Repository
	Notifier  notifier.Notifier
	Logger    zerolog.Logger

	// Pick selects an index in [0, n) when several danger zones contain a
	// sample; injectable for deterministic tests. Defaults to rand.Intn.
	Pick func(n int) int

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time

	// SearchRadiusM is the coarse danger-zone candidate radius.
	// Default: DefaultSearchRadiusM
	SearchRadiusM float64

	// DangerAlertTTL is the danger-zone throttle TTL.
	// Default: DefaultDangerAlertTTL
	DangerAlertTTL time.Duration
}

// NewEngine creates a new detection engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Pick == nil {
		cfg.Pick = rand.Intn
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SearchRadiusM == 0 {
		cfg.SearchRadiusM = DefaultSearchRadiusM
	}
	if cfg.DangerAlertTTL == 0 {
		cfg.DangerAlertTTL = DefaultDangerAlertTTL
	}

	meter := otel.Meter(meterName)

	samplesTotal, err := meter.Int64Counter(
		"detection.samples.total",
		metric.WithDescription("Total number of location samples processed"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, err
	}

	notificationsTotal, err := meter.Int64Counter(
		"detection.notifications.total",
		metric.WithDescription("Total number of notification dispatch attempts by kind and outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	transitionsTotal, err := meter.Int64Counter(
		"detection.transitions.total",
		metric.WithDescription("Total number of zone transition events recorded"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &Engine{
		directory:          cfg.Directory,
		tracker:            cfg.Tracker,
		throttles:          cfg.Throttles,
		quiet:              cfg.Quiet,
		alerts:             cfg.Alerts,
		notifier:           cfg.Notifier,
		pick:               cfg.Pick,
		now:                cfg.Now,
		searchRadiusM:      cfg.SearchRadiusM,
		dangerAlertTTL:     cfg.DangerAlertTTL,
		logger:             cfg.Logger,
		metrics:            &Metrics{},
		samplesTotal:       samplesTotal,
		notificationsTotal: notificationsTotal,
		transitionsTotal:   transitionsTotal,
	}, nil
}

// ProcessBatch processes the user's samples in the order given. The caller
// sorts by captured_at before dispatch. The first unexpected error aborts
// the remaining samples and propagates to the job-retry layer; transitions
// already recorded stand.
func (e *Engine) ProcessBatch(ctx context.Context, userID string, samples []location.Sample) error {
	start := e.now()

	for i := range samples {
		if err := e.processSample(ctx, userID, &samples[i]); err != nil {
			e.logger.Error().Err(err).
				Str("user_id", userID).
				Int("sample_index", i).
				Int("batch_size", len(samples)).
				Msg("batch processing aborted")
			return fmt.Errorf("process sample %d of %d: %w", i, len(samples), err)
		}
		e.samplesTotal.Add(ctx, 1)
	}

	e.metrics.recordBatch(len(samples))

	e.logger.Debug().
		Str("user_id", userID).
		Int("samples", len(samples)).
		Dur("duration", e.now().Sub(start)).
		Msg("batch processed")

	return nil
}

func (e *Engine) processSample(ctx context.Context, userID string, s *location.Sample) error {
	p := geo.Point{Lat: s.Lat, Lon: s.Lon}

	if err := e.dangerPass(ctx, userID, p); err != nil {
		return err
	}
	return e.safePass(ctx, userID, p, s.CapturedAt)
}

// dangerPass alerts the user when a sample lands inside an active danger
// zone. Danger zones use presence-based re-alerting guarded solely by the
// throttle key; there is no enter/exit concept.
func (e *Engine) dangerPass(ctx context.Context, userID string, p geo.Point) error {
	zones, err := e.directory.ActiveDangerZonesNear(ctx, p, e.searchRadiusM)
	if err != nil {
		return fmt.Errorf("danger zones near sample: %w", err)
	}

	var candidates []zone.DangerZone
	for _, z := range zones {
		if geo.CircleContains(z.Center, z.RadiusM, p) {
			candidates = append(candidates, z)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// One zone per sample, picked at random, to avoid notification storms
	// where zones overlap. Candidates are ordered by ID first so the picked
	// index has a stable meaning regardless of directory iteration order.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})
	z := candidates[e.pick(len(candidates))]

	muted, err := e.directory.IsZoneMuted(ctx, userID, z.ID)
	if err != nil {
		return fmt.Errorf("zone mute lookup: %w", err)
	}
	if muted {
		e.logger.Debug().Str("user_id", userID).Str("zone_id", z.ID).Msg("danger zone muted, skipping")
		return nil
	}

	key := throttle.DangerKey(z.ID, userID)
	if e.throttles.IsThrottled(ctx, key) {
		e.metrics.incSuppressed()
		return nil
	}

	payload := notifier.Payload{
		ZoneID:    z.ID,
		Severity:  string(z.Severity),
		DistanceM: geo.Distance(z.Center, p),
	}
	if err := e.notifier.Send(ctx, userID, notifier.KindDangerAlert, payload); err != nil {
		// Delivery failure is non-fatal; the throttle below still arms, so
		// a failed delivery suppresses re-alerts for the full TTL.
		e.logger.Warn().Err(err).
			Str("user_id", userID).
			Str("zone_id", z.ID).
			Msg("danger alert dispatch failed")
		e.metrics.incNotifierFailures()
		e.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(notifier.KindDangerAlert)),
			attribute.String("outcome", "error"),
		))
	} else {
		e.metrics.incDangerAlerts()
		e.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(notifier.KindDangerAlert)),
			attribute.String("outcome", "sent"),
		))
	}

	// The throttle is the sole re-alert guard and arms on every dispatch
	// attempt. A write failure here must surface so the batch is retried.
	if err := e.throttles.Set(ctx, key, e.dangerAlertTTL, string(z.Severity)); err != nil {
		return err
	}

	return nil
}

// safePass records membership transitions for every safe zone the user is
// the subject of and notifies the zone's watchers on change.
func (e *Engine) safePass(ctx context.Context, userID string, p geo.Point, capturedAt time.Time) error {
	zones, err := e.directory.AssignedSafeZonesFor(ctx, userID)
	if err != nil {
		return fmt.Errorf("assigned safe zones: %w", err)
	}

	for _, sz := range zones {
		if !sz.Zone.Active {
			continue
		}

		inside := sz.Zone.Contains(p)
		event, err := e.tracker.RecordTransitionIfChanged(ctx, userID, sz.Zone.ID, p, capturedAt, inside)
		if err != nil {
			return err
		}
		if event == nil {
			continue
		}

		e.metrics.incTransitions()
		e.transitionsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(event.Kind)),
		))
		e.logger.Info().
			Str("user_id", userID).
			Str("zone_id", sz.Zone.ID).
			Str("kind", string(event.Kind)).
			Msg("zone transition recorded")

		switch event.Kind {
		case membership.KindEnter:
			e.notifyWatchers(ctx, sz, notifier.KindSafeZoneEntry, func(w zone.WatchAssignment) bool {
				return w.NotifyOnEntry
			})
		case membership.KindExit:
			e.notifyWatchers(ctx, sz, notifier.KindSafeZoneExit, func(w zone.WatchAssignment) bool {
				return w.NotifyOnExit
			})
			if err := e.createPendingAlert(ctx, userID, sz.Zone.ID, event.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

// notifyWatchers dispatches one notification per eligible watcher. Quiet
// hours are evaluated per watcher immediately before each attempt; a quiet
// watcher's notification is dropped, not queued. Dispatch failures are
// logged and do not fail the batch.
func (e *Engine) notifyWatchers(ctx context.Context, sz zone.SubjectZone, kind notifier.Kind, eligible func(zone.WatchAssignment) bool) {
	payload := notifier.Payload{
		ZoneID:        sz.Zone.ID,
		ZoneName:      sz.Zone.Name,
		SubjectUserID: sz.Zone.OwnerID,
	}

	for _, w := range sz.Watchers {
		if !w.Active || !eligible(w) {
			continue
		}

		if e.quiet.IsQuiet(ctx, w.WatcherUserID, e.now().UTC()) {
			e.metrics.incSuppressed()
			e.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("kind", string(kind)),
				attribute.String("outcome", "quiet_hours"),
			))
			continue
		}

		if err := e.notifier.Send(ctx, w.WatcherUserID, kind, payload); err != nil {
			e.logger.Warn().Err(err).
				Str("watcher_id", w.WatcherUserID).
				Str("zone_id", sz.Zone.ID).
				Str("kind", string(kind)).
				Msg("watcher notification failed")
			e.metrics.incNotifierFailures()
			e.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("kind", string(kind)),
				attribute.String("outcome", "error"),
			))
			continue
		}

		e.metrics.incWatcherNotifications()
		e.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("outcome", "sent"),
		))
	}
}

// createPendingAlert records the unconfirmed exit alert for the reminder
// scheduler, at most one per (user, zone) pair.
func (e *Engine) createPendingAlert(ctx context.Context, userID, zoneID, eventID string) error {
	if _, err := e.alerts.UnconfirmedForPair(ctx, userID, zoneID); err == nil {
		return nil
	} else if !errors.Is(err, alert.ErrAlertNotFound) {
		return fmt.Errorf("unconfirmed alert lookup: %w", err)
	}

	pending := &alert.PendingAlert{
		ID:               "alr_" + uuid.New().String()[:22],
		UserID:           userID,
		ZoneID:           zoneID,
		EventID:          eventID,
		FirstAlertSentAt: e.now(),
	}
	if err := e.alerts.Create(ctx, pending); err != nil {
		// A concurrent writer winning the race is fine; the invariant holds.
		if errors.Is(err, alert.ErrAlertExists) {
			return nil
		}
		return fmt.Errorf("create pending alert: %w", err)
	}

	e.metrics.incAlertsCreated()
	e.logger.Info().
		Str("alert_id", pending.ID).
		Str("user_id", userID).
		Str("zone_id", zoneID).
		Msg("pending safe zone alert created")

	return nil
}
