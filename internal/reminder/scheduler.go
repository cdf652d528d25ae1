// Package reminder follows up on unconfirmed safe-zone exit alerts. A
// periodic tick re-checks each due alert against the subject's latest known
// location: back inside resolves the alert, still outside sends the next
// reminder round to the zone's exit watchers.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zonesentry/zonesentry/internal/alert"
	"github.com/zonesentry/zonesentry/internal/geo"
	"github.com/zonesentry/zonesentry/internal/location"
	"github.com/zonesentry/zonesentry/internal/notifier"
	"github.com/zonesentry/zonesentry/internal/quiethours"
	"github.com/zonesentry/zonesentry/internal/zone"
)

// Defaults for SchedulerConfig.
const (
	// DefaultReminderSpacing is the minimum gap between reminder rounds for
	// one alert.
	DefaultReminderSpacing = 15 * time.Minute

	// DefaultMaxReminders caps the reminder rounds per alert. An alert that
	// exhausts the cap stays unconfirmed but goes silent.
	DefaultMaxReminders = 4
)

// Scheduler drives reminder rounds for unconfirmed exit alerts.
type Scheduler struct {
	alerts    alert.Repository
	directory zone.Directory
	locations location.Repository
	quiet     *quiethours.Service
	notifier  notifier.Notifier

	spacing      time.Duration
	maxReminders int
	now          func() time.Time

	logger  zerolog.Logger
	metrics *Metrics
}

// SchedulerConfig holds configuration for creating a Scheduler.
type SchedulerConfig struct {
	Alerts    alert.Repository
	Directory zone.Directory
	Locations location.Repository
	Quiet     *quiethours.Service
	Notifier  notifier.Notifier
	Logger    zerolog.Logger

	// Spacing is the minimum gap between reminder rounds.
	// Default: DefaultReminderSpacing
	Spacing time.Duration

	// MaxReminders caps the rounds per alert.
	// Default: DefaultMaxReminders
	MaxReminders int

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewScheduler creates a new reminder scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Spacing == 0 {
		cfg.Spacing = DefaultReminderSpacing
	}
	if cfg.MaxReminders == 0 {
		cfg.MaxReminders = DefaultMaxReminders
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		alerts:       cfg.Alerts,
		directory:    cfg.Directory,
		locations:    cfg.Locations,
		quiet:        cfg.Quiet,
		notifier:     cfg.Notifier,
		spacing:      cfg.Spacing,
		maxReminders: cfg.MaxReminders,
		now:          cfg.Now,
		logger:       cfg.Logger,
		metrics:      &Metrics{},
	}
}

// Tick runs one reminder round over all due alerts. A failure on one alert
// is logged and does not stop the others; Tick returns the count of alerts
// it failed on.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.now()

	due, err := s.alerts.DueForReminder(ctx, now, s.spacing, s.maxReminders)
	if err != nil {
		return 0, fmt.Errorf("select due alerts: %w", err)
	}

	failed := 0
	for _, a := range due {
		if err := s.processAlert(ctx, a, now); err != nil {
			failed++
			s.logger.Error().Err(err).
				Str("alert_id", a.ID).
				Str("user_id", a.UserID).
				Str("zone_id", a.ZoneID).
				Msg("reminder processing failed")
		}
	}

	s.metrics.recordTick(len(due), failed)

	if len(due) > 0 {
		s.logger.Info().
			Int("due", len(due)).
			Int("failed", failed).
			Msg("reminder tick complete")
	}

	return failed, nil
}

func (s *Scheduler) processAlert(ctx context.Context, a *alert.PendingAlert, now time.Time) error {
	sz, watchers, err := s.directory.SafeZoneByID(ctx, a.ZoneID)
	if err != nil {
		if errors.Is(err, zone.ErrZoneNotFound) {
			// Zone deleted since the alert was raised; resolve it rather
			// than reminding about a zone nobody can see.
			s.logger.Warn().
				Str("alert_id", a.ID).
				Str("zone_id", a.ZoneID).
				Msg("alert references missing zone, confirming")
			return s.alerts.Confirm(ctx, a.ID, now, "system")
		}
		return fmt.Errorf("zone lookup: %w", err)
	}

	latest, err := s.locations.LatestForUser(ctx, a.UserID)
	if err != nil {
		if errors.Is(err, location.ErrNoLocation) {
			// No fix on record; leave the alert for the next tick.
			s.logger.Warn().
				Str("alert_id", a.ID).
				Str("user_id", a.UserID).
				Msg("no location on record, skipping reminder")
			return nil
		}
		return fmt.Errorf("latest location: %w", err)
	}

	p := geo.Point{Lat: latest.Lat, Lon: latest.Lon}
	if sz.Contains(p) {
		if err := s.alerts.Confirm(ctx, a.ID, now, a.UserID); err != nil {
			return fmt.Errorf("confirm alert: %w", err)
		}
		s.metrics.incResolved()
		s.logger.Info().
			Str("alert_id", a.ID).
			Str("user_id", a.UserID).
			Str("zone_id", a.ZoneID).
			Msg("subject back inside, alert resolved")
		return nil
	}

	s.sendRound(ctx, a, sz, watchers, now)

	// The round counts against the cap even when every watcher was quiet
	// or delivery failed; reminders are best-effort, the cap is not.
	if err := s.alerts.MarkReminded(ctx, a.ID, now); err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}

	return nil
}

func (s *Scheduler) sendRound(ctx context.Context, a *alert.PendingAlert, sz *zone.SafeZone, watchers []zone.WatchAssignment, now time.Time) {
	payload := notifier.Payload{
		ZoneID:         sz.ID,
		ZoneName:       sz.Name,
		SubjectUserID:  sz.OwnerID,
		ReminderNumber: a.ReminderCount + 1,
	}

	for _, w := range watchers {
		if !w.Active || !w.NotifyOnExit {
			continue
		}

		if s.quiet.IsQuiet(ctx, w.WatcherUserID, now.UTC()) {
			s.metrics.incSuppressed()
			continue
		}

		if err := s.notifier.Send(ctx, w.WatcherUserID, notifier.KindSafeZoneReminder, payload); err != nil {
			s.logger.Warn().Err(err).
				Str("watcher_id", w.WatcherUserID).
				Str("alert_id", a.ID).
				Msg("reminder dispatch failed")
			s.metrics.incFailures()
			continue
		}

		s.metrics.incSent()
	}
}

// Metrics tracks scheduler counters for the ops endpoint.
type Metrics struct {
	mu sync.Mutex

	ticks          int64
	alertsDue      int64
	alertsFailed   int64
	alertsResolved int64
	remindersSent  int64
	suppressed     int64
	sendFailures   int64
	lastTickAt     time.Time
}

func (m *Metrics) recordTick(due, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
	m.alertsDue += int64(due)
	m.alertsFailed += int64(failed)
	m.lastTickAt = time.Now()
}

func (m *Metrics) incResolved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertsResolved++
}

func (m *Metrics) incSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remindersSent++
}

func (m *Metrics) incSuppressed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed++
}

func (m *Metrics) incFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendFailures++
}

// MetricsSnapshot returns a copy of the current counters.
func (s *Scheduler) MetricsSnapshot() map[string]interface{} {
	s.metrics.mu.Lock()
	defer s.metrics.mu.Unlock()

	snapshot := map[string]interface{}{
		"ticks":           s.metrics.ticks,
		"alerts_due":      s.metrics.alertsDue,
		"alerts_failed":   s.metrics.alertsFailed,
		"alerts_resolved": s.metrics.alertsResolved,
		"reminders_sent":  s.metrics.remindersSent,
		"suppressed":      s.metrics.suppressed,
		"send_failures":   s.metrics.sendFailures,
	}
	if !s.metrics.lastTickAt.IsZero() {
		snapshot["last_tick_at"] = s.metrics.lastTickAt.UTC().Format(time.RFC3339)
	}
	return snapshot
}
