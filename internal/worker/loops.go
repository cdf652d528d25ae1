package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zonesentry/zonesentry/internal/reminder"
	"github.com/zonesentry/zonesentry/internal/throttle"
)

// RunReminderLoop ticks the reminder scheduler until ctx is cancelled. It
// runs one tick immediately on start.
func RunReminderLoop(ctx context.Context, s *reminder.Scheduler, interval time.Duration, logger zerolog.Logger) {
	logger.Info().Dur("interval", interval).Msg("starting reminder loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func() {
		if _, err := s.Tick(ctx); err != nil {
			logger.Error().Err(err).Msg("reminder tick failed")
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("reminder loop stopped")
			return
		case <-ticker.C:
			tick()
		}
	}
}

// RunSweepLoop periodically removes expired throttle entries until ctx is
// cancelled.
func RunSweepLoop(ctx context.Context, store *throttle.Store, interval time.Duration, logger zerolog.Logger) {
	logger.Info().Dur("interval", interval).Msg("starting throttle sweep loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("throttle sweep loop stopped")
			return
		case <-ticker.C:
			removed, err := store.Sweep(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("throttle sweep failed")
				continue
			}
			if removed > 0 {
				logger.Debug().Int("removed", removed).Msg("throttle sweep complete")
			}
		}
	}
}
