package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Service provides the external confirmation entry point for pending
// alerts. The exit-triggered creation path lives in the detection engine;
// auto-resolution lives in the reminder scheduler.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new alert service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// ConfirmAlert marks a pending alert as confirmed by the given user.
// Confirming an already-confirmed alert is a no-op success. Returns
// ErrAlertNotFound for an unknown id.
func (s *Service) ConfirmAlert(ctx context.Context, alertID, confirmingUserID string) error {
	a, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return err
	}
	if a.Confirmed {
		return nil
	}

	if err := s.repo.Confirm(ctx, alertID, s.now(), confirmingUserID); err != nil {
		return fmt.Errorf("confirm alert %s: %w", alertID, err)
	}

	s.logger.Info().
		Str("alert_id", alertID).
		Str("confirmed_by", confirmingUserID).
		Str("user_id", a.UserID).
		Str("zone_id", a.ZoneID).
		Msg("pending alert confirmed")

	return nil
}
