package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log instead of dispatching them.
// Used for local development when no Pub/Sub project is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification and reports success.
func (n *LogNotifier) Send(_ context.Context, recipientID string, kind Kind, payload Payload) error {
	n.logger.Info().
		Str("recipient_id", recipientID).
		Str("kind", string(kind)).
		Str("zone_id", payload.ZoneID).
		Int("reminder_number", payload.ReminderNumber).
		Msg("notification (log only)")
	return nil
}

// Ensure LogNotifier implements Notifier interface.
var _ Notifier = (*LogNotifier)(nil)
