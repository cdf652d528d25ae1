package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds circuit breaker configuration for the resilient
// notifier.
type BreakerConfig struct {
	// Name identifies the circuit breaker for logging.
	Name string

	// MaxRequests is the maximum number of sends allowed in half-open state.
	// Default: 1
	MaxRequests uint32

	// Interval is the cyclic period for clearing internal counts when closed.
	// Default: 0 (disabled)
	Interval time.Duration

	// Timeout is the period of open state before switching to half-open.
	// Default: 60 seconds
	Timeout time.Duration

	// ReadyToTrip determines when to trip the circuit breaker.
	// If nil, trips at 5+ sends with a 50%+ failure rate.
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// DefaultBreakerConfig returns a sensible default configuration.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: defaultReadyToTrip,
	}
}

func defaultReadyToTrip(counts gobreaker.Counts) bool {
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && failureRatio >= 0.5
}

// Resilient wraps another Notifier with a circuit breaker so a dead
// dispatch transport fails fast instead of stalling batch processing.
// Failed sends are the caller's concern; the wrapper never retries.
type Resilient struct {
	inner   Notifier
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  zerolog.Logger
}

// NewResilient wraps inner with circuit breaker protection.
func NewResilient(inner Notifier, cfg BreakerConfig, logger zerolog.Logger) *Resilient {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = defaultReadyToTrip
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.ReadyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("notifier circuit breaker state changed")
		},
	})

	return &Resilient{
		inner:   inner,
		breaker: breaker,
		logger:  logger,
	}
}

// Send delivers through the circuit breaker. Returns ErrUnavailable without
// attempting delivery while the circuit is open.
func (r *Resilient) Send(ctx context.Context, recipientID string, kind Kind, payload Payload) error {
	_, err := r.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, r.inner.Send(ctx, recipientID, kind, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return err
	}
	return nil
}

// State returns the current circuit breaker state.
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}

// Ensure Resilient implements Notifier interface.
var _ Notifier = (*Resilient)(nil)
