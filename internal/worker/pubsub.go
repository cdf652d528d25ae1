package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/zonesentry/zonesentry/internal/detection"
	"github.com/zonesentry/zonesentry/internal/location"
)

// PubSubHandler consumes location-batch messages for the worker. Messages
// carry a user's ordering key, so batches for one user arrive sequentially.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	engine           *detection.Engine
	locations        location.Repository
	config           Config
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Engine           *detection.Engine
	Locations        location.Repository
	Config           Config
	Logger           zerolog.Logger
}

// BatchMessage is one queued batch of location samples for a single user.
type BatchMessage struct {
	JobType string          `json:"job_type"`
	UserID  string          `json:"user_id"`
	Samples []SampleMessage `json:"samples"`
}

// SampleMessage is the wire form of one GPS fix.
type SampleMessage struct {
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	AccuracyM    *float64  `json:"accuracy_m,omitempty"`
	SpeedMPS     *float64  `json:"speed_mps,omitempty"`
	Heading      *float64  `json:"heading,omitempty"`
	BatteryLevel *float64  `json:"battery_level,omitempty"`
	Source       string    `json:"source,omitempty"`
	Foreground   bool      `json:"foreground,omitempty"`
	CapturedAt   time.Time `json:"captured_at"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Per-user ordering keys require serialized delivery per key; keep the
	// outstanding window modest so retries do not pile up.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		engine:           cfg.Engine,
		locations:        cfg.Locations,
		config:           cfg.Config,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var batch BatchMessage
	if err := json.Unmarshal(msg.Data, &batch); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	switch batch.JobType {
	case "location_batch":
		// Handled below.
	default:
		logger.Warn().Str("job_type", batch.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if batch.UserID == "" || len(batch.Samples) == 0 {
		logger.Warn().Msg("empty batch, discarding")
		msg.Ack()
		return
	}

	if err := h.processBatch(ctx, batch); err != nil {
		// Retries are exhausted at this point. Nacking would redeliver the
		// same batch and, with ordering keys, jam every later batch for
		// this user behind it, so the message is dropped instead.
		logger.Error().Err(err).
			Str("user_id", batch.UserID).
			Int("samples", len(batch.Samples)).
			Msg("batch failed after retries, dropping")
		msg.Ack()
		return
	}

	logger.Info().
		Str("user_id", batch.UserID).
		Int("samples", len(batch.Samples)).
		Dur("duration", time.Since(startTime)).
		Msg("batch completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) processBatch(ctx context.Context, batch BatchMessage) error {
	samples := make([]location.Sample, len(batch.Samples))
	for i, s := range batch.Samples {
		samples[i] = location.Sample{
			UserID:       batch.UserID,
			Lat:          s.Lat,
			Lon:          s.Lon,
			AccuracyM:    s.AccuracyM,
			SpeedMPS:     s.SpeedMPS,
			Heading:      s.Heading,
			BatteryLevel: s.BatteryLevel,
			Source:       location.Source(s.Source),
			Foreground:   s.Foreground,
			CapturedAt:   s.CapturedAt,
		}
	}

	// Devices upload out of order; the engine needs chronological samples
	// for transition tracking.
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].CapturedAt.Before(samples[j].CapturedAt)
	})

	// Keep the user's latest known fix current for the reminder scheduler,
	// even when detection fails.
	newest := samples[len(samples)-1]
	if err := h.locations.Record(ctx, &newest); err != nil {
		h.logger.Warn().Err(err).
			Str("user_id", batch.UserID).
			Msg("failed to record latest location")
	}

	operation := func() error {
		opCtx, cancel := context.WithTimeout(ctx, h.config.BatchTimeout)
		defer cancel()
		return h.engine.ProcessBatch(opCtx, batch.UserID, samples)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(h.config.RetryDelay), uint64(h.config.RetryAttempts)),
		ctx,
	)

	return backoff.Retry(operation, policy)
}
