package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// envelope is the wire format published to the dispatch topic.
type envelope struct {
	RecipientID string  `json:"recipient_id"`
	Kind        Kind    `json:"kind"`
	Payload     Payload `json:"payload"`
}

// PubSubNotifier publishes notifications to a Pub/Sub topic consumed by the
// push-dispatch service.
type PubSubNotifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// PubSubNotifierConfig holds configuration for the Pub/Sub notifier.
type PubSubNotifierConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// NewPubSubNotifier creates a notifier publishing to the configured topic.
func NewPubSubNotifier(ctx context.Context, cfg PubSubNotifierConfig) (*PubSubNotifier, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubNotifier{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		topicName: cfg.TopicName,
		logger:    cfg.Logger,
	}, nil
}

// Send publishes the notification and waits for the server ack.
func (n *PubSubNotifier) Send(ctx context.Context, recipientID string, kind Kind, payload Payload) error {
	data, err := json.Marshal(envelope{
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	result := n.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind":         string(kind),
			"recipient_id": recipientID,
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	n.logger.Debug().
		Str("message_id", id).
		Str("recipient_id", recipientID).
		Str("kind", string(kind)).
		Msg("notification published")

	return nil
}

// Close releases the underlying Pub/Sub client.
func (n *PubSubNotifier) Close() error {
	return n.client.Close()
}

// Ensure PubSubNotifier implements Notifier interface.
var _ Notifier = (*PubSubNotifier)(nil)
