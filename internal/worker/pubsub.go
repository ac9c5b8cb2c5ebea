package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler feeds Pub/Sub messages to a Processor.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	// MaxOutstanding caps messages processed at once. Default: 10
	MaxOutstanding int
	Processor      *Processor
	Logger         zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is cancelled.
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

	err := h.processor.Process(ctx, msg.Data)
	switch {
	case err == nil:
		logger.Info().Dur("duration", time.Since(startTime)).Msg("job completed")
		msg.Ack()
	case errors.Is(err, ErrMalformedJob):
		// Redelivery cannot fix a bad payload.
		logger.Error().Err(err).Msg("dropping malformed message")
		msg.Ack()
	default:
		logger.Error().Err(err).Dur("duration", time.Since(startTime)).Msg("job failed")
		msg.Nack()
	}
}
