package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventBus publishes domain events for the surrounding system (Discord bot,
// PWA) to consume. Publication is fire-and-forget from the engine's point of
// view; a failed publish is logged, never surfaced to the caller.
type EventBus interface {
	Publish(topic string, messages ...*message.Message) error
	Close() error
}

// natsEventBus implements EventBus over NATS JetStream via watermill.
type natsEventBus struct {
	publisher message.Publisher
	natsConn  *nc.Conn
	logger    *slog.Logger
}

// NewEventBus connects to NATS and returns a JetStream-backed EventBus.
func NewEventBus(ctx context.Context, natsURL string, logger *slog.Logger) (EventBus, error) {
	natsConn, err := nc.Connect(natsURL, nc.RetryOnFailedConnect(true))
	if err != nil {
		logger.Error("Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		logger.Error("Failed to initialize JetStream", slog.Any("error", err))
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	if err := initializeStreams(ctx, js, logger); err != nil {
		natsConn.Close()
		return nil, err
	}

	watermillLogger := watermill.NewSlogLogger(logger)
	marshaller := &wmnats.NATSMarshaler{}

	publisher, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL:       natsURL,
			Marshaler: marshaller,
			NatsOptions: []nc.Option{
				nc.RetryOnFailedConnect(true),
			},
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		logger.Error("Failed to create Watermill publisher", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	return &natsEventBus{
		publisher: publisher,
		natsConn:  natsConn,
		logger:    logger,
	}, nil
}

func (b *natsEventBus) Publish(topic string, messages ...*message.Message) error {
	if err := b.publisher.Publish(topic, messages...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (b *natsEventBus) Close() error {
	if err := b.publisher.Close(); err != nil {
		b.logger.Error("Failed to close publisher", slog.Any("error", err))
	}
	b.natsConn.Close()
	return nil
}

// initializeStreams creates the allocation stream during startup so publishes
// never race stream creation.
func initializeStreams(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     "allocation",
		Subjects: []string{"allocation.>"},
	})
	if err != nil {
		logger.Error("Failed to create allocation stream", slog.Any("error", err))
		return fmt.Errorf("failed to create allocation stream: %w", err)
	}
	logger.Info("JetStream streams initialized")
	return nil
}

// NewEventMessage marshals a payload into a watermill message with a fresh
// UUID.
func NewEventMessage(payload interface{}) (*message.Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return message.NewMessage(watermill.NewUUID(), payloadBytes), nil
}
