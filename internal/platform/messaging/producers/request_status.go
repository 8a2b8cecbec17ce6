package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/peerfund-funding-orchestrator/internal/config"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// RequestStatusProducer publishes funding-status changes of a contract back
// to the request-for-funding service. It implements request.StatusUpdater.
type RequestStatusProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewRequestStatusProducer creates the producer and ensures its topic exists
func NewRequestStatusProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*RequestStatusProducer, error) {
	if cfg.RequestStatusTopic == "" {
		return nil, fmt.Errorf("kafka request status topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for request status producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.RequestStatusTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure request status topic %s exists: %w", cfg.RequestStatusTopic, err)
	}

	// Synchronous writes: a failed status update must surface to the funding
	// caller, not vanish into an async completion callback
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.RequestStatusTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &RequestStatusProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.RequestStatusTopic,
	}, nil
}

// UpdateStatus implements request.StatusUpdater. Events for the same request
// share a key so the request service consumes them in order.
func (p *RequestStatusProducer) UpdateStatus(ctx context.Context, event *shared.RequestStatusEvent) error {
	return p.Publish(ctx, event.RequestID.String(), event)
}

// Publish sends one message keyed by the request id
func (p *RequestStatusProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal request status message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish request status message",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish request status message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published request status message",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *RequestStatusProducer) Close() error {
	p.logger.Info("Closing request status Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close request status kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
