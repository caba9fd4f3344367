package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
	"github.com/turtacn/KYB-Sentinel/internal/config"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

// Producer publishes notification events, keyed by counterparty so one
// counterparty's events stay ordered within a partition.
type Producer struct {
	writer *kafka.Writer
	logger logging.Logger
}

// NewProducer constructs the producer from config.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: requiredAcks(cfg.Acks),
		MaxAttempts:  cfg.MaxRetries,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		// Flat delay between write attempts; min == max disables the
		// writer's own exponential ramp.
		WriteBackoffMin: cfg.RetryBackoff,
		WriteBackoffMax: cfg.RetryBackoff,
	}
	return &Producer{writer: writer, logger: log.Named("kafka")}
}

// Publish sends one notification event to its topic.
func (p *Producer) Publish(ctx context.Context, event monitoring.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode notification event")
	}

	msg := kafka.Message{
		Topic: topicFor(event.Type),
		Key:   []byte(event.CounterpartyID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to publish notification event")
	}

	p.logger.Debug("notification event published",
		logging.String("event_type", event.Type),
		logging.String("topic", msg.Topic),
		logging.String("counterparty_id", event.CounterpartyID.String()))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func requiredAcks(acks string) kafka.RequiredAcks {
	switch acks {
	case "none":
		return kafka.RequireNone
	case "one":
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}
