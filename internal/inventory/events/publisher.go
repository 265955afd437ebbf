package events

import (
	"context"

	"stockpile/pkg/kafka"
	"stockpile/pkg/logger"
	"stockpile/pkg/model"
)

const eventSource = "stockpile-inventory"

// KafkaPublisher emits inventory events to the configured Kafka topic.
// Messages are keyed by the event's partition key so all events for a
// reservation group (or a resource key, for adjustments) stay ordered.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		logger:   log,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event model.StockEvent) error {
	msg := kafka.NewMessage().
		WithKey(event.PartitionKey()).
		WithValue(event).
		WithEventType(event.Type).
		WithSource(eventSource).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		return err
	}

	p.logger.Debug("Published inventory event",
		"event_type", event.Type,
		"partition_key", event.PartitionKey(),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
