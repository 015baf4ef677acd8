// Package events relays committed outbox events to the message bus.
//
// Services write events into the outbox inside the same transaction as the
// change they describe. The Relay drains unpublished rows in order, hands
// each one to a Publisher and marks it published. Delivery is at-least-once:
// a crash between publish and mark re-sends the event, so consumers
// deduplicate on the event id.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"referrals/internal/platform/kafka/producer"
	"referrals/internal/referral/models"
)

// DefaultTopic is the Kafka topic referral lifecycle events are produced to.
const DefaultTopic = "referral.events"

// Publisher delivers one event to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event models.OutboxEvent) error
}

// MessageProducer is the subset of the Kafka producer the publisher needs.
type MessageProducer interface {
	Produce(ctx context.Context, msg producer.Message) error
}

// KafkaPublisher produces events keyed by aggregate id, so every event of one
// code or referral lands on the same partition in commit order.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
}

func NewKafkaPublisher(p MessageProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event models.OutboxEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	return k.producer.Produce(ctx, producer.Message{
		Topic: k.topic,
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: map[string]string{
			"event_id":   event.ID.String(),
			"event_type": string(event.Type),
		},
	})
}

// LogPublisher writes events to the structured log. Used when no brokers are
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Publish(ctx context.Context, event models.OutboxEvent) error {
	l.logger.InfoContext(ctx, "referral event",
		"event_id", event.ID,
		"event_type", string(event.Type),
		"aggregate_id", event.AggregateID,
		"occurred_at", event.OccurredAt,
		"payload", string(event.Payload),
	)
	return nil
}
