package events

import (
	"context"
	"encoding/json"

	"freight-auction/internal/core/errs"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher delivers events to the notification topic. Messages are
// keyed by shipment id so every event of one auction lands on the same
// partition, preserving per-shipment ordering for consumers.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a writer against the given broker and topic.
func NewKafkaPublisher(brokerURL, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerURL),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish sends the event as a JSON message.
func (k *KafkaPublisher) Publish(ctx context.Context, event Envelope) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errs.Downstreamf("failed to marshal event: %v", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.ShipmentID),
		Value: data,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return errs.Downstreamf("kafka write failed: %v", err)
	}
	return nil
}

// Close shuts down the Kafka writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
