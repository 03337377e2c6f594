package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes alert events to a Kafka topic, keyed by prediction
// ID so alerts for one prediction land on one partition.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink builds a sink over the given brokers and topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (k *KafkaSink) Name() string { return "kafka" }

// Publish writes the event as a JSON message.
func (k *KafkaSink) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode alert event: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.PredictionID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("publish alert %s: %w", ev.ID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaSink) Close() error { return k.writer.Close() }
