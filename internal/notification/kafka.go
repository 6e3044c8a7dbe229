package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes notifications as JSON records keyed by Message.Key.
type KafkaNotifier struct {
	writer MessageWriter
}

// NewKafkaNotifier wraps a Kafka writer.
func NewKafkaNotifier(writer MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer}
}

// Send encodes and publishes the message.
func (n *KafkaNotifier) Send(ctx context.Context, message Message) error {
	if message.OccurredAt.IsZero() {
		message.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(message.Key),
		Value: payload,
		Time:  message.OccurredAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(message.Kind)},
		},
	})
}
