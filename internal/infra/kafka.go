package infra

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter builds a writer for the given topic. Brokers are a comma
// separated list; an empty list yields nil so callers can skip publishing.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	if strings.TrimSpace(brokers) == "" {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}
