package kafka

import (
	"context"
	"errors"
	"fmt"

	"ms-travel-sales/internal/logger"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// NewConsumer creates a new Kafka consumer for the given topics and group
func NewConsumer(brokers []string, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Consumer{reader: reader, log: log}
}

// Start reads messages until ctx is cancelled. Handler errors are logged and
// the message is still committed.
func (c *Consumer) Start(ctx context.Context, handler func(Envelope) error) error {
	c.log.Info("KAFKA", "Consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		env, err := DecodeEnvelope(msg.Value)
		if err != nil {
			c.log.Warn("KAFKA", fmt.Sprintf("Failed to decode message on %s: %v", msg.Topic, err))
			continue
		}
		if err := handler(env); err != nil {
			c.log.Error("KAFKA", fmt.Sprintf("Handler failed for %s/%s: %v", msg.Topic, env.Type, err))
		}
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
