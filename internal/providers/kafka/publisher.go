package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/feral-file/ff-ledger/internal/adapter"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/logger"
	"github.com/feral-file/ff-ledger/internal/messaging"
)

// Config holds the kafka topic layout
type Config struct {
	// TopicPrefix is prepended to the event family to form the topic, e.g. "ledger." gives "ledger.transactions"
	TopicPrefix string
}

type broker struct {
	writer adapter.KafkaWriter
	prefix string
}

// NewBroker creates a kafka broker on top of a writer that hashes message keys to partitions
func NewBroker(cfg Config, writer adapter.KafkaWriter) messaging.Broker {
	return &broker{writer: writer, prefix: cfg.TopicPrefix}
}

// Publish writes the batch synchronously, messages sharing a key land on one partition in order
func (b *broker) Publish(ctx context.Context, msgs []messaging.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	kmsgs := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		kmsgs = append(kmsgs, kafka.Message{
			Topic: b.topic(m.Family),
			Key:   []byte(m.Key),
			Value: m.Data,
			Time:  m.Timestamp,
			Headers: []kafka.Header{
				{Key: messaging.HeaderEventID, Value: []byte(m.ID)},
				{Key: messaging.HeaderEventType, Value: []byte(m.Type)},
				{Key: messaging.HeaderContentType, Value: []byte(messaging.ContentTypeJSON)},
				{Key: messaging.HeaderProducer, Value: []byte(messaging.ProducerLedger)},
			},
		})
	}

	if err := b.writer.WriteMessages(ctx, kmsgs...); err != nil {
		return fmt.Errorf("failed to write %d messages to kafka: %w", len(kmsgs), err)
	}

	logger.DebugCtx(ctx, "Published kafka events", zap.Int("count", len(kmsgs)), zap.String("first_event_id", msgs[0].ID))

	return nil
}

// topic returns the topic of an event family
func (b *broker) topic(family domain.EventFamily) string {
	return b.prefix + string(family)
}

// Close flushes and closes the writer
func (b *broker) Close() error {
	if err := b.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
