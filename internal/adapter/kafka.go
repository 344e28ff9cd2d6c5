package adapter

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter defines an interface for kafka writer operations to enable mocking
//
//go:generate mockgen -source=kafka.go -destination=../mocks/kafka.go -package=mocks -mock_names=KafkaWriter=MockKafkaWriter
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriterConfig holds the settings of a kafka writer
type KafkaWriterConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	MaxAttempts  int
	RequiredAcks kafka.RequiredAcks
}

// NewKafkaWriter creates a writer that routes each message to its own topic and hashes keys to partitions,
// so messages sharing a key keep their relative order
func NewKafkaWriter(cfg KafkaWriterConfig) KafkaWriter {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		MaxAttempts:            cfg.MaxAttempts,
		RequiredAcks:           cfg.RequiredAcks,
		AllowAutoTopicCreation: true,
	}
}
