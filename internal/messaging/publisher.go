package messaging

import (
	"context"
	"time"

	"github.com/feral-file/ff-ledger/internal/domain"
)

// Message is one serialized ledger event ready for a broker
type Message struct {
	// ID is the unique event id consumers de-duplicate on
	ID string
	// Family selects the topic
	Family domain.EventFamily
	// Type is the event type
	Type domain.EventType
	// Key is the partition key, messages sharing a key are delivered in order
	Key string
	// Data is the encoded event envelope
	Data []byte
	// Timestamp is the commit time of the mutation
	Timestamp time.Time
}

// Broker defines the interface for delivering ledger events to an ordered, partitioned, append-only log
//
//go:generate mockgen -source=publisher.go -destination=../mocks/broker.go -package=mocks -mock_names=Broker=MockBroker
type Broker interface {
	// Publish delivers the messages in the given order and returns once the broker acknowledged all of them.
	// On error any prefix may have been delivered, callers retry the whole batch.
	Publish(ctx context.Context, msgs []Message) error
	// Close releases the broker connection
	Close() error
}

// Header names attached to every published message
const (
	HeaderEventID     = "event-id"
	HeaderEventType   = "event-type"
	HeaderContentType = "content-type"
	HeaderProducer    = "producer"
	ContentTypeJSON   = "application/json"
	ProducerLedger    = "ledger"
)
