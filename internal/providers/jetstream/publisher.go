package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-ledger/internal/adapter"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/logger"
	"github.com/feral-file/ff-ledger/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	// Duplicates is the stream de-duplication window for message ids
	Duplicates time.Duration
}

type broker struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	prefix string
}

// NewBroker connects to NATS and makes sure the ledger stream captures every event family
func NewBroker(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream) (messaging.Broker, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	b := &broker{nc: nc, js: js, prefix: cfg.SubjectPrefix}

	err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   []string{fmt.Sprintf("%s.>", cfg.SubjectPrefix)},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		Duplicates: cfg.Duplicates,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.StreamName, err)
	}

	return b, nil
}

// Publish publishes messages one at a time so the stream stores them in the given order.
// The message id header lets the stream drop redelivered duplicates inside the window.
func (b *broker) Publish(ctx context.Context, msgs []messaging.Message) error {
	for _, m := range msgs {
		msg := &nats.Msg{
			Subject: b.buildSubject(m.Family, m.Type),
			Data:    m.Data,
			Header:  nats.Header{},
		}
		msg.Header.Set(messaging.HeaderEventType, string(m.Type))
		msg.Header.Set(messaging.HeaderContentType, messaging.ContentTypeJSON)
		msg.Header.Set(messaging.HeaderProducer, messaging.ProducerLedger)

		if _, err := b.js.PublishMsg(ctx, msg, jetstream.WithMsgID(m.ID)); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", m.ID, err)
		}

		logger.DebugCtx(ctx, "Published NATS event", zap.String("event_id", m.ID), zap.String("subject", msg.Subject))
	}

	return nil
}

// buildSubject constructs the NATS subject of an event.
// Format: {prefix}.{family}.{event_type}, e.g. ledger.transactions.transaction.completed
func (b *broker) buildSubject(family domain.EventFamily, eventType domain.EventType) string {
	return fmt.Sprintf("%s.%s.%s", b.prefix, family, eventType)
}

// Close drains pending publishes and closes the NATS connection
func (b *broker) Close() error {
	if b.nc == nil {
		return nil
	}

	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}

	return nil
}
