package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-ledger/internal/adapter"
	"github.com/feral-file/ff-ledger/internal/events"
	"github.com/feral-file/ff-ledger/internal/logger"
	"github.com/feral-file/ff-ledger/internal/store"
)

// OutboxRelayConfig holds configuration for the outbox relay
type OutboxRelayConfig struct {
	Interval  time.Duration // Time to sleep between sweep cycles
	Grace     time.Duration // Only relay events older than this, younger ones are still on their way
	BatchSize int           // Events per cycle
}

// outboxRelay implements the Sweeper interface for re-publishing events the publisher never acknowledged
type outboxRelay struct {
	config    *OutboxRelayConfig
	store     store.Store
	publisher events.Enqueuer
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewOutboxRelay creates a new outbox relay
func NewOutboxRelay(
	config *OutboxRelayConfig,
	st store.Store,
	publisher events.Enqueuer,
	clock adapter.Clock,
) Sweeper {
	return &outboxRelay{
		config:    config,
		store:     st,
		publisher: publisher,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *outboxRelay) Name() string {
	return "outbox-relay"
}

// Start begins the relay's main loop
func (s *outboxRelay) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh) // Signal that we've stopped
	}()

	logger.InfoCtx(ctx, "Starting outbox relay",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("grace", s.config.Grace),
		zap.Int("batch_size", s.config.BatchSize),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Outbox relay stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Outbox relay stop requested")
			return nil
		default:
			if err := s.runSweepCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}

			// An interrupted sleep is picked up by the select above
			s.sleep(ctx, s.config.Interval)
		}
	}
}

// Stop gracefully stops the relay with timeout support
func (s *outboxRelay) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping outbox relay")

	// Signal stop to the main loop
	close(s.stopChan)

	// Wait for main loop to exit, but respect context cancellation
	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Outbox relay stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Outbox relay stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle hands one batch of stale unpublished events back to the publisher
func (s *outboxRelay) runSweepCycle(ctx context.Context) error {
	before := s.clock.Now().Add(-s.config.Grace)

	evts, err := s.store.GetUnpublishedEvents(ctx, before, s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get unpublished events: %w", err)
	}

	if len(evts) == 0 {
		logger.DebugCtx(ctx, "No unpublished events to relay")
		return nil
	}

	// Events still queued from an earlier cycle are skipped by the publisher
	if err := s.publisher.Enqueue(ctx, evts...); err != nil {
		logger.WarnCtx(ctx, "Outbox relay could not enqueue every event, will retry next cycle",
			zap.Int("count", len(evts)),
			zap.Int64("first_event_id", evts[0].ID),
			zap.Error(err),
		)
		return nil
	}

	logger.InfoCtx(ctx, "Relayed unpublished events",
		zap.Int("count", len(evts)),
		zap.Int64("first_event_id", evts[0].ID),
		zap.Int64("last_event_id", evts[len(evts)-1].ID),
	)

	return nil
}

// sleep sleeps for the given duration but can be interrupted by context cancellation
// Returns true if sleep completed normally, false if interrupted
func (s *outboxRelay) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true // Sleep completed
	case <-ctx.Done():
		return false // Interrupted by context cancellation
	case <-s.stopChan:
		return false // Interrupted by stop signal
	}
}
