package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-ledger/internal/adapter"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/logger"
	"github.com/feral-file/ff-ledger/internal/messaging"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

// OverflowPolicy decides what Enqueue does when the queue is full
type OverflowPolicy string

const (
	// OverflowBlock waits up to the enqueue timeout for room
	OverflowBlock OverflowPolicy = "block"
	// OverflowReject fails immediately
	OverflowReject OverflowPolicy = "reject"
	// OverflowDropOldest evicts the oldest queued event to make room.
	// The evicted event stays unpublished in the outbox and is relayed later.
	OverflowDropOldest OverflowPolicy = "drop_oldest"
)

// Valid checks if the policy is known
func (p OverflowPolicy) Valid() bool {
	return p == OverflowBlock || p == OverflowReject || p == OverflowDropOldest
}

// Config holds the publisher tuning
type Config struct {
	// QueueSize bounds the number of events waiting for delivery
	QueueSize int
	// BatchSize is the maximum number of events per broker call, 0 or 1 delivers each event on its own
	BatchSize int
	// FlushInterval is the longest a partial batch waits, 0 delivers each event on its own
	FlushInterval time.Duration
	// Overflow is the policy applied when the queue is full
	Overflow OverflowPolicy
	// EnqueueTimeout bounds the wait of the block policy, 0 waits until there is room or Close is called
	EnqueueTimeout time.Duration
	// RetryInitialInterval and RetryMaxInterval shape the exponential backoff between delivery attempts
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	// RetryMaxElapsedTime gives up on a batch after this long, 0 retries until Close aborts
	RetryMaxElapsedTime time.Duration
}

// Enqueuer accepts committed events for asynchronous publication
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Enqueuer=MockEnqueuer,Outbox=MockOutbox
type Enqueuer interface {
	// Enqueue hands events to the publisher. It fails with domain.ErrPublishDeferred when the events
	// cannot be accepted now, the events stay in the outbox for the relay.
	Enqueue(ctx context.Context, events ...schema.LedgerEvent) error
}

// Outbox is the durable record of events awaiting publication
type Outbox interface {
	// GetUnpublishedTokenVersions returns, per token, the ascending versions of events without a broker acknowledgement
	GetUnpublishedTokenVersions(ctx context.Context, tokenIDs []uuid.UUID) (map[uuid.UUID][]int64, error)
	// MarkEventsPublished records the broker acknowledgement of the given events
	MarkEventsPublished(ctx context.Context, eventIDs []int64, publishedAt time.Time) error
}

// Stats is a snapshot of publisher counters
type Stats struct {
	Queued    int    `json:"queued"`
	Held      int    `json:"held"`
	Enqueued  uint64 `json:"enqueued"`
	Deferred  uint64 `json:"deferred"`
	Dropped   uint64 `json:"dropped"`
	Published uint64 `json:"published"`
	Abandoned uint64 `json:"abandoned"`
}

// Publisher is a bounded producer/consumer pipeline between the ledger and the broker.
// Events of one token reach the broker in version order: an event whose earlier versions are still
// unpublished is held until they are delivered, by this publisher or through the outbox relay.
type Publisher struct {
	cfg    Config
	broker messaging.Broker
	outbox Outbox
	clock  adapter.Clock

	queue     chan schema.LedgerEvent
	mu        sync.RWMutex
	closed    bool
	closing   chan struct{}
	closeOnce sync.Once
	pending   map[int64]struct{}
	pmu       sync.Mutex

	// held is owned by the dispatcher goroutine
	held      []schema.LedgerEvent
	heldCount atomic.Int64

	// abort cancels in-flight delivery when Close runs out of time
	abortCtx context.Context
	abort    context.CancelFunc
	stopped  chan struct{}

	enqueued  atomic.Uint64
	deferred  atomic.Uint64
	dropped   atomic.Uint64
	published atomic.Uint64
	abandoned atomic.Uint64
}

// NewPublisher creates a publisher and starts its dispatcher
func NewPublisher(cfg Config, broker messaging.Broker, outbox Outbox, clock adapter.Clock) (*Publisher, error) {
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("%w: queue size must be positive", domain.ErrValidation)
	}
	if cfg.Overflow == "" {
		cfg.Overflow = OverflowBlock
	}
	if !cfg.Overflow.Valid() {
		return nil, fmt.Errorf("%w: unknown overflow policy %q", domain.ErrValidation, cfg.Overflow)
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 100 * time.Millisecond
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = 30 * time.Second
	}

	abortCtx, abort := context.WithCancel(context.Background())
	p := &Publisher{
		cfg:      cfg,
		broker:   broker,
		outbox:   outbox,
		clock:    clock,
		queue:    make(chan schema.LedgerEvent, cfg.QueueSize),
		closing:  make(chan struct{}),
		pending:  make(map[int64]struct{}),
		abortCtx: abortCtx,
		abort:    abort,
		stopped:  make(chan struct{}),
	}

	go p.run()

	return p, nil
}

// Enqueue hands committed events to the dispatcher according to the overflow policy.
// Events already waiting in the queue are skipped.
func (p *Publisher) Enqueue(ctx context.Context, events ...schema.LedgerEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.deferred.Add(uint64(len(events)))
		return fmt.Errorf("%w: %w", domain.ErrPublishDeferred, domain.ErrPublisherClosed)
	}

	for i, e := range events {
		if !p.markPending(e.ID) {
			continue
		}

		if err := p.put(ctx, e); err != nil {
			p.unmarkPending(e.ID)
			p.deferred.Add(uint64(len(events) - i))
			return err
		}
		p.enqueued.Add(1)
	}

	return nil
}

func (p *Publisher) put(ctx context.Context, e schema.LedgerEvent) error {
	switch p.cfg.Overflow {
	case OverflowReject:
		select {
		case p.queue <- e:
			return nil
		default:
			return fmt.Errorf("%w: queue full", domain.ErrPublishDeferred)
		}

	case OverflowDropOldest:
		for {
			select {
			case p.queue <- e:
				return nil
			default:
			}

			select {
			case old := <-p.queue:
				p.unmarkPending(old.ID)
				p.dropped.Add(1)
				logger.WarnCtx(ctx, "Publisher queue full, dropped oldest event", zap.Int64("event_id", old.ID))
			default:
			}
		}

	default:
		var timeout <-chan time.Time
		if p.cfg.EnqueueTimeout > 0 {
			timeout = p.clock.After(p.cfg.EnqueueTimeout)
		}

		select {
		case p.queue <- e:
			return nil
		case <-timeout:
			return fmt.Errorf("%w: queue full after %s", domain.ErrPublishDeferred, p.cfg.EnqueueTimeout)
		case <-p.closing:
			return fmt.Errorf("%w: %w", domain.ErrPublishDeferred, domain.ErrPublisherClosed)
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", domain.ErrPublishDeferred, ctx.Err())
		}
	}
}

func (p *Publisher) markPending(id int64) bool {
	p.pmu.Lock()
	defer p.pmu.Unlock()

	if _, ok := p.pending[id]; ok {
		return false
	}
	p.pending[id] = struct{}{}
	return true
}

func (p *Publisher) unmarkPending(ids ...int64) {
	p.pmu.Lock()
	defer p.pmu.Unlock()

	for _, id := range ids {
		delete(p.pending, id)
	}
}

func (p *Publisher) batchSize() int {
	if p.cfg.BatchSize <= 1 || p.cfg.FlushInterval <= 0 {
		return 1
	}
	return p.cfg.BatchSize
}

// run is the single dispatcher goroutine, it delivers batches one at a time in queue order
func (p *Publisher) run() {
	defer close(p.stopped)

	size := p.batchSize()
	batch := make([]schema.LedgerEvent, 0, size)

	// The ticker flushes partial batches, in per-event mode it only retries held events
	interval := p.cfg.FlushInterval
	if size == 1 {
		interval = p.cfg.RetryMaxInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-p.queue:
			if !ok {
				p.deliver(batch)
				p.releaseHeld(len(p.held))
				return
			}
			batch = append(batch, e)
			if len(batch) >= size {
				p.deliver(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 || len(p.held) > 0 {
				p.deliver(batch)
				batch = batch[:0]
			}
		}
	}
}

// deliver publishes the batch together with the held events in event id order, retrying with backoff
// until acknowledged. Events that would overtake an unpublished earlier version of their token are held.
func (p *Publisher) deliver(batch []schema.LedgerEvent) {
	candidates := make([]schema.LedgerEvent, 0, len(p.held)+len(batch))
	candidates = append(candidates, p.held...)
	candidates = append(candidates, batch...)
	p.held = nil
	p.heldCount.Store(0)
	if len(candidates) == 0 {
		return
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	// An event that cannot be encoded stays unpublished, later versions of its token wait behind it
	events := make([]schema.LedgerEvent, 0, len(candidates))
	encoded := make(map[int64]messaging.Message, len(candidates))
	for _, e := range candidates {
		msg, err := ToMessage(e)
		if err != nil {
			logger.Error(err, zap.Int64("event_id", e.ID))
			p.unmarkPending(e.ID)
			continue
		}
		encoded[e.ID] = msg
		events = append(events, e)
	}
	if len(events) == 0 {
		return
	}

	ctx := p.abortCtx

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.RetryInitialInterval
	b.MaxInterval = p.cfg.RetryMaxInterval
	b.MaxElapsedTime = p.cfg.RetryMaxElapsedTime
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.Warn("Event delivery failed, retrying",
			zap.Error(err),
			zap.Int("batch_size", len(events)),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	var ready, held []schema.LedgerEvent
	operation := func() error {
		var err error
		ready, held, err = p.inVersionOrder(ctx, events)
		if err != nil {
			return err
		}
		if len(ready) == 0 {
			return nil
		}

		msgs := make([]messaging.Message, len(ready))
		for i, e := range ready {
			msgs[i] = encoded[e.ID]
		}
		return p.broker.Publish(ctx, msgs)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notifyOnError); err != nil {
		ids := eventIDs(events)
		p.unmarkPending(ids...)
		p.abandoned.Add(uint64(len(ids)))
		logger.Error(fmt.Errorf("event delivery abandoned after %d attempts: %w", attemptCount+1, err),
			zap.Int64("first_event_id", ids[0]),
			zap.Int("batch_size", len(ids)),
		)
		return
	}

	heldIDs := make(map[int64]struct{}, len(held))
	for _, e := range held {
		heldIDs[e.ID] = struct{}{}
	}
	for _, e := range events {
		if _, ok := heldIDs[e.ID]; !ok {
			p.unmarkPending(e.ID)
		}
	}
	p.hold(held)

	if len(ready) == 0 {
		return
	}

	ids := eventIDs(ready)
	p.published.Add(uint64(len(ids)))
	if attemptCount > 0 {
		logger.Info("Event delivery succeeded after retries", zap.Int("total_attempts", attemptCount+1))
	}

	// A failed acknowledgement only means the relay publishes these events again
	if err := p.outbox.MarkEventsPublished(context.WithoutCancel(ctx), ids, p.clock.Now()); err != nil {
		logger.Error(err, zap.Int64("first_event_id", ids[0]), zap.Int("batch_size", len(ids)))
	}
}

// inVersionOrder splits events, sorted by id, into those that continue the unpublished version run of
// their token and those that have to wait for an earlier version. Events the outbox no longer lists as
// unpublished were already acknowledged and are dropped from both.
func (p *Publisher) inVersionOrder(ctx context.Context, events []schema.LedgerEvent) ([]schema.LedgerEvent, []schema.LedgerEvent, error) {
	tokenIDs := make([]uuid.UUID, 0, len(events))
	seen := make(map[uuid.UUID]struct{}, len(events))
	for _, e := range events {
		if _, ok := seen[e.TokenID]; !ok {
			seen[e.TokenID] = struct{}{}
			tokenIDs = append(tokenIDs, e.TokenID)
		}
	}

	unpublished, err := p.outbox.GetUnpublishedTokenVersions(ctx, tokenIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read unpublished versions: %w", err)
	}

	var ready, held []schema.LedgerEvent
	next := make(map[uuid.UUID]int, len(tokenIDs))
	blocked := make(map[uuid.UUID]bool, len(tokenIDs))
	for _, e := range events {
		versions := unpublished[e.TokenID]
		if !containsVersion(versions, e.TokenVersion) {
			continue
		}

		i := next[e.TokenID]
		if blocked[e.TokenID] || i >= len(versions) || versions[i] != e.TokenVersion {
			blocked[e.TokenID] = true
			held = append(held, e)
			continue
		}
		next[e.TokenID] = i + 1
		ready = append(ready, e)
	}

	return ready, held, nil
}

// hold keeps events for the next delivery. Beyond the queue size the oldest are left to the relay.
func (p *Publisher) hold(events []schema.LedgerEvent) {
	if len(events) == 0 {
		return
	}

	logger.Debug("Holding events behind unpublished earlier versions",
		zap.Int("count", len(events)),
		zap.Int64("first_event_id", events[0].ID),
	)

	p.held = append(p.held, events...)
	if excess := len(p.held) - p.cfg.QueueSize; excess > 0 {
		p.releaseHeld(excess)
	}
	p.heldCount.Store(int64(len(p.held)))
}

// releaseHeld forgets the n oldest held events, they stay unpublished in the outbox
func (p *Publisher) releaseHeld(n int) {
	if n <= 0 {
		return
	}

	released := p.held[:n]
	p.unmarkPending(eventIDs(released)...)
	p.deferred.Add(uint64(n))
	p.held = append([]schema.LedgerEvent(nil), p.held[n:]...)
	p.heldCount.Store(int64(len(p.held)))
}

func containsVersion(versions []int64, version int64) bool {
	i := sort.Search(len(versions), func(i int) bool { return versions[i] >= version })
	return i < len(versions) && versions[i] == version
}

func eventIDs(events []schema.LedgerEvent) []int64 {
	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

// Close stops accepting events, flushes everything queued and closes the broker.
// If ctx expires first, in-flight delivery is aborted and the remaining events are left to the relay.
func (p *Publisher) Close(ctx context.Context) error {
	// Wake up Enqueue calls blocked on a full queue so they release the read lock
	p.closeOnce.Do(func() { close(p.closing) })

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	var flushErr error
	select {
	case <-p.stopped:
	case <-ctx.Done():
		p.abort()
		<-p.stopped
		flushErr = fmt.Errorf("publisher flush interrupted: %w", ctx.Err())
	}
	p.abort()

	return errors.Join(flushErr, p.broker.Close())
}

// Stats returns a snapshot of the publisher counters
func (p *Publisher) Stats() Stats {
	return Stats{
		Queued:    len(p.queue),
		Held:      int(p.heldCount.Load()),
		Enqueued:  p.enqueued.Load(),
		Deferred:  p.deferred.Load(),
		Dropped:   p.dropped.Load(),
		Published: p.published.Load(),
		Abandoned: p.abandoned.Load(),
	}
}
