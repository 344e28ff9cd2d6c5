// Package ledger implements the token state machine on top of the ledger store.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-ledger/internal/adapter"
	"github.com/feral-file/ff-ledger/internal/audit"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/events"
	"github.com/feral-file/ff-ledger/internal/logger"
	"github.com/feral-file/ff-ledger/internal/store"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=Ledger=MockLedger

// Ledger defines the token operations
type Ledger interface {
	// Issue creates quantity new active tokens owned by the given wallet in one atomic unit
	Issue(ctx context.Context, input IssueInput) ([]schema.Token, error)
	// GetToken retrieves a token, returns domain.ErrNotFound if it does not exist
	GetToken(ctx context.Context, tokenID uuid.UUID) (*schema.Token, error)
	// Transfer moves an active token to a new owner and appends the transaction to its history
	Transfer(ctx context.Context, input TransferInput) (*schema.Token, error)
	// Transition moves a token to the desired status if the transition table allows it
	Transition(ctx context.Context, input TransitionInput) (*schema.Token, error)

	Freeze(ctx context.Context, tokenID uuid.UUID, reason string) (*schema.Token, error)
	Unfreeze(ctx context.Context, tokenID uuid.UUID, reason string) (*schema.Token, error)
	Dispute(ctx context.Context, tokenID uuid.UUID, reason string) (*schema.Token, error)
	// Resolve closes a dispute, either back to active or to invalid
	Resolve(ctx context.Context, tokenID uuid.UUID, valid bool, reason string) (*schema.Token, error)
	Invalidate(ctx context.Context, tokenID uuid.UUID, reason string) (*schema.Token, error)

	// FindTokens retrieves tokens matching the filter with the total match count
	FindTokens(ctx context.Context, filter store.TokenFilter) ([]schema.Token, uint64, error)
	// History retrieves the transaction history of a token with its ownership transfers
	History(ctx context.Context, tokenID uuid.UUID) (*TokenHistory, error)
	// AuditTrail retrieves the audit records of a token and checks them against its current state
	AuditTrail(ctx context.Context, tokenID uuid.UUID, filter store.AuditFilter) (*AuditReport, error)
	// VerifyOwnership reports whether the wallet currently owns the token
	VerifyOwnership(ctx context.Context, tokenID uuid.UUID, owner uuid.UUID) (bool, error)
}

// Config holds ledger tuning
type Config struct {
	// MaxConflictRetries bounds the retries of a lost compare-and-swap when the caller gave no expectation
	MaxConflictRetries int
	// RetryInitialInterval is the first backoff between conflict retries
	RetryInitialInterval time.Duration
	// RetryMaxInterval caps the backoff between conflict retries
	RetryMaxInterval time.Duration
}

// IssueInput represents an issuance request
type IssueInput struct {
	CBDCType        domain.CBDCType
	Denomination    decimal.Decimal
	Owner           uuid.UUID
	Quantity        int
	Issuer          string
	Series          string
	Metadata        json.RawMessage
	ComplianceFlags json.RawMessage
}

// TransferInput represents an ownership transfer request
type TransferInput struct {
	TokenID  uuid.UUID
	NewOwner uuid.UUID
	// TransactionID is generated when nil
	TransactionID *uuid.UUID
	Expected      domain.Expectation
	Metadata      audit.Metadata
}

// TransitionInput represents a status transition request
type TransitionInput struct {
	TokenID  uuid.UUID
	Expected domain.Expectation
	Desired  domain.TokenStatus
	Reason   string
	Metadata audit.Metadata
}

// TokenHistory is the transaction history of a token
type TokenHistory struct {
	TokenID            uuid.UUID
	CurrentOwner       uuid.UUID
	TransactionHistory []uuid.UUID
	Transfers          []schema.AuditRecord
}

// AuditReport is an audit trail together with the state it reconstructs
type AuditReport struct {
	Token         *schema.Token
	Records       []schema.AuditRecord
	Reconstructed *audit.State
	// Consistent is false when the full trail cannot be replayed or does not reproduce the current state
	Consistent bool
}

type ledger struct {
	cfg       Config
	store     store.Store
	publisher events.Enqueuer
	clock     adapter.Clock
}

// New creates a new ledger
func New(cfg Config, store store.Store, publisher events.Enqueuer, clock adapter.Clock) Ledger {
	if cfg.MaxConflictRetries < 0 {
		cfg.MaxConflictRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 10 * time.Millisecond
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = 500 * time.Millisecond
	}

	return &ledger{
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		clock:     clock,
	}
}

func (l *ledger) Issue(ctx context.Context, input IssueInput) ([]schema.Token, error) {
	if err := validateIssue(&input); err != nil {
		return nil, err
	}

	metadata, err := jsonObject(input.Metadata, "metadata")
	if err != nil {
		return nil, err
	}
	flags, err := jsonObject(input.ComplianceFlags, "compliance_flags")
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	auditMeta := audit.Metadata{}
	if input.Issuer != "" {
		auditMeta[domain.AUDIT_KEY_ISSUER] = input.Issuer
	}
	if input.Series != "" {
		auditMeta[domain.AUDIT_KEY_SERIES] = input.Series
	}

	inputs := make([]store.CreateTokenInput, input.Quantity)
	for i := range inputs {
		token := schema.Token{
			TokenID:            uuid.New(),
			CBDCType:           input.CBDCType,
			Denomination:       input.Denomination,
			CurrentOwner:       input.Owner,
			Status:             domain.TokenStatusActive,
			IssueTimestamp:     now,
			TransactionHistory: datatypes.JSONSlice[uuid.UUID]{},
			Metadata:           metadata,
			ComplianceFlags:    flags,
			Version:            1,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		record, err := audit.NewCreateRecord(&token, now, auditMeta)
		if err != nil {
			return nil, err
		}
		event, err := events.NewTokenIssued(&token, input.Issuer, input.Series, now)
		if err != nil {
			return nil, err
		}

		inputs[i] = store.CreateTokenInput{Token: token, Audit: record, Event: event}
	}

	// Once the insert begins the caller can no longer abort it
	persisted, err := l.store.CreateTokens(context.WithoutCancel(ctx), inputs)
	if err != nil {
		return nil, err
	}

	l.publish(ctx, persisted...)

	tokens := make([]schema.Token, len(inputs))
	for i := range inputs {
		tokens[i] = inputs[i].Token
	}

	logger.InfoCtx(ctx, "Issued tokens",
		zap.String("cbdcType", string(input.CBDCType)),
		zap.String("denomination", input.Denomination.StringFixed(domain.DENOMINATION_SCALE)),
		zap.Int("quantity", input.Quantity))

	return tokens, nil
}

func (l *ledger) GetToken(ctx context.Context, tokenID uuid.UUID) (*schema.Token, error) {
	token, err := l.store.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: token %s", domain.ErrNotFound, tokenID)
	}
	return token, nil
}

func (l *ledger) Transfer(ctx context.Context, input TransferInput) (*schema.Token, error) {
	if input.NewOwner == uuid.Nil {
		return nil, fmt.Errorf("%w: new owner is required", domain.ErrValidation)
	}

	txID := uuid.New()
	if input.TransactionID != nil {
		if *input.TransactionID == uuid.Nil {
			return nil, fmt.Errorf("%w: transaction id must not be nil", domain.ErrValidation)
		}
		txID = *input.TransactionID
	}

	return l.mutate(ctx, input.TokenID, input.Expected, func(current *schema.Token, now time.Time) (*plan, error) {
		if current.HasTransaction(txID) {
			if current.CurrentOwner == input.NewOwner {
				// Replay of a transfer that already committed
				return nil, nil
			}
			return nil, fmt.Errorf("%w: transaction %s is already recorded on token %s", domain.ErrConflict, txID, current.TokenID)
		}

		if current.Status != domain.TokenStatusActive {
			return nil, fmt.Errorf("%w: cannot transfer token %s in status %s", domain.ErrInvalidOperation, current.TokenID, current.Status)
		}

		if current.CurrentOwner == input.NewOwner {
			return nil, fmt.Errorf("%w: new owner must differ from the current owner", domain.ErrValidation)
		}

		meta := copyMetadata(input.Metadata)
		meta[domain.AUDIT_KEY_TRANSACTION_ID] = txID.String()

		record, err := audit.NewChangeRecord(current, current.Status, input.NewOwner, now, meta)
		if err != nil {
			return nil, err
		}
		event, err := events.NewTransactionCompleted(current, input.NewOwner, txID, now)
		if err != nil {
			return nil, err
		}

		history := make([]uuid.UUID, 0, len(current.TransactionHistory)+1)
		history = append(history, current.TransactionHistory...)
		history = append(history, txID)

		return &plan{
			mutation: store.TokenMutation{
				Status:             current.Status,
				CurrentOwner:       input.NewOwner,
				TransactionHistory: history,
				UpdatedAt:          now,
			},
			audit: record,
			event: event,
		}, nil
	})
}

func (l *ledger) Transition(ctx context.Context, input TransitionInput) (*schema.Token, error) {
	if !input.Desired.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, input.Desired)
	}

	return l.mutate(ctx, input.TokenID, input.Expected, func(current *schema.Token, now time.Time) (*plan, error) {
		if !current.Status.CanTransitionTo(input.Desired) {
			return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, current.Status, input.Desired)
		}

		meta := copyMetadata(input.Metadata)
		if input.Reason != "" {
			meta[domain.AUDIT_KEY_REASON] = input.Reason
		}

		record, err := audit.NewChangeRecord(current, input.Desired, current.CurrentOwner, now, meta)
		if err != nil {
			return nil, err
		}
		event, err := events.NewTokenStatusChanged(current, input.Desired, input.Reason, now)
		if err != nil {
			return nil, err
		}

		return &plan{
			mutation: store.TokenMutation{
				Status:             input.Desired,
				CurrentOwner:       current.CurrentOwner,
				TransactionHistory: []uuid.UUID(current.TransactionHistory),
				UpdatedAt:          now,
			},
			audit: record,
			event: event,
		}, nil
	})
}

func (l *ledger) Freeze(ctx context.Context, tokenID uuid.UUID, reason string) (*schema.Token, error) {
	return l.transitionFrom(ctx, tokenID, nil, domain.TokenStatusFrozen, reason)
}

func (l *ledger) Unfreeze(ctx context.Context, tokenID uuid.UUID, reason string) (*schema.Token, error) {
	return l.transitionFrom(ctx, tokenID, statusPtr(domain.TokenStatusFrozen), domain.TokenStatusActive, reason)
}

func (l *ledger) Dispute(ctx context.Context, tokenID uuid.UUID, reason string) (*schema.Token, error) {
	return l.transitionFrom(ctx, tokenID, nil, domain.TokenStatusDisputed, reason)
}

func (l *ledger) Resolve(ctx context.Context, tokenID uuid.UUID, valid bool, reason string) (*schema.Token, error) {
	desired := domain.TokenStatusInvalid
	if valid {
		desired = domain.TokenStatusActive
	}
	return l.transitionFrom(ctx, tokenID, statusPtr(domain.TokenStatusDisputed), desired, reason)
}

func (l *ledger) Invalidate(ctx context.Context, tokenID uuid.UUID, reason string) (*schema.Token, error) {
	return l.transitionFrom(ctx, tokenID, nil, domain.TokenStatusInvalid, reason)
}

// transitionFrom runs a transition that only applies from the given status.
// A token already in another status is an invalid transition, a token that moves concurrently is a conflict.
func (l *ledger) transitionFrom(ctx context.Context, tokenID uuid.UUID, from *domain.TokenStatus, desired domain.TokenStatus, reason string) (*schema.Token, error) {
	input := TransitionInput{
		TokenID: tokenID,
		Desired: desired,
		Reason:  reason,
	}

	if from != nil {
		token, err := l.GetToken(ctx, tokenID)
		if err != nil {
			return nil, err
		}
		if token.Status != *from {
			return nil, fmt.Errorf("%w: %s to %s, expected %s", domain.ErrInvalidTransition, token.Status, desired, *from)
		}
		input.Expected = domain.ExpectStatus(*from)
	}

	return l.Transition(ctx, input)
}

func (l *ledger) FindTokens(ctx context.Context, filter store.TokenFilter) ([]schema.Token, uint64, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *filter.Status)
	}
	if filter.CBDCType != nil && !filter.CBDCType.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown cbdc type %q", domain.ErrValidation, *filter.CBDCType)
	}

	return l.store.FindTokens(ctx, filter)
}

func (l *ledger) History(ctx context.Context, tokenID uuid.UUID) (*TokenHistory, error) {
	token, err := l.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	transfers, err := l.store.GetAuditTrail(ctx, tokenID, store.AuditFilter{
		Operations: []domain.AuditOperation{domain.AuditOperationOwnershipTransfer},
	})
	if err != nil {
		return nil, err
	}

	return &TokenHistory{
		TokenID:            token.TokenID,
		CurrentOwner:       token.CurrentOwner,
		TransactionHistory: []uuid.UUID(token.TransactionHistory),
		Transfers:          transfers,
	}, nil
}

func (l *ledger) AuditTrail(ctx context.Context, tokenID uuid.UUID, filter store.AuditFilter) (*AuditReport, error) {
	for _, op := range filter.Operations {
		if !op.Valid() {
			return nil, fmt.Errorf("%w: unknown audit operation %q", domain.ErrValidation, op)
		}
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("%w: from must not be after to", domain.ErrValidation)
	}

	token, err := l.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	full, err := l.store.GetAuditTrail(ctx, tokenID, store.AuditFilter{})
	if err != nil {
		return nil, err
	}

	records := full
	if len(filter.Operations) > 0 || filter.From != nil || filter.To != nil {
		records, err = l.store.GetAuditTrail(ctx, tokenID, filter)
		if err != nil {
			return nil, err
		}
	}

	report := &AuditReport{Token: token, Records: records}
	state, err := audit.Reconstruct(full)
	if err != nil {
		logger.WarnCtx(ctx, "Audit trail cannot be replayed", zap.String("tokenID", tokenID.String()), zap.Error(err))
		return report, nil
	}

	report.Reconstructed = &state
	report.Consistent = state.Matches(token)
	if !report.Consistent {
		logger.WarnCtx(ctx, "Audit trail does not match token state",
			zap.String("tokenID", tokenID.String()),
			zap.String("status", string(token.Status)),
			zap.String("replayedStatus", string(state.Status)))
	}

	return report, nil
}

func (l *ledger) VerifyOwnership(ctx context.Context, tokenID uuid.UUID, owner uuid.UUID) (bool, error) {
	token, err := l.GetToken(ctx, tokenID)
	if err != nil {
		return false, err
	}
	return token.CurrentOwner == owner, nil
}

// plan is the write a mutation derives from the token's current state
type plan struct {
	mutation store.TokenMutation
	audit    schema.AuditRecord
	event    schema.LedgerEvent
}

// planner derives the write from the current token. A nil plan without error means nothing to write.
type planner func(current *schema.Token, now time.Time) (*plan, error)

// mutate reads the token, checks the expectation, plans the write and applies it with compare-and-swap.
// A lost race is retried only when the caller did not pin an expectation.
func (l *ledger) mutate(ctx context.Context, tokenID uuid.UUID, expected domain.Expectation, planFn planner) (*schema.Token, error) {
	var result *schema.Token

	attempt := func() error {
		current, err := l.GetToken(ctx, tokenID)
		if err != nil {
			return backoff.Permanent(err)
		}

		if err := checkExpectation(current, expected); err != nil {
			return backoff.Permanent(err)
		}

		p, err := planFn(current, l.clock.Now())
		if err != nil {
			return backoff.Permanent(err)
		}
		if p == nil {
			result = current
			return nil
		}

		// The atomic unit is not cancellable once it begins
		updated, event, err := l.store.CompareAndSwap(context.WithoutCancel(ctx), store.CompareAndSwapInput{
			TokenID:         current.TokenID,
			ExpectedVersion: current.Version,
			Mutation:        p.mutation,
			Audit:           p.audit,
			Event:           p.event,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) && expected.IsZero() {
				return err
			}
			return backoff.Permanent(err)
		}

		if err := checkImmutable(current, updated); err != nil {
			return backoff.Permanent(err)
		}

		l.publish(ctx, *event)
		result = updated
		return nil
	}

	if err := backoff.RetryNotify(attempt, l.conflictBackoff(ctx), func(err error, d time.Duration) {
		logger.DebugCtx(ctx, "Retrying token mutation after conflict",
			zap.String("tokenID", tokenID.String()),
			zap.Duration("backoff", d),
			zap.Error(err))
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (l *ledger) conflictBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.cfg.RetryInitialInterval
	b.MaxInterval = l.cfg.RetryMaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(l.cfg.MaxConflictRetries)), ctx) //nolint:gosec,G115
}

// publish hands committed events to the publisher. Failures are logged and never returned,
// the outbox sweeper re-delivers anything left unpublished.
func (l *ledger) publish(ctx context.Context, evts ...schema.LedgerEvent) {
	if len(evts) == 0 {
		return
	}

	if err := l.publisher.Enqueue(context.WithoutCancel(ctx), evts...); err != nil {
		ids := make([]int64, len(evts))
		for i, e := range evts {
			ids[i] = e.ID
		}
		logger.WarnCtx(ctx, "Event publication deferred",
			zap.Int64s("eventIDs", ids),
			zap.Error(err))
	}
}

func checkExpectation(current *schema.Token, expected domain.Expectation) error {
	if expected.Status != nil && *expected.Status != current.Status {
		return fmt.Errorf("%w: token %s is %s, expected %s", domain.ErrConflict, current.TokenID, current.Status, *expected.Status)
	}
	if expected.Owner != nil && *expected.Owner != current.CurrentOwner {
		return fmt.Errorf("%w: token %s is owned by %s, expected %s", domain.ErrConflict, current.TokenID, current.CurrentOwner, *expected.Owner)
	}
	return nil
}

func checkImmutable(before, after *schema.Token) error {
	if before.CBDCType != after.CBDCType ||
		!before.Denomination.Equal(after.Denomination) ||
		!before.IssueTimestamp.Equal(after.IssueTimestamp) {
		return fmt.Errorf("immutable fields of token %s changed", before.TokenID)
	}
	return nil
}

func validateIssue(input *IssueInput) error {
	if !input.CBDCType.Valid() {
		return fmt.Errorf("%w: unsupported cbdc type %q", domain.ErrValidation, input.CBDCType)
	}

	if !input.Denomination.IsPositive() {
		return fmt.Errorf("%w: denomination must be positive", domain.ErrValidation)
	}
	if input.Denomination.LessThan(decimal.RequireFromString(domain.MIN_DENOMINATION)) {
		return fmt.Errorf("%w: denomination must be at least %s", domain.ErrValidation, domain.MIN_DENOMINATION)
	}
	if !input.Denomination.Equal(input.Denomination.Truncate(domain.DENOMINATION_SCALE)) {
		return fmt.Errorf("%w: denomination has more than %d decimal places", domain.ErrValidation, domain.DENOMINATION_SCALE)
	}
	if input.Denomination.GreaterThanOrEqual(maxDenomination) {
		return fmt.Errorf("%w: denomination exceeds %s", domain.ErrValidation, maxDenomination.String())
	}

	if input.Owner == uuid.Nil {
		return fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}

	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 1 || input.Quantity > domain.MAX_ISSUE_QUANTITY {
		return fmt.Errorf("%w: quantity must be between 1 and %d", domain.ErrValidation, domain.MAX_ISSUE_QUANTITY)
	}

	return nil
}

// maxDenomination is the first value that no longer fits decimal(15,2)
var maxDenomination = decimal.New(1, 13)

func jsonObject(raw json.RawMessage, field string) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON(`{}`), nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %s must be a JSON object", domain.ErrValidation, field)
	}
	return datatypes.JSON(raw), nil
}

func copyMetadata(in audit.Metadata) audit.Metadata {
	out := make(audit.Metadata, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func statusPtr(s domain.TokenStatus) *domain.TokenStatus {
	return &s
}
