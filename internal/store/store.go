package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore

// Store defines the interface for ledger database operations
type Store interface {
	// CreateTokens inserts the tokens with their CREATE audit records and outbox events in one transaction.
	// Returns domain.ErrConflict if any token id already exists, in which case nothing is persisted.
	CreateTokens(ctx context.Context, inputs []CreateTokenInput) ([]schema.LedgerEvent, error)
	// GetToken retrieves a token by id, returns nil if it does not exist
	GetToken(ctx context.Context, tokenID uuid.UUID) (*schema.Token, error)
	// CompareAndSwap applies the mutation only if the token is still at the expected version, and appends
	// the audit record and outbox event in the same transaction.
	// Returns domain.ErrNotFound or domain.ErrConflict when the swap cannot be applied.
	CompareAndSwap(ctx context.Context, input CompareAndSwapInput) (*schema.Token, *schema.LedgerEvent, error)
	// FindTokens retrieves tokens matching the filter from a consistent snapshot, with the total match count
	FindTokens(ctx context.Context, filter TokenFilter) ([]schema.Token, uint64, error)
	// GetAuditTrail retrieves the audit records of a token in ascending write order
	GetAuditTrail(ctx context.Context, tokenID uuid.UUID, filter AuditFilter) ([]schema.AuditRecord, error)
	// GetUnpublishedEvents retrieves outbox events without a broker acknowledgement that occurred before the given time
	GetUnpublishedEvents(ctx context.Context, before time.Time, limit int) ([]schema.LedgerEvent, error)
	// GetUnpublishedTokenVersions returns, per token, the ascending token versions of outbox events without
	// a broker acknowledgement. Tokens with nothing unpublished are absent from the map.
	GetUnpublishedTokenVersions(ctx context.Context, tokenIDs []uuid.UUID) (map[uuid.UUID][]int64, error)
	// MarkEventsPublished records the broker acknowledgement of the given outbox events
	MarkEventsPublished(ctx context.Context, eventIDs []int64, publishedAt time.Time) error
	// PurgeToken deletes a token together with its audit trail and events, returns false if it did not exist
	PurgeToken(ctx context.Context, tokenID uuid.UUID) (bool, error)
}

// CreateTokenInput holds one token to insert together with its CREATE audit record and issuance event
type CreateTokenInput struct {
	Token schema.Token
	Audit schema.AuditRecord
	Event schema.LedgerEvent
}

// TokenMutation holds the mutable columns written by a compare-and-swap
type TokenMutation struct {
	Status             domain.TokenStatus
	CurrentOwner       uuid.UUID
	TransactionHistory []uuid.UUID
	UpdatedAt          time.Time
}

// CompareAndSwapInput represents the input for a version guarded token update
type CompareAndSwapInput struct {
	TokenID         uuid.UUID
	ExpectedVersion int64
	Mutation        TokenMutation
	Audit           schema.AuditRecord
	Event           schema.LedgerEvent
}

// TokenFilter represents the predicate for token lookups. Nil and empty fields match everything.
type TokenFilter struct {
	Status   *domain.TokenStatus
	Owner    *uuid.UUID
	CBDCType *domain.CBDCType
	TokenIDs []uuid.UUID
	Limit    int
	Offset   uint64
}

// AuditFilter narrows an audit trail read
type AuditFilter struct {
	Operations []domain.AuditOperation
	From       *time.Time
	To         *time.Time
}
