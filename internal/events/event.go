// Package events builds ledger events and publishes them to the broker.
package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/messaging"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

// Envelope is the wire format of every published event
type Envelope struct {
	ID            int64              `json:"id"`
	Type          domain.EventType   `json:"type"`
	Family        domain.EventFamily `json:"family"`
	Key           string             `json:"key"`
	Timestamp     time.Time          `json:"timestamp"`
	TokenID       uuid.UUID          `json:"token_id"`
	TransactionID *uuid.UUID         `json:"transaction_id,omitempty"`
	WalletIDs     []uuid.UUID        `json:"wallet_ids"`
	TokenVersion  int64              `json:"token_version"`
	Version       int                `json:"version"`
	Payload       json.RawMessage    `json:"payload"`
}

// TokenIssued is the payload of token.issued
type TokenIssued struct {
	TokenID        uuid.UUID       `json:"token_id"`
	CBDCType       domain.CBDCType `json:"cbdc_type"`
	Denomination   decimal.Decimal `json:"denomination"`
	Owner          uuid.UUID       `json:"owner"`
	Issuer         string          `json:"issuer,omitempty"`
	Series         string          `json:"series,omitempty"`
	IssueTimestamp time.Time       `json:"issue_timestamp"`
}

// TokenStatusChanged is the payload of token.status_changed
type TokenStatusChanged struct {
	TokenID   uuid.UUID          `json:"token_id"`
	Owner     uuid.UUID          `json:"owner"`
	OldStatus domain.TokenStatus `json:"old_status"`
	NewStatus domain.TokenStatus `json:"new_status"`
	Reason    string             `json:"reason,omitempty"`
}

// BalanceDelta is the signed change of one wallet's holdings in one currency
type BalanceDelta struct {
	WalletID uuid.UUID       `json:"wallet_id"`
	CBDCType domain.CBDCType `json:"cbdc_type"`
	Delta    decimal.Decimal `json:"delta"`
}

// TransactionCompleted is the payload of transaction.completed
type TransactionCompleted struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	TokenID       uuid.UUID       `json:"token_id"`
	CBDCType      domain.CBDCType `json:"cbdc_type"`
	Amount        decimal.Decimal `json:"amount"`
	FromWallet    uuid.UUID       `json:"from_wallet"`
	ToWallet      uuid.UUID       `json:"to_wallet"`
	Balances      []BalanceDelta  `json:"balances"`
}

// NewTokenIssued builds the outbox row announcing a newly issued token
func NewTokenIssued(token *schema.Token, issuer, series string, at time.Time) (schema.LedgerEvent, error) {
	return newLedgerEvent(domain.EventTypeTokenIssued, token.TokenID, nil, []uuid.UUID{token.CurrentOwner}, at, TokenIssued{
		TokenID:        token.TokenID,
		CBDCType:       token.CBDCType,
		Denomination:   token.Denomination,
		Owner:          token.CurrentOwner,
		Issuer:         issuer,
		Series:         series,
		IssueTimestamp: token.IssueTimestamp,
	})
}

// NewTokenStatusChanged builds the outbox row of a status transition
func NewTokenStatusChanged(before *schema.Token, newStatus domain.TokenStatus, reason string, at time.Time) (schema.LedgerEvent, error) {
	return newLedgerEvent(domain.EventTypeTokenStatusChanged, before.TokenID, nil, []uuid.UUID{before.CurrentOwner}, at, TokenStatusChanged{
		TokenID:   before.TokenID,
		Owner:     before.CurrentOwner,
		OldStatus: before.Status,
		NewStatus: newStatus,
		Reason:    reason,
	})
}

// NewTransactionCompleted builds the outbox row of an ownership transfer with the balance change of both wallets
func NewTransactionCompleted(before *schema.Token, newOwner, transactionID uuid.UUID, at time.Time) (schema.LedgerEvent, error) {
	return newLedgerEvent(domain.EventTypeTransactionCompleted, before.TokenID, &transactionID, []uuid.UUID{before.CurrentOwner, newOwner}, at, TransactionCompleted{
		TransactionID: transactionID,
		TokenID:       before.TokenID,
		CBDCType:      before.CBDCType,
		Amount:        before.Denomination,
		FromWallet:    before.CurrentOwner,
		ToWallet:      newOwner,
		Balances: []BalanceDelta{
			{WalletID: before.CurrentOwner, CBDCType: before.CBDCType, Delta: before.Denomination.Neg()},
			{WalletID: newOwner, CBDCType: before.CBDCType, Delta: before.Denomination},
		},
	})
}

func newLedgerEvent(eventType domain.EventType, tokenID uuid.UUID, transactionID *uuid.UUID, wallets []uuid.UUID, at time.Time, payload interface{}) (schema.LedgerEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return schema.LedgerEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return schema.LedgerEvent{
		Type:          eventType,
		Family:        eventType.Family(),
		PartitionKey:  tokenID.String(),
		TokenID:       tokenID,
		TransactionID: transactionID,
		WalletIDs:     datatypes.JSONSlice[uuid.UUID](wallets),
		SchemaVersion: domain.EVENT_SCHEMA_VERSION,
		Payload:       datatypes.JSON(data),
		OccurredAt:    at,
	}, nil
}

// ToMessage encodes a persisted outbox row into a broker message
func ToMessage(e schema.LedgerEvent) (messaging.Message, error) {
	data, err := json.Marshal(Envelope{
		ID:            e.ID,
		Type:          e.Type,
		Family:        e.Family,
		Key:           e.PartitionKey,
		Timestamp:     e.OccurredAt,
		TokenID:       e.TokenID,
		TransactionID: e.TransactionID,
		WalletIDs:     []uuid.UUID(e.WalletIDs),
		TokenVersion:  e.TokenVersion,
		Version:       e.SchemaVersion,
		Payload:       json.RawMessage(e.Payload),
	})
	if err != nil {
		return messaging.Message{}, fmt.Errorf("failed to marshal event %d: %w", e.ID, err)
	}

	return messaging.Message{
		ID:        strconv.FormatInt(e.ID, 10),
		Family:    e.Family,
		Type:      e.Type,
		Key:       e.PartitionKey,
		Data:      data,
		Timestamp: e.OccurredAt,
	}, nil
}
