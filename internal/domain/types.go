package domain

import (
	"github.com/google/uuid"
)

// TokenStatus represents the lifecycle status of a token
type TokenStatus string

const (
	TokenStatusActive   TokenStatus = "active"
	TokenStatusFrozen   TokenStatus = "frozen"
	TokenStatusDisputed TokenStatus = "disputed"
	TokenStatusInvalid  TokenStatus = "invalid"
)

// transitions lists the statuses reachable from each status. Invalid is terminal.
var transitions = map[TokenStatus][]TokenStatus{
	TokenStatusActive:   {TokenStatusFrozen, TokenStatusDisputed, TokenStatusInvalid},
	TokenStatusFrozen:   {TokenStatusActive, TokenStatusDisputed, TokenStatusInvalid},
	TokenStatusDisputed: {TokenStatusActive, TokenStatusInvalid},
	TokenStatusInvalid:  {},
}

// Valid checks if a status is one of the known statuses
func (s TokenStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves this status
func (s TokenStatus) Terminal() bool {
	return s == TokenStatusInvalid
}

// CanTransitionTo checks if the state machine permits moving from s to next
func (s TokenStatus) CanTransitionTo(next TokenStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// AllTokenStatuses returns every known status
func AllTokenStatuses() []TokenStatus {
	return []TokenStatus{TokenStatusActive, TokenStatusFrozen, TokenStatusDisputed, TokenStatusInvalid}
}

// CBDCType represents the currency a token is denominated in
type CBDCType string

const (
	CBDCTypeUSD CBDCType = "USD-CBDC"
	CBDCTypeEUR CBDCType = "EUR-CBDC"
	CBDCTypeGBP CBDCType = "GBP-CBDC"
)

// Valid checks if a CBDC type is supported
func (c CBDCType) Valid() bool {
	return c == CBDCTypeUSD ||
		c == CBDCTypeEUR ||
		c == CBDCTypeGBP
}

// AuditOperation represents the kind of mutation an audit record captures
type AuditOperation string

const (
	AuditOperationCreate            AuditOperation = "CREATE"
	AuditOperationStatusChange      AuditOperation = "STATUS_CHANGE"
	AuditOperationOwnershipTransfer AuditOperation = "OWNERSHIP_TRANSFER"
)

// Valid checks if an audit operation is known
func (o AuditOperation) Valid() bool {
	return o == AuditOperationCreate ||
		o == AuditOperationStatusChange ||
		o == AuditOperationOwnershipTransfer
}

// EventFamily groups event types that share a broker topic
type EventFamily string

const (
	EventFamilyTokens       EventFamily = "tokens"
	EventFamilyTransactions EventFamily = "transactions"
)

// EventType represents the type of a ledger event
type EventType string

const (
	EventTypeTokenIssued          EventType = "token.issued"
	EventTypeTokenStatusChanged   EventType = "token.status_changed"
	EventTypeTransactionCompleted EventType = "transaction.completed"
)

// Family returns the topic family of the event type
func (t EventType) Family() EventFamily {
	switch t {
	case EventTypeTransactionCompleted:
		return EventFamilyTransactions
	default:
		return EventFamilyTokens
	}
}

// Expectation is the caller's view of a token's state that must still hold for a mutation to apply.
// Nil fields are not checked.
type Expectation struct {
	Status *TokenStatus
	Owner  *uuid.UUID
}

// IsZero reports whether the expectation checks nothing
func (e Expectation) IsZero() bool {
	return e.Status == nil && e.Owner == nil
}

// ExpectStatus builds an expectation on status only
func ExpectStatus(s TokenStatus) Expectation {
	return Expectation{Status: &s}
}

// ExpectOwner builds an expectation on owner only
func ExpectOwner(owner uuid.UUID) Expectation {
	return Expectation{Owner: &owner}
}
