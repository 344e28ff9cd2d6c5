package dto

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apierrors "github.com/feral-file/ff-ledger/internal/api/shared/errors"
	"github.com/feral-file/ff-ledger/internal/domain"
)

// IssueTokensRequest represents the request body for issuing tokens
type IssueTokensRequest struct {
	CBDCType        domain.CBDCType `json:"cbdc_type"`
	Denomination    decimal.Decimal `json:"denomination"`
	Owner           uuid.UUID       `json:"owner"`
	Quantity        int             `json:"quantity"`
	Issuer          string          `json:"issuer"`
	Series          string          `json:"series"`
	Metadata        json.RawMessage `json:"metadata"`
	ComplianceFlags json.RawMessage `json:"compliance_flags"`
}

// Validate validates the request body
func (r *IssueTokensRequest) Validate() error {
	if r.CBDCType == "" {
		return apierrors.NewValidationError("cbdc_type is required")
	}

	if r.Owner == uuid.Nil {
		return apierrors.NewValidationError("owner is required")
	}

	return nil
}

// TransferTokenRequest represents the request body for transferring a token
type TransferTokenRequest struct {
	NewOwner       uuid.UUID              `json:"new_owner"`
	TransactionID  *uuid.UUID             `json:"transaction_id,omitempty"`
	ExpectedOwner  *uuid.UUID             `json:"expected_owner,omitempty"`
	ExpectedStatus *domain.TokenStatus    `json:"expected_status,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Validate validates the request body
func (r *TransferTokenRequest) Validate() error {
	if r.NewOwner == uuid.Nil {
		return apierrors.NewValidationError("new_owner is required")
	}

	if r.TransactionID != nil && *r.TransactionID == uuid.Nil {
		return apierrors.NewValidationError("transaction_id must not be the nil uuid")
	}

	if r.ExpectedStatus != nil && !r.ExpectedStatus.Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid expected_status: %q", *r.ExpectedStatus))
	}

	return nil
}

// ChangeStatusRequest represents the request body for a generic status change
type ChangeStatusRequest struct {
	Status         domain.TokenStatus  `json:"status"`
	ExpectedStatus *domain.TokenStatus `json:"expected_status,omitempty"`
	Reason         string              `json:"reason"`
}

// Validate validates the request body
func (r *ChangeStatusRequest) Validate() error {
	if !r.Status.Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid status: %q", r.Status))
	}

	if r.ExpectedStatus != nil && !r.ExpectedStatus.Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid expected_status: %q", *r.ExpectedStatus))
	}

	return nil
}

// ReasonRequest represents the optional request body of the convenience transitions
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ResolveDisputeRequest represents the request body for resolving a dispute
type ResolveDisputeRequest struct {
	// Valid reactivates the token when true and invalidates it when false
	Valid  *bool  `json:"valid"`
	Reason string `json:"reason"`
}

// Validate validates the request body
func (r *ResolveDisputeRequest) Validate() error {
	if r.Valid == nil {
		return apierrors.NewValidationError("valid is required")
	}

	return nil
}

// BulkTokenFilter selects the tokens of a bulk request by predicate
type BulkTokenFilter struct {
	Owner    *uuid.UUID          `json:"owner,omitempty"`
	Status   *domain.TokenStatus `json:"status,omitempty"`
	CBDCType *domain.CBDCType    `json:"cbdc_type,omitempty"`
}

// BulkStatusRequest represents the request body for a bulk status change
type BulkStatusRequest struct {
	TokenIDs []uuid.UUID        `json:"token_ids,omitempty"`
	Filter   *BulkTokenFilter   `json:"filter,omitempty"`
	Status   domain.TokenStatus `json:"status"`
	Reason   string             `json:"reason"`
}

// Validate validates the request body
func (r *BulkStatusRequest) Validate() error {
	if !r.Status.Valid() {
		return apierrors.NewValidationError(fmt.Sprintf("invalid status: %q", r.Status))
	}

	if len(r.TokenIDs) == 0 && r.Filter == nil {
		return apierrors.NewValidationError("either token_ids or filter is required")
	}

	if len(r.TokenIDs) > 0 && r.Filter != nil {
		return apierrors.NewValidationError("token_ids and filter are mutually exclusive")
	}

	if len(r.TokenIDs) > domain.MAX_BULK_TOKEN_IDS {
		return apierrors.NewValidationError(fmt.Sprintf("maximum %d token ids allowed", domain.MAX_BULK_TOKEN_IDS))
	}

	return nil
}
