package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

// TokenResponse represents a token
type TokenResponse struct {
	TokenID            uuid.UUID          `json:"token_id"`
	CBDCType           domain.CBDCType    `json:"cbdc_type"`
	Denomination       string             `json:"denomination"`
	CurrentOwner       uuid.UUID          `json:"current_owner"`
	Status             domain.TokenStatus `json:"status"`
	IssueTimestamp     time.Time          `json:"issue_timestamp"`
	TransactionHistory []uuid.UUID        `json:"transaction_history"`
	Metadata           json.RawMessage    `json:"metadata,omitempty"`
	ComplianceFlags    json.RawMessage    `json:"compliance_flags,omitempty"`
	Version            int64              `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// TokenListResponse represents a paginated list of tokens
type TokenListResponse struct {
	Tokens []TokenResponse `json:"items"`
	Offset *uint64         `json:"offset,omitempty"` // Offset for the next page, omitted on the last page
	Total  uint64          `json:"total"`
}

// IssueTokensResponse represents the tokens created by one issuance
type IssueTokensResponse struct {
	Tokens []TokenResponse `json:"tokens"`
	Count  int             `json:"count"`
}

// TokenHistoryResponse represents the transaction history of a token
type TokenHistoryResponse struct {
	TokenID            uuid.UUID             `json:"token_id"`
	CurrentOwner       uuid.UUID             `json:"current_owner"`
	TransactionHistory []uuid.UUID           `json:"transaction_history"`
	Transfers          []AuditRecordResponse `json:"transfers"`
}

// VerifyOwnershipResponse represents an ownership check
type VerifyOwnershipResponse struct {
	TokenID uuid.UUID `json:"token_id"`
	Owner   uuid.UUID `json:"owner"`
	IsOwner bool      `json:"is_owner"`
}

// MapTokenToDTO maps a schema.Token to TokenResponse
func MapTokenToDTO(token *schema.Token) *TokenResponse {
	if token == nil {
		return nil
	}

	history := []uuid.UUID(token.TransactionHistory)
	if history == nil {
		history = []uuid.UUID{}
	}

	return &TokenResponse{
		TokenID:            token.TokenID,
		CBDCType:           token.CBDCType,
		Denomination:       token.Denomination.StringFixed(domain.DENOMINATION_SCALE),
		CurrentOwner:       token.CurrentOwner,
		Status:             token.Status,
		IssueTimestamp:     token.IssueTimestamp,
		TransactionHistory: history,
		Metadata:           json.RawMessage(token.Metadata),
		ComplianceFlags:    json.RawMessage(token.ComplianceFlags),
		Version:            token.Version,
		CreatedAt:          token.CreatedAt,
		UpdatedAt:          token.UpdatedAt,
	}
}

// MapTokensToDTO maps a list of tokens
func MapTokensToDTO(tokens []schema.Token) []TokenResponse {
	result := make([]TokenResponse, 0, len(tokens))
	for i := range tokens {
		result = append(result, *MapTokenToDTO(&tokens[i]))
	}
	return result
}
