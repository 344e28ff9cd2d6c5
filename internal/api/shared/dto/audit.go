package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/feral-file/ff-ledger/internal/audit"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

// AuditRecordResponse represents one audit trail record
type AuditRecordResponse struct {
	ID           int64                 `json:"id"`
	Operation    domain.AuditOperation `json:"operation"`
	OldStatus    *domain.TokenStatus   `json:"old_status,omitempty"`
	NewStatus    *domain.TokenStatus   `json:"new_status,omitempty"`
	OldOwner     *uuid.UUID            `json:"old_owner,omitempty"`
	NewOwner     *uuid.UUID            `json:"new_owner,omitempty"`
	TokenVersion int64                 `json:"token_version"`
	Timestamp    time.Time             `json:"timestamp"`
	Metadata     json.RawMessage       `json:"metadata,omitempty"`
}

// AuditTrailResponse represents the audit trail of a token verified against its current state
type AuditTrailResponse struct {
	TokenID       uuid.UUID             `json:"token_id"`
	Token         *TokenResponse        `json:"token"`
	Records       []AuditRecordResponse `json:"records"`
	Reconstructed *audit.State          `json:"reconstructed_state,omitempty"`
	Consistent    bool                  `json:"consistent"`
}

// MapAuditRecordToDTO maps a schema.AuditRecord to AuditRecordResponse
func MapAuditRecordToDTO(record *schema.AuditRecord) *AuditRecordResponse {
	if record == nil {
		return nil
	}

	return &AuditRecordResponse{
		ID:           record.ID,
		Operation:    record.Operation,
		OldStatus:    record.OldStatus,
		NewStatus:    record.NewStatus,
		OldOwner:     record.OldOwner,
		NewOwner:     record.NewOwner,
		TokenVersion: record.TokenVersion,
		Timestamp:    record.Timestamp,
		Metadata:     json.RawMessage(record.Metadata),
	}
}

// MapAuditRecordsToDTO maps a list of audit records
func MapAuditRecordsToDTO(records []schema.AuditRecord) []AuditRecordResponse {
	result := make([]AuditRecordResponse, 0, len(records))
	for i := range records {
		result = append(result, *MapAuditRecordToDTO(&records[i]))
	}
	return result
}
