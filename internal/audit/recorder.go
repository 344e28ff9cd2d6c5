// Package audit builds the immutable audit records of accepted token mutations and replays them.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

// Metadata is the free form context attached to an audit record
type Metadata map[string]interface{}

// NewCreateRecord builds the CREATE record of a newly issued token.
// Only the new side of each dimension is set.
func NewCreateRecord(token *schema.Token, at time.Time, metadata Metadata) (schema.AuditRecord, error) {
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return schema.AuditRecord{}, err
	}

	status := token.Status
	owner := token.CurrentOwner

	return schema.AuditRecord{
		TokenID:      token.TokenID,
		Operation:    domain.AuditOperationCreate,
		NewStatus:    &status,
		NewOwner:     &owner,
		TokenVersion: token.Version,
		Timestamp:    at,
		Metadata:     meta,
	}, nil
}

// NewChangeRecord builds the record of a mutation from before to the given status and owner.
// Exactly one dimension must change, the other stays null in the record.
func NewChangeRecord(before *schema.Token, status domain.TokenStatus, owner uuid.UUID, at time.Time, metadata Metadata) (schema.AuditRecord, error) {
	statusChanged := before.Status != status
	ownerChanged := before.CurrentOwner != owner

	record := schema.AuditRecord{
		TokenID:   before.TokenID,
		Timestamp: at,
	}

	switch {
	case statusChanged && ownerChanged:
		return schema.AuditRecord{}, fmt.Errorf("%w: status and owner cannot change in one mutation", domain.ErrInvalidOperation)
	case statusChanged:
		oldStatus := before.Status
		record.Operation = domain.AuditOperationStatusChange
		record.OldStatus = &oldStatus
		record.NewStatus = &status
	case ownerChanged:
		oldOwner := before.CurrentOwner
		record.Operation = domain.AuditOperationOwnershipTransfer
		record.OldOwner = &oldOwner
		record.NewOwner = &owner
	default:
		return schema.AuditRecord{}, fmt.Errorf("%w: mutation changes nothing", domain.ErrInvalidOperation)
	}

	meta, err := encodeMetadata(metadata)
	if err != nil {
		return schema.AuditRecord{}, err
	}
	record.Metadata = meta

	return record, nil
}

func encodeMetadata(metadata Metadata) (datatypes.JSON, error) {
	if len(metadata) == 0 {
		return datatypes.JSON(`{}`), nil
	}

	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	return datatypes.JSON(b), nil
}
