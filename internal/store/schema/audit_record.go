package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-ledger/internal/domain"
)

// AuditRecord represents the token_audit_trail table - one immutable row per accepted token mutation
type AuditRecord struct {
	// ID is an auto-incrementing sequence number that breaks timestamp ties
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID references the mutated token
	TokenID uuid.UUID `gorm:"column:token_id;not null;type:uuid;index:idx_audit_token_id"`
	// Operation is the kind of mutation (CREATE, STATUS_CHANGE, OWNERSHIP_TRANSFER)
	Operation domain.AuditOperation `gorm:"column:operation;not null;type:varchar(50);index:idx_audit_operation"`
	// OldStatus is the status before the mutation (only set when status changed)
	OldStatus *domain.TokenStatus `gorm:"column:old_status;type:varchar(20)"`
	// NewStatus is the status after the mutation (only set when status changed or on CREATE)
	NewStatus *domain.TokenStatus `gorm:"column:new_status;type:varchar(20)"`
	// OldOwner is the owner before the mutation (only set when ownership changed)
	OldOwner *uuid.UUID `gorm:"column:old_owner;type:uuid"`
	// NewOwner is the owner after the mutation (only set when ownership changed or on CREATE)
	NewOwner *uuid.UUID `gorm:"column:new_owner;type:uuid"`
	// TokenVersion is the token version the mutation produced
	TokenVersion int64 `gorm:"column:token_version;not null"`
	// Timestamp is the write time of the record
	Timestamp time.Time `gorm:"column:timestamp;not null;default:now();type:timestamptz;index:idx_audit_timestamp"`
	// Metadata contains additional context such as the transfer transaction id or change reason
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb;default:'{}'"`
}

// TableName specifies the table name for the AuditRecord model
func (AuditRecord) TableName() string {
	return "token_audit_trail"
}
