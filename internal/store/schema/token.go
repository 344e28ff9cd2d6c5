package schema

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-ledger/internal/domain"
)

// Token represents the tokens table - one row per issued CBDC value token
type Token struct {
	// TokenID is the immutable unique identifier of the token
	TokenID uuid.UUID `gorm:"column:token_id;primaryKey;type:uuid"`
	// CBDCType is the currency the token is denominated in (immutable)
	CBDCType domain.CBDCType `gorm:"column:cbdc_type;not null;type:varchar(20);index:idx_tokens_cbdc_type"`
	// Denomination is the positive face value of the token (immutable)
	Denomination decimal.Decimal `gorm:"column:denomination;not null;type:decimal(15,2)"`
	// CurrentOwner is the wallet currently holding the token, changed only by accepted transfers
	CurrentOwner uuid.UUID `gorm:"column:current_owner;not null;type:uuid;index:idx_tokens_current_owner;index:idx_tokens_owner_status,priority:1"`
	// Status is the lifecycle status of the token (active, frozen, disputed, invalid)
	Status domain.TokenStatus `gorm:"column:status;not null;type:varchar(20);default:active;index:idx_tokens_status;index:idx_tokens_owner_status,priority:2"`
	// IssueTimestamp is when the token was issued (immutable)
	IssueTimestamp time.Time `gorm:"column:issue_timestamp;not null;type:timestamptz;index:idx_tokens_issue_timestamp"`
	// TransactionHistory is the append-only ordered list of transfer transaction identifiers
	TransactionHistory datatypes.JSONSlice[uuid.UUID] `gorm:"column:transaction_history;not null;type:jsonb;default:'[]'"`
	// Metadata is opaque issuer supplied data
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb;default:'{}'"`
	// ComplianceFlags is opaque compliance screening data
	ComplianceFlags datatypes.JSON `gorm:"column:compliance_flags;type:jsonb;default:'{}'"`
	// Version is incremented on every accepted mutation and guards compare-and-swap updates
	Version int64 `gorm:"column:version;not null;default:1"`
	// CreatedAt is the timestamp when the row was inserted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz;index:idx_tokens_created_at"`
	// UpdatedAt is the timestamp of the latest mutation
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	AuditRecords []AuditRecord `gorm:"foreignKey:TokenID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}

// HasTransaction reports whether the transaction id is already in the token's history
func (t *Token) HasTransaction(txID uuid.UUID) bool {
	for _, id := range t.TransactionHistory {
		if id == txID {
			return true
		}
	}
	return false
}
