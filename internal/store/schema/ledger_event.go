package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-ledger/internal/domain"
)

// LedgerEvent represents the ledger_events table - the transactional outbox of events awaiting publication
type LedgerEvent struct {
	// ID is the monotonically assigned event identifier, consumers de-duplicate on it
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Type is the event type (e.g. token.issued)
	Type domain.EventType `gorm:"column:type;not null;type:varchar(50)"`
	// Family is the topic family the event is published to
	Family domain.EventFamily `gorm:"column:family;not null;type:varchar(50)"`
	// PartitionKey routes all events about one entity to the same partition
	PartitionKey string `gorm:"column:partition_key;not null;type:text"`
	// TokenID is the affected token
	TokenID uuid.UUID `gorm:"column:token_id;not null;type:uuid"`
	// TransactionID is the transfer transaction, if any
	TransactionID *uuid.UUID `gorm:"column:transaction_id;type:uuid"`
	// WalletIDs are the wallets whose holdings the event affects
	WalletIDs datatypes.JSONSlice[uuid.UUID] `gorm:"column:wallet_ids;not null;type:jsonb;default:'[]'"`
	// TokenVersion is the token version the event describes
	TokenVersion int64 `gorm:"column:token_version;not null"`
	// SchemaVersion is the payload schema version
	SchemaVersion int `gorm:"column:schema_version;not null;default:1"`
	// Payload is the type specific event body
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// OccurredAt is the commit time of the mutation
	OccurredAt time.Time `gorm:"column:occurred_at;not null;default:now();type:timestamptz"`
	// PublishedAt is set once the broker acknowledged the event
	PublishedAt *time.Time `gorm:"column:published_at;type:timestamptz"`
}

// TableName specifies the table name for the LedgerEvent model
func (LedgerEvent) TableName() string {
	return "ledger_events"
}
