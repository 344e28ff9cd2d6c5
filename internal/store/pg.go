package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// If any of the pool settings are 0, the defaults of NormalizeConnectionPoolSettings are used.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// CreateTokens inserts tokens, audit records and outbox events atomically
func (s *pgStore) CreateTokens(ctx context.Context, inputs []CreateTokenInput) ([]schema.LedgerEvent, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	tokens := make([]schema.Token, len(inputs))
	audits := make([]schema.AuditRecord, len(inputs))
	events := make([]schema.LedgerEvent, len(inputs))
	for i, in := range inputs {
		tokens[i] = in.Token
		if tokens[i].Version == 0 {
			tokens[i].Version = 1
		}
		if tokens[i].TransactionHistory == nil {
			tokens[i].TransactionHistory = datatypes.JSONSlice[uuid.UUID]{}
		}
		audits[i] = in.Audit
		audits[i].TokenID = tokens[i].TokenID
		audits[i].TokenVersion = tokens[i].Version
		events[i] = in.Event
		events[i].TokenID = tokens[i].TokenID
		events[i].TokenVersion = tokens[i].Version
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Omit associations so gorm does not upsert the empty audit slice
		result := tx.Omit("AuditRecords").
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "token_id"}},
				DoNothing: true,
			}).
			Create(&tokens)
		if result.Error != nil {
			return fmt.Errorf("failed to create tokens: %w", result.Error)
		}
		if result.RowsAffected != int64(len(tokens)) {
			return fmt.Errorf("%w: token already exists", domain.ErrConflict)
		}

		if err := tx.Create(&audits).Error; err != nil {
			return fmt.Errorf("failed to create audit records: %w", err)
		}

		if err := tx.Create(&events).Error; err != nil {
			return fmt.Errorf("failed to create ledger events: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

// GetToken retrieves a token by id
func (s *pgStore) GetToken(ctx context.Context, tokenID uuid.UUID) (*schema.Token, error) {
	var token schema.Token
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return &token, nil
}

// CompareAndSwap applies a version guarded mutation with its audit record and outbox event
func (s *pgStore) CompareAndSwap(ctx context.Context, input CompareAndSwapInput) (*schema.Token, *schema.LedgerEvent, error) {
	var token schema.Token
	event := input.Event
	audit := input.Audit

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		history := input.Mutation.TransactionHistory
		if history == nil {
			history = []uuid.UUID{}
		}

		result := tx.Model(&schema.Token{}).
			Where("token_id = ? AND version = ?", input.TokenID, input.ExpectedVersion).
			Updates(map[string]interface{}{
				"status":              input.Mutation.Status,
				"current_owner":       input.Mutation.CurrentOwner,
				"transaction_history": datatypes.JSONSlice[uuid.UUID](history),
				"version":             gorm.Expr("version + 1"),
				"updated_at":          input.Mutation.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update token: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&schema.Token{}).Where("token_id = ?", input.TokenID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check token existence: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("%w: token %s", domain.ErrNotFound, input.TokenID)
			}
			return fmt.Errorf("%w: token %s is no longer at version %d", domain.ErrConflict, input.TokenID, input.ExpectedVersion)
		}

		if err := tx.Where("token_id = ?", input.TokenID).First(&token).Error; err != nil {
			return fmt.Errorf("failed to reload token: %w", err)
		}

		audit.TokenID = token.TokenID
		audit.TokenVersion = token.Version
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("failed to create audit record: %w", err)
		}

		event.TokenID = token.TokenID
		event.TokenVersion = token.Version
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create ledger event: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &token, &event, nil
}

// FindTokens retrieves tokens matching the filter from a single repeatable-read snapshot
func (s *pgStore) FindTokens(ctx context.Context, filter TokenFilter) ([]schema.Token, uint64, error) {
	var tokens []schema.Token
	var total int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := applyTokenFilter(tx.Model(&schema.Token{}), filter)
		if err := query.Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count tokens: %w", err)
		}

		query = applyTokenFilter(tx.Model(&schema.Token{}), filter).
			Order("created_at ASC, token_id ASC").
			Offset(int(filter.Offset)) //nolint:gosec,G115
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if err := query.Find(&tokens).Error; err != nil {
			return fmt.Errorf("failed to find tokens: %w", err)
		}

		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}

	return tokens, uint64(total), nil //nolint:gosec,G115
}

func applyTokenFilter(query *gorm.DB, filter TokenFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Owner != nil {
		query = query.Where("current_owner = ?", *filter.Owner)
	}
	if filter.CBDCType != nil {
		query = query.Where("cbdc_type = ?", *filter.CBDCType)
	}
	if len(filter.TokenIDs) > 0 {
		query = query.Where("token_id IN ?", filter.TokenIDs)
	}
	return query
}

// GetAuditTrail retrieves the audit records of a token ordered by timestamp, then token version, then insertion
func (s *pgStore) GetAuditTrail(ctx context.Context, tokenID uuid.UUID, filter AuditFilter) ([]schema.AuditRecord, error) {
	query := s.db.WithContext(ctx).Where("token_id = ?", tokenID)

	if len(filter.Operations) > 0 {
		query = query.Where("operation IN ?", filter.Operations)
	}
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp <= ?", *filter.To)
	}

	var records []schema.AuditRecord
	if err := query.Order("timestamp ASC, token_version ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}

	return records, nil
}

// GetUnpublishedEvents retrieves outbox events awaiting publication in event id order
func (s *pgStore) GetUnpublishedEvents(ctx context.Context, before time.Time, limit int) ([]schema.LedgerEvent, error) {
	query := s.db.WithContext(ctx).
		Where("published_at IS NULL AND occurred_at < ?", before).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var events []schema.LedgerEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to get unpublished events: %w", err)
	}

	return events, nil
}

// GetUnpublishedTokenVersions lists the versions still awaiting publication for the given tokens
func (s *pgStore) GetUnpublishedTokenVersions(ctx context.Context, tokenIDs []uuid.UUID) (map[uuid.UUID][]int64, error) {
	versions := make(map[uuid.UUID][]int64)
	if len(tokenIDs) == 0 {
		return versions, nil
	}

	var rows []struct {
		TokenID      uuid.UUID
		TokenVersion int64
	}
	err := s.db.WithContext(ctx).
		Model(&schema.LedgerEvent{}).
		Select("token_id, token_version").
		Where("published_at IS NULL AND token_id IN ?", tokenIDs).
		Order("token_id, token_version ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get unpublished token versions: %w", err)
	}

	for _, row := range rows {
		versions[row.TokenID] = append(versions[row.TokenID], row.TokenVersion)
	}

	return versions, nil
}

// MarkEventsPublished sets published_at on events that are not yet marked
func (s *pgStore) MarkEventsPublished(ctx context.Context, eventIDs []int64, publishedAt time.Time) error {
	if len(eventIDs) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Model(&schema.LedgerEvent{}).
		Where("id IN ? AND published_at IS NULL", eventIDs).
		Update("published_at", publishedAt).Error
	if err != nil {
		return fmt.Errorf("failed to mark events published: %w", err)
	}

	return nil
}

// PurgeToken deletes a token, the audit trail and events go with it through the cascading foreign keys
func (s *pgStore) PurgeToken(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	result := s.db.WithContext(ctx).Where("token_id = ?", tokenID).Delete(&schema.Token{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to purge token: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
