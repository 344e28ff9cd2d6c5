package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func statusPtr(s domain.TokenStatus) *domain.TokenStatus {
	return &s
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

// buildTestCreateInput creates an active USD token for the owner with its CREATE audit record and event
func buildTestCreateInput(owner uuid.UUID, denomination string) CreateTokenInput {
	now := time.Now().UTC()
	tokenID := uuid.New()
	payload, _ := json.Marshal(map[string]interface{}{"token_id": tokenID, "owner": owner})

	return CreateTokenInput{
		Token: schema.Token{
			TokenID:        tokenID,
			CBDCType:       domain.CBDCTypeUSD,
			Denomination:   decimal.RequireFromString(denomination),
			CurrentOwner:   owner,
			Status:         domain.TokenStatusActive,
			IssueTimestamp: now,
			Metadata:       datatypes.JSON(`{"series":"S1"}`),
		},
		Audit: schema.AuditRecord{
			Operation: domain.AuditOperationCreate,
			NewStatus: statusPtr(domain.TokenStatusActive),
			NewOwner:  uuidPtr(owner),
			Timestamp: now,
		},
		Event: schema.LedgerEvent{
			Type:          domain.EventTypeTokenIssued,
			Family:        domain.EventFamilyTokens,
			PartitionKey:  tokenID.String(),
			SchemaVersion: domain.EVENT_SCHEMA_VERSION,
			Payload:       payload,
			OccurredAt:    now,
		},
	}
}

// buildTestTransferSwap creates an ownership transfer swap at the expected version
func buildTestTransferSwap(tokenID uuid.UUID, expectedVersion int64, from, to uuid.UUID) CompareAndSwapInput {
	now := time.Now().UTC()
	txID := uuid.New()
	payload, _ := json.Marshal(map[string]interface{}{"transaction_id": txID})

	return CompareAndSwapInput{
		TokenID:         tokenID,
		ExpectedVersion: expectedVersion,
		Mutation: TokenMutation{
			Status:             domain.TokenStatusActive,
			CurrentOwner:       to,
			TransactionHistory: []uuid.UUID{txID},
			UpdatedAt:          now,
		},
		Audit: schema.AuditRecord{
			Operation: domain.AuditOperationOwnershipTransfer,
			OldOwner:  uuidPtr(from),
			NewOwner:  uuidPtr(to),
			Timestamp: now,
		},
		Event: schema.LedgerEvent{
			Type:          domain.EventTypeTransactionCompleted,
			Family:        domain.EventFamilyTransactions,
			PartitionKey:  tokenID.String(),
			TransactionID: uuidPtr(txID),
			SchemaVersion: domain.EVENT_SCHEMA_VERSION,
			Payload:       payload,
			OccurredAt:    now,
		},
	}
}

// buildTestStatusSwap creates a status change swap at the expected version
func buildTestStatusSwap(token *schema.Token, newStatus domain.TokenStatus) CompareAndSwapInput {
	now := time.Now().UTC()

	return CompareAndSwapInput{
		TokenID:         token.TokenID,
		ExpectedVersion: token.Version,
		Mutation: TokenMutation{
			Status:             newStatus,
			CurrentOwner:       token.CurrentOwner,
			TransactionHistory: token.TransactionHistory,
			UpdatedAt:          now,
		},
		Audit: schema.AuditRecord{
			Operation: domain.AuditOperationStatusChange,
			OldStatus: statusPtr(token.Status),
			NewStatus: statusPtr(newStatus),
			Timestamp: now,
		},
		Event: schema.LedgerEvent{
			Type:          domain.EventTypeTokenStatusChanged,
			Family:        domain.EventFamilyTokens,
			PartitionKey:  token.TokenID.String(),
			SchemaVersion: domain.EVENT_SCHEMA_VERSION,
			Payload:       datatypes.JSON(`{}`),
			OccurredAt:    now,
		},
	}
}

// =============================================================================
// Test: CreateTokens
// =============================================================================

func testCreateTokens(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("creates tokens with audit records and events", func(t *testing.T) {
		owner := uuid.New()
		inputs := []CreateTokenInput{
			buildTestCreateInput(owner, "100.00"),
			buildTestCreateInput(owner, "0.01"),
		}

		events, err := store.CreateTokens(ctx, inputs)
		require.NoError(t, err)
		require.Len(t, events, 2)

		for i, in := range inputs {
			token, err := store.GetToken(ctx, in.Token.TokenID)
			require.NoError(t, err)
			require.NotNil(t, token)
			assert.Equal(t, domain.CBDCTypeUSD, token.CBDCType)
			assert.True(t, in.Token.Denomination.Equal(token.Denomination))
			assert.Equal(t, owner, token.CurrentOwner)
			assert.Equal(t, domain.TokenStatusActive, token.Status)
			assert.Equal(t, int64(1), token.Version)
			assert.Empty(t, token.TransactionHistory)

			records, err := store.GetAuditTrail(ctx, in.Token.TokenID, AuditFilter{})
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, domain.AuditOperationCreate, records[0].Operation)
			assert.Nil(t, records[0].OldStatus)
			assert.Equal(t, owner, *records[0].NewOwner)
			assert.Equal(t, int64(1), records[0].TokenVersion)

			assert.NotZero(t, events[i].ID)
			assert.Equal(t, in.Token.TokenID, events[i].TokenID)
			assert.Equal(t, int64(1), events[i].TokenVersion)
		}
		assert.Greater(t, events[1].ID, events[0].ID)
	})

	t.Run("duplicate token id is a conflict and persists nothing", func(t *testing.T) {
		owner := uuid.New()
		existing := buildTestCreateInput(owner, "5.00")
		_, err := store.CreateTokens(ctx, []CreateTokenInput{existing})
		require.NoError(t, err)

		fresh := buildTestCreateInput(owner, "7.00")
		_, err = store.CreateTokens(ctx, []CreateTokenInput{fresh, existing})
		assert.ErrorIs(t, err, domain.ErrConflict)

		token, err := store.GetToken(ctx, fresh.Token.TokenID)
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("non-positive denomination is rejected by the database", func(t *testing.T) {
		input := buildTestCreateInput(uuid.New(), "0")
		_, err := store.CreateTokens(ctx, []CreateTokenInput{input})
		require.Error(t, err)

		token, err := store.GetToken(ctx, input.Token.TokenID)
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		events, err := store.CreateTokens(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, events)
	})
}

// =============================================================================
// Test: GetToken
// =============================================================================

func testGetToken(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing token returns nil", func(t *testing.T) {
		token, err := store.GetToken(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("metadata round trips", func(t *testing.T) {
		input := buildTestCreateInput(uuid.New(), "12.50")
		_, err := store.CreateTokens(ctx, []CreateTokenInput{input})
		require.NoError(t, err)

		token, err := store.GetToken(ctx, input.Token.TokenID)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.JSONEq(t, `{"series":"S1"}`, string(token.Metadata))
		assert.Equal(t, "12.5", token.Denomination.String())
	})
}

// =============================================================================
// Test: CompareAndSwap
// =============================================================================

func testCompareAndSwap(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("swap at current version applies mutation", func(t *testing.T) {
		from, to := uuid.New(), uuid.New()
		input := buildTestCreateInput(from, "100.00")
		_, err := store.CreateTokens(ctx, []CreateTokenInput{input})
		require.NoError(t, err)

		swap := buildTestTransferSwap(input.Token.TokenID, 1, from, to)
		token, event, err := store.CompareAndSwap(ctx, swap)
		require.NoError(t, err)
		require.NotNil(t, token)
		require.NotNil(t, event)

		assert.Equal(t, to, token.CurrentOwner)
		assert.Equal(t, int64(2), token.Version)
		assert.Equal(t, swap.Mutation.TransactionHistory, []uuid.UUID(token.TransactionHistory))
		assert.Equal(t, int64(2), event.TokenVersion)
		assert.Equal(t, input.Token.TokenID, event.TokenID)

		records, err := store.GetAuditTrail(ctx, input.Token.TokenID, AuditFilter{})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, domain.AuditOperationOwnershipTransfer, records[1].Operation)
		assert.Equal(t, int64(2), records[1].TokenVersion)
	})

	t.Run("stale version is a conflict and writes nothing", func(t *testing.T) {
		from := uuid.New()
		input := buildTestCreateInput(from, "100.00")
		_, err := store.CreateTokens(ctx, []CreateTokenInput{input})
		require.NoError(t, err)

		_, _, err = store.CompareAndSwap(ctx, buildTestTransferSwap(input.Token.TokenID, 1, from, uuid.New()))
		require.NoError(t, err)

		_, _, err = store.CompareAndSwap(ctx, buildTestTransferSwap(input.Token.TokenID, 1, from, uuid.New()))
		assert.ErrorIs(t, err, domain.ErrConflict)

		records, err := store.GetAuditTrail(ctx, input.Token.TokenID, AuditFilter{})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("missing token is not found", func(t *testing.T) {
		_, _, err := store.CompareAndSwap(ctx, buildTestTransferSwap(uuid.New(), 1, uuid.New(), uuid.New()))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("updated_at advances", func(t *testing.T) {
		input := buildTestCreateInput(uuid.New(), "1.00")
		input.Token.UpdatedAt = time.Now().UTC().Add(-time.Hour)
		_, err := store.CreateTokens(ctx, []CreateTokenInput{input})
		require.NoError(t, err)

		before, err := store.GetToken(ctx, input.Token.TokenID)
		require.NoError(t, err)

		token, _, err := store.CompareAndSwap(ctx, buildTestStatusSwap(before, domain.TokenStatusFrozen))
		require.NoError(t, err)
		assert.Equal(t, domain.TokenStatusFrozen, token.Status)
		assert.True(t, token.UpdatedAt.After(before.UpdatedAt))
		assert.WithinDuration(t, before.CreatedAt, token.CreatedAt, time.Millisecond)
	})
}

// =============================================================================
// Test: FindTokens
// =============================================================================

func testFindTokens(t *testing.T, store Store) {
	ctx := context.Background()

	owner := uuid.New()
	var inputs []CreateTokenInput
	for i := 0; i < 5; i++ {
		inputs = append(inputs, buildTestCreateInput(owner, "10.00"))
	}
	eur := buildTestCreateInput(owner, "20.00")
	eur.Token.CBDCType = domain.CBDCTypeEUR
	inputs = append(inputs, eur)
	_, err := store.CreateTokens(ctx, inputs)
	require.NoError(t, err)

	frozen, err := store.GetToken(ctx, inputs[0].Token.TokenID)
	require.NoError(t, err)
	_, _, err = store.CompareAndSwap(ctx, buildTestStatusSwap(frozen, domain.TokenStatusFrozen))
	require.NoError(t, err)

	t.Run("by owner", func(t *testing.T) {
		tokens, total, err := store.FindTokens(ctx, TokenFilter{Owner: &owner})
		require.NoError(t, err)
		assert.Equal(t, uint64(6), total)
		assert.Len(t, tokens, 6)
	})

	t.Run("by owner and status", func(t *testing.T) {
		status := domain.TokenStatusFrozen
		tokens, total, err := store.FindTokens(ctx, TokenFilter{Owner: &owner, Status: &status})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		require.Len(t, tokens, 1)
		assert.Equal(t, inputs[0].Token.TokenID, tokens[0].TokenID)
	})

	t.Run("by owner and cbdc type", func(t *testing.T) {
		cbdcType := domain.CBDCTypeEUR
		tokens, total, err := store.FindTokens(ctx, TokenFilter{Owner: &owner, CBDCType: &cbdcType})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		require.Len(t, tokens, 1)
		assert.Equal(t, eur.Token.TokenID, tokens[0].TokenID)
	})

	t.Run("by token ids", func(t *testing.T) {
		ids := []uuid.UUID{inputs[1].Token.TokenID, inputs[2].Token.TokenID, uuid.New()}
		tokens, total, err := store.FindTokens(ctx, TokenFilter{TokenIDs: ids})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), total)
		assert.Len(t, tokens, 2)
	})

	t.Run("pagination keeps the full count", func(t *testing.T) {
		page1, total, err := store.FindTokens(ctx, TokenFilter{Owner: &owner, Limit: 4})
		require.NoError(t, err)
		assert.Equal(t, uint64(6), total)
		assert.Len(t, page1, 4)

		page2, total, err := store.FindTokens(ctx, TokenFilter{Owner: &owner, Limit: 4, Offset: 4})
		require.NoError(t, err)
		assert.Equal(t, uint64(6), total)
		assert.Len(t, page2, 2)

		seen := map[uuid.UUID]bool{}
		for _, tok := range append(page1, page2...) {
			assert.False(t, seen[tok.TokenID])
			seen[tok.TokenID] = true
		}
	})
}

// =============================================================================
// Test: GetAuditTrail
// =============================================================================

func testGetAuditTrail(t *testing.T, store Store) {
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	input := buildTestCreateInput(a, "100.00")
	_, err := store.CreateTokens(ctx, []CreateTokenInput{input})
	require.NoError(t, err)

	token, _, err := store.CompareAndSwap(ctx, buildTestTransferSwap(input.Token.TokenID, 1, a, b))
	require.NoError(t, err)
	_, _, err = store.CompareAndSwap(ctx, buildTestStatusSwap(token, domain.TokenStatusFrozen))
	require.NoError(t, err)

	t.Run("full history in write order", func(t *testing.T) {
		records, err := store.GetAuditTrail(ctx, input.Token.TokenID, AuditFilter{})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, domain.AuditOperationCreate, records[0].Operation)
		assert.Equal(t, domain.AuditOperationOwnershipTransfer, records[1].Operation)
		assert.Equal(t, domain.AuditOperationStatusChange, records[2].Operation)
		for i, r := range records {
			assert.Equal(t, int64(i+1), r.TokenVersion)
		}
	})

	t.Run("filtered by operation", func(t *testing.T) {
		records, err := store.GetAuditTrail(ctx, input.Token.TokenID, AuditFilter{
			Operations: []domain.AuditOperation{domain.AuditOperationStatusChange},
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.TokenStatusFrozen, *records[0].NewStatus)
	})

	t.Run("filtered by time range", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		records, err := store.GetAuditTrail(ctx, input.Token.TokenID, AuditFilter{From: &future})
		require.NoError(t, err)
		assert.Empty(t, records)

		past := time.Now().Add(-time.Hour)
		records, err = store.GetAuditTrail(ctx, input.Token.TokenID, AuditFilter{From: &past, To: &future})
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("records sharing a timestamp follow token version", func(t *testing.T) {
		same := buildTestCreateInput(uuid.New(), "5.00")
		at := same.Audit.Timestamp
		_, err := store.CreateTokens(ctx, []CreateTokenInput{same})
		require.NoError(t, err)

		current, err := store.GetToken(ctx, same.Token.TokenID)
		require.NoError(t, err)
		for _, status := range []domain.TokenStatus{domain.TokenStatusFrozen, domain.TokenStatusActive, domain.TokenStatusDisputed} {
			swap := buildTestStatusSwap(current, status)
			swap.Audit.Timestamp = at
			current, _, err = store.CompareAndSwap(ctx, swap)
			require.NoError(t, err)
		}

		records, err := store.GetAuditTrail(ctx, same.Token.TokenID, AuditFilter{})
		require.NoError(t, err)
		require.Len(t, records, 4)
		for i, r := range records {
			assert.Equal(t, int64(i+1), r.TokenVersion)
		}
		assert.Equal(t, domain.TokenStatusDisputed, *records[3].NewStatus)
	})

	t.Run("unknown token has empty history", func(t *testing.T) {
		records, err := store.GetAuditTrail(ctx, uuid.New(), AuditFilter{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

// =============================================================================
// Test: Outbox events
// =============================================================================

func testOutboxEvents(t *testing.T, store Store) {
	ctx := context.Background()

	input := buildTestCreateInput(uuid.New(), "3.00")
	input.Event.OccurredAt = time.Now().UTC().Add(-time.Minute)
	events, err := store.CreateTokens(ctx, []CreateTokenInput{input})
	require.NoError(t, err)
	require.Len(t, events, 1)

	findOwn := func(events []schema.LedgerEvent) *schema.LedgerEvent {
		for i := range events {
			if events[i].TokenID == input.Token.TokenID {
				return &events[i]
			}
		}
		return nil
	}

	t.Run("event newer than the cutoff is not returned", func(t *testing.T) {
		pending, err := store.GetUnpublishedEvents(ctx, time.Now().Add(-time.Hour), 0)
		require.NoError(t, err)
		assert.Nil(t, findOwn(pending))
	})

	t.Run("event older than the cutoff is returned", func(t *testing.T) {
		pending, err := store.GetUnpublishedEvents(ctx, time.Now(), 0)
		require.NoError(t, err)
		own := findOwn(pending)
		require.NotNil(t, own)
		assert.Equal(t, domain.EventTypeTokenIssued, own.Type)
		assert.Nil(t, own.PublishedAt)
	})

	t.Run("published events are no longer returned", func(t *testing.T) {
		publishedAt := time.Now().UTC()
		require.NoError(t, store.MarkEventsPublished(ctx, []int64{events[0].ID}, publishedAt))
		// Marking twice keeps the first acknowledgement
		require.NoError(t, store.MarkEventsPublished(ctx, []int64{events[0].ID}, publishedAt.Add(time.Hour)))

		pending, err := store.GetUnpublishedEvents(ctx, time.Now(), 0)
		require.NoError(t, err)
		assert.Nil(t, findOwn(pending))
	})

	t.Run("empty id list is a no-op", func(t *testing.T) {
		require.NoError(t, store.MarkEventsPublished(ctx, nil, time.Now()))
	})

	t.Run("unpublished versions per token", func(t *testing.T) {
		other := buildTestCreateInput(uuid.New(), "4.00")
		created, err := store.CreateTokens(ctx, []CreateTokenInput{other})
		require.NoError(t, err)

		token, err := store.GetToken(ctx, other.Token.TokenID)
		require.NoError(t, err)
		token, _, err = store.CompareAndSwap(ctx, buildTestStatusSwap(token, domain.TokenStatusFrozen))
		require.NoError(t, err)
		_, _, err = store.CompareAndSwap(ctx, buildTestStatusSwap(token, domain.TokenStatusActive))
		require.NoError(t, err)

		unknown := uuid.New()
		versions, err := store.GetUnpublishedTokenVersions(ctx, []uuid.UUID{other.Token.TokenID, input.Token.TokenID, unknown})
		require.NoError(t, err)
		assert.Equal(t, map[uuid.UUID][]int64{other.Token.TokenID: {1, 2, 3}}, versions)

		require.NoError(t, store.MarkEventsPublished(ctx, []int64{created[0].ID}, time.Now()))
		versions, err = store.GetUnpublishedTokenVersions(ctx, []uuid.UUID{other.Token.TokenID})
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3}, versions[other.Token.TokenID])

		versions, err = store.GetUnpublishedTokenVersions(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, versions)
	})
}

// =============================================================================
// Test: PurgeToken
// =============================================================================

func testPurgeToken(t *testing.T, store Store) {
	ctx := context.Background()

	input := buildTestCreateInput(uuid.New(), "9.99")
	_, err := store.CreateTokens(ctx, []CreateTokenInput{input})
	require.NoError(t, err)

	deleted, err := store.PurgeToken(ctx, input.Token.TokenID)
	require.NoError(t, err)
	assert.True(t, deleted)

	records, err := store.GetAuditTrail(ctx, input.Token.TokenID, AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	deleted, err = store.PurgeToken(ctx, input.Token.TokenID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

// RunStoreTests runs all store tests against the given implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"CreateTokens", testCreateTokens},
		{"GetToken", testGetToken},
		{"CompareAndSwap", testCompareAndSwap},
		{"FindTokens", testFindTokens},
		{"GetAuditTrail", testGetAuditTrail},
		{"OutboxEvents", testOutboxEvents},
		{"PurgeToken", testPurgeToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
