package executor_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-ledger/internal/api/shared/dto"
	"github.com/feral-file/ff-ledger/internal/api/shared/executor"
	"github.com/feral-file/ff-ledger/internal/audit"
	"github.com/feral-file/ff-ledger/internal/bulk"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/ledger"
	"github.com/feral-file/ff-ledger/internal/mocks"
	"github.com/feral-file/ff-ledger/internal/store"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

// testExecutorMocks contains all the mocks needed for testing the executor
type testExecutorMocks struct {
	ledger   *mocks.MockLedger
	bulk     *mocks.MockBulkOperator
	executor executor.Executor
}

func setupTestExecutor(t *testing.T) *testExecutorMocks {
	ctrl := gomock.NewController(t)
	l := mocks.NewMockLedger(ctrl)
	op := mocks.NewMockBulkOperator(ctrl)

	return &testExecutorMocks{
		ledger:   l,
		bulk:     op,
		executor: executor.NewExecutor(l, op),
	}
}

func buildToken(status domain.TokenStatus, owner uuid.UUID) *schema.Token {
	now := time.Now().UTC()
	return &schema.Token{
		TokenID:        uuid.New(),
		CBDCType:       domain.CBDCTypeUSD,
		Denomination:   decimal.RequireFromString("100"),
		CurrentOwner:   owner,
		Status:         status,
		IssueTimestamp: now,
		Metadata:       datatypes.JSON(`{"series":"A"}`),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestExecutor_IssueTokens(t *testing.T) {
	m := setupTestExecutor(t)
	owner := uuid.New()
	token := buildToken(domain.TokenStatusActive, owner)

	m.ledger.EXPECT().
		Issue(gomock.Any(), ledger.IssueInput{
			CBDCType:     domain.CBDCTypeUSD,
			Denomination: decimal.RequireFromString("100"),
			Owner:        owner,
			Quantity:     1,
			Issuer:       "central-bank",
			Metadata:     json.RawMessage(`{"series":"A"}`),
		}).
		Return([]schema.Token{*token}, nil)

	resp, err := m.executor.IssueTokens(context.Background(), dto.IssueTokensRequest{
		CBDCType:     domain.CBDCTypeUSD,
		Denomination: decimal.RequireFromString("100"),
		Owner:        owner,
		Quantity:     1,
		Issuer:       "central-bank",
		Metadata:     json.RawMessage(`{"series":"A"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Tokens, 1)

	got := resp.Tokens[0]
	assert.Equal(t, token.TokenID, got.TokenID)
	assert.Equal(t, "100.00", got.Denomination)
	assert.Equal(t, []uuid.UUID{}, got.TransactionHistory)
	assert.JSONEq(t, `{"series":"A"}`, string(got.Metadata))
}

func TestExecutor_ErrorsKeepTheirKind(t *testing.T) {
	m := setupTestExecutor(t)
	id := uuid.New()

	m.ledger.EXPECT().GetToken(gomock.Any(), id).Return(nil, fmt.Errorf("%w: token %s", domain.ErrNotFound, id))
	m.ledger.EXPECT().Freeze(gomock.Any(), id, "").Return(nil, fmt.Errorf("%w: invalid to frozen", domain.ErrInvalidTransition))

	_, err := m.executor.GetToken(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = m.executor.FreezeToken(context.Background(), id, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestExecutor_TransferTokenCarriesExpectation(t *testing.T) {
	m := setupTestExecutor(t)
	expected, newOwner := uuid.New(), uuid.New()
	token := buildToken(domain.TokenStatusActive, newOwner)

	m.ledger.EXPECT().
		Transfer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in ledger.TransferInput) (*schema.Token, error) {
			assert.Equal(t, token.TokenID, in.TokenID)
			assert.Equal(t, newOwner, in.NewOwner)
			assert.Equal(t, domain.ExpectOwner(expected), in.Expected)
			assert.Equal(t, "pos-7", in.Metadata["terminal"])
			return token, nil
		})

	resp, err := m.executor.TransferToken(context.Background(), token.TokenID, dto.TransferTokenRequest{
		NewOwner:      newOwner,
		ExpectedOwner: &expected,
		Metadata:      map[string]interface{}{"terminal": "pos-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, newOwner, resp.CurrentOwner)
}

func TestExecutor_TransferTokenCarriesStatusAndOwnerExpectation(t *testing.T) {
	m := setupTestExecutor(t)
	expectedOwner, newOwner := uuid.New(), uuid.New()
	active := domain.TokenStatusActive
	token := buildToken(domain.TokenStatusActive, newOwner)

	m.ledger.EXPECT().
		Transfer(gomock.Any(), ledger.TransferInput{
			TokenID:  token.TokenID,
			NewOwner: newOwner,
			Expected: domain.Expectation{Status: &active, Owner: &expectedOwner},
		}).
		Return(token, nil)

	_, err := m.executor.TransferToken(context.Background(), token.TokenID, dto.TransferTokenRequest{
		NewOwner:       newOwner,
		ExpectedOwner:  &expectedOwner,
		ExpectedStatus: &active,
	})
	require.NoError(t, err)
}

func TestExecutor_ChangeTokenStatus(t *testing.T) {
	m := setupTestExecutor(t)
	token := buildToken(domain.TokenStatusDisputed, uuid.New())
	active := domain.TokenStatusActive

	m.ledger.EXPECT().
		Transition(gomock.Any(), ledger.TransitionInput{
			TokenID:  token.TokenID,
			Expected: domain.ExpectStatus(active),
			Desired:  domain.TokenStatusDisputed,
			Reason:   "chargeback",
		}).
		Return(token, nil)

	resp, err := m.executor.ChangeTokenStatus(context.Background(), token.TokenID, dto.ChangeStatusRequest{
		Status:         domain.TokenStatusDisputed,
		ExpectedStatus: &active,
		Reason:         "chargeback",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusDisputed, resp.Status)
}

func TestExecutor_ResolveDispute(t *testing.T) {
	m := setupTestExecutor(t)
	token := buildToken(domain.TokenStatusActive, uuid.New())
	valid := true

	m.ledger.EXPECT().Resolve(gomock.Any(), token.TokenID, true, "cleared").Return(token, nil)

	resp, err := m.executor.ResolveDispute(context.Background(), token.TokenID, dto.ResolveDisputeRequest{Valid: &valid, Reason: "cleared"})
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusActive, resp.Status)

	_, err = m.executor.ResolveDispute(context.Background(), token.TokenID, dto.ResolveDisputeRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExecutor_ListTokensNextOffset(t *testing.T) {
	tests := []struct {
		name       string
		offset     uint64
		found      int
		total      uint64
		wantOffset *uint64
	}{
		{name: "more pages", offset: 0, found: 2, total: 5, wantOffset: func() *uint64 { v := uint64(2); return &v }()},
		{name: "last page", offset: 3, found: 2, total: 5},
		{name: "past the end", offset: 10, found: 0, total: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupTestExecutor(t)
			tokens := make([]schema.Token, tt.found)
			for i := range tokens {
				tokens[i] = *buildToken(domain.TokenStatusActive, uuid.New())
			}
			filter := store.TokenFilter{Limit: 2, Offset: tt.offset}

			m.ledger.EXPECT().FindTokens(gomock.Any(), filter).Return(tokens, tt.total, nil)

			resp, err := m.executor.ListTokens(context.Background(), filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, resp.Total)
			assert.Len(t, resp.Tokens, tt.found)
			assert.Equal(t, tt.wantOffset, resp.Offset)
		})
	}
}

func TestExecutor_GetAuditTrail(t *testing.T) {
	m := setupTestExecutor(t)
	owner := uuid.New()
	token := buildToken(domain.TokenStatusActive, owner)
	active := domain.TokenStatusActive
	records := []schema.AuditRecord{{
		ID:           1,
		TokenID:      token.TokenID,
		Operation:    domain.AuditOperationCreate,
		NewStatus:    &active,
		NewOwner:     &owner,
		TokenVersion: 1,
		Metadata:     datatypes.JSON(`{}`),
	}}
	filter := store.AuditFilter{Operations: []domain.AuditOperation{domain.AuditOperationCreate}}

	m.ledger.EXPECT().
		AuditTrail(gomock.Any(), token.TokenID, filter).
		Return(&ledger.AuditReport{
			Token:         token,
			Records:       records,
			Reconstructed: &audit.State{Status: active, Owner: owner},
			Consistent:    true,
		}, nil)

	resp, err := m.executor.GetAuditTrail(context.Background(), token.TokenID, filter)
	require.NoError(t, err)
	assert.True(t, resp.Consistent)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, domain.AuditOperationCreate, resp.Records[0].Operation)
	assert.Equal(t, owner, resp.Reconstructed.Owner)
	assert.Equal(t, token.TokenID, resp.Token.TokenID)
}

func TestExecutor_GetTokenHistory(t *testing.T) {
	m := setupTestExecutor(t)
	id, owner := uuid.New(), uuid.New()

	m.ledger.EXPECT().History(gomock.Any(), id).Return(&ledger.TokenHistory{TokenID: id, CurrentOwner: owner}, nil)

	resp, err := m.executor.GetTokenHistory(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, owner, resp.CurrentOwner)
	assert.Equal(t, []uuid.UUID{}, resp.TransactionHistory)
	assert.Empty(t, resp.Transfers)
}

func TestExecutor_VerifyOwnership(t *testing.T) {
	m := setupTestExecutor(t)
	id, owner := uuid.New(), uuid.New()

	m.ledger.EXPECT().VerifyOwnership(gomock.Any(), id, owner).Return(false, nil)

	resp, err := m.executor.VerifyOwnership(context.Background(), id, owner)
	require.NoError(t, err)
	assert.Equal(t, dto.VerifyOwnershipResponse{TokenID: id, Owner: owner, IsOwner: false}, *resp)
}

func TestExecutor_BulkChangeStatus(t *testing.T) {
	m := setupTestExecutor(t)
	owner := uuid.New()
	failed := uuid.New()

	m.bulk.EXPECT().
		Transition(gomock.Any(), bulk.Request{
			Filter:  &store.TokenFilter{Owner: &owner},
			Desired: domain.TokenStatusFrozen,
			Reason:  "sanctions",
		}).
		Return(&bulk.Result{
			Matched:   1,
			Requested: 1,
			Failed:    1,
			Outcomes:  []bulk.Outcome{{TokenID: failed, Code: "invalid_transition", Error: "invalid transition"}},
		}, nil)

	resp, err := m.executor.BulkChangeStatus(context.Background(), dto.BulkStatusRequest{
		Filter: &dto.BulkTokenFilter{Owner: &owner},
		Status: domain.TokenStatusFrozen,
		Reason: "sanctions",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resp.Matched)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, failed, resp.Results[0].TokenID)
	assert.False(t, resp.Results[0].Success)
}
