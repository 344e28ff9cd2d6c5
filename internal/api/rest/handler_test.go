package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-ledger/internal/api/middleware"
	"github.com/feral-file/ff-ledger/internal/api/rest"
	"github.com/feral-file/ff-ledger/internal/api/shared/dto"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/events"
	"github.com/feral-file/ff-ledger/internal/logger"
	"github.com/feral-file/ff-ledger/internal/mocks"
	"github.com/feral-file/ff-ledger/internal/store"
)

const testAPIKey = "test-api-key"

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	gin.SetMode(gin.TestMode)

	code := m.Run()
	os.Exit(code)
}

// fixedStats reports a constant publisher snapshot
type fixedStats events.Stats

func (s fixedStats) Stats() events.Stats {
	return events.Stats(s)
}

// testHandlerMocks contains all the mocks needed for testing the handler
type testHandlerMocks struct {
	ctrl     *gomock.Controller
	executor *mocks.MockAPIExecutor
	router   *gin.Engine
}

// setupTestHandler creates a router serving the REST routes on a mocked executor
func setupTestHandler(t *testing.T) *testHandlerMocks {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockAPIExecutor(ctrl)

	auth, err := middleware.NewAuthenticator(middleware.AuthConfig{APIKeys: []string{testAPIKey}})
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.RequestID())
	rest.SetupRoutes(router, rest.NewHandler(exec, fixedStats{Queued: 3, Published: 42}), auth.Middleware())

	return &testHandlerMocks{
		ctrl:     ctrl,
		executor: exec,
		router:   router,
	}
}

// do sends a request to the router, mutating requests are authenticated unless anonymous is set
func (m *testHandlerMocks) do(method, path string, body interface{}, anonymous bool) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !anonymous {
		req.Header.Set("Authorization", "ApiKey "+testAPIKey)
	}

	rec := httptest.NewRecorder()
	m.router.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code          string `json:"code"`
		Message       string `json:"message"`
		Details       string `json:"details"`
		CorrelationID string `json:"correlation_id"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHandler_GetToken(t *testing.T) {
	m := setupTestHandler(t)
	tokenID := uuid.New()

	m.executor.EXPECT().
		GetToken(gomock.Any(), tokenID).
		Return(&dto.TokenResponse{TokenID: tokenID, Status: domain.TokenStatusActive, Denomination: "100.00"}, nil)

	rec := m.do(http.MethodGet, "/api/v1/tokens/"+tokenID.String(), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var got dto.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, tokenID, got.TokenID)
	assert.Equal(t, "100.00", got.Denomination)
	assert.NotEmpty(t, rec.Header().Get(middleware.REQUEST_ID_HEADER))
}

func TestHandler_InvalidTokenID(t *testing.T) {
	m := setupTestHandler(t)

	for _, id := range []string{"not-a-uuid", uuid.Nil.String()} {
		rec := m.do(http.MethodGet, "/api/v1/tokens/"+id, nil, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "bad_request", decodeError(t, rec).Error.Code)
	}
}

func TestHandler_LedgerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "conflict", err: domain.ErrConflict, wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "invalid transition", err: domain.ErrInvalidTransition, wantStatus: http.StatusConflict, wantCode: "invalid_transition"},
		{name: "invalid operation", err: domain.ErrInvalidOperation, wantStatus: http.StatusConflict, wantCode: "invalid_operation"},
		{name: "validation", err: domain.ErrValidation, wantStatus: http.StatusBadRequest, wantCode: "validation_failed"},
		{name: "internal", err: errors.New("connection reset by peer"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupTestHandler(t)
			tokenID := uuid.New()

			m.executor.EXPECT().
				FreezeToken(gomock.Any(), tokenID, "").
				Return(nil, fmt.Errorf("failed to change token status: %w", tt.err))

			rec := m.do(http.MethodPost, "/api/v1/tokens/"+tokenID.String()+"/freeze", nil, false)
			assert.Equal(t, tt.wantStatus, rec.Code)

			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, rec.Header().Get(middleware.REQUEST_ID_HEADER), body.Error.CorrelationID)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "connection reset", "internal details stay in the logs")
			}
		})
	}
}

func TestHandler_CorrelationIDFromClient(t *testing.T) {
	m := setupTestHandler(t)
	tokenID := uuid.New()

	m.executor.EXPECT().GetToken(gomock.Any(), tokenID).Return(nil, errors.New("boom"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tokens/"+tokenID.String(), nil)
	req.Header.Set(middleware.REQUEST_ID_HEADER, "req-123")
	rec := httptest.NewRecorder()
	m.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-123", decodeError(t, rec).Error.CorrelationID)
}

func TestHandler_MutationsRequireAuthentication(t *testing.T) {
	m := setupTestHandler(t)
	tokenID := uuid.New().String()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/tokens"},
		{http.MethodPost, "/api/v1/tokens/" + tokenID + "/transfer"},
		{http.MethodDelete, "/api/v1/tokens/" + tokenID},
		{http.MethodPost, "/api/v1/tokens/" + tokenID + "/status"},
		{http.MethodPost, "/api/v1/tokens/" + tokenID + "/freeze"},
		{http.MethodPost, "/api/v1/tokens/" + tokenID + "/unfreeze"},
		{http.MethodPost, "/api/v1/tokens/" + tokenID + "/dispute"},
		{http.MethodPost, "/api/v1/tokens/" + tokenID + "/resolve"},
		{http.MethodPost, "/api/v1/tokens/bulk/status"},
	}

	for _, r := range routes {
		rec := m.do(r.method, r.path, nil, true)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.path)
		assert.Equal(t, "unauthorized", decodeError(t, rec).Error.Code)
	}
}

func TestHandler_IssueTokens(t *testing.T) {
	m := setupTestHandler(t)
	owner := uuid.New()

	m.executor.EXPECT().
		IssueTokens(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req dto.IssueTokensRequest) (*dto.IssueTokensResponse, error) {
			assert.Equal(t, domain.CBDCTypeUSD, req.CBDCType)
			assert.Equal(t, "100.5", req.Denomination.String())
			assert.Equal(t, owner, req.Owner)
			assert.Equal(t, 2, req.Quantity)
			assert.JSONEq(t, `{"batch":"A"}`, string(req.Metadata))
			return &dto.IssueTokensResponse{Tokens: []dto.TokenResponse{{}, {}}, Count: 2}, nil
		})

	rec := m.do(http.MethodPost, "/api/v1/tokens", map[string]interface{}{
		"cbdc_type":    "USD-CBDC",
		"denomination": "100.50",
		"owner":        owner,
		"quantity":     2,
		"metadata":     map[string]string{"batch": "A"},
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got dto.IssueTokensResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
}

func TestHandler_IssueTokensRejectsBadBody(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing owner", body: map[string]interface{}{"cbdc_type": "USD-CBDC", "denomination": "1.00"}},
		{name: "missing cbdc type", body: map[string]interface{}{"owner": uuid.New(), "denomination": "1.00"}},
		{name: "malformed owner", body: map[string]interface{}{"cbdc_type": "USD-CBDC", "owner": "wallet-a"}},
		{name: "malformed denomination", body: map[string]interface{}{"cbdc_type": "USD-CBDC", "owner": uuid.New(), "denomination": "ten"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupTestHandler(t)

			rec := m.do(http.MethodPost, "/api/v1/tokens", tt.body, false)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "validation_failed", decodeError(t, rec).Error.Code)
		})
	}
}

func TestHandler_TransferToken(t *testing.T) {
	m := setupTestHandler(t)
	tokenID, newOwner, expected := uuid.New(), uuid.New(), uuid.New()

	m.executor.EXPECT().
		TransferToken(gomock.Any(), tokenID, dto.TransferTokenRequest{NewOwner: newOwner, ExpectedOwner: &expected}).
		Return(&dto.TokenResponse{TokenID: tokenID, CurrentOwner: newOwner}, nil)

	rec := m.do(http.MethodPost, "/api/v1/tokens/"+tokenID.String()+"/transfer", map[string]interface{}{
		"new_owner":      newOwner,
		"expected_owner": expected,
	}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got dto.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, newOwner, got.CurrentOwner)
}

func TestHandler_TransferTokenRequiresNewOwner(t *testing.T) {
	m := setupTestHandler(t)

	rec := m.do(http.MethodPost, "/api/v1/tokens/"+uuid.NewString()+"/transfer", map[string]interface{}{}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ConvenienceTransitions(t *testing.T) {
	m := setupTestHandler(t)
	tokenID := uuid.New()
	path := "/api/v1/tokens/" + tokenID.String()
	ok := &dto.TokenResponse{TokenID: tokenID}

	gomock.InOrder(
		m.executor.EXPECT().FreezeToken(gomock.Any(), tokenID, "aml review").Return(ok, nil),
		m.executor.EXPECT().UnfreezeToken(gomock.Any(), tokenID, "").Return(ok, nil),
		m.executor.EXPECT().DisputeToken(gomock.Any(), tokenID, "chargeback").Return(ok, nil),
		m.executor.EXPECT().InvalidateToken(gomock.Any(), tokenID, "").Return(ok, nil),
	)

	assert.Equal(t, http.StatusOK, m.do(http.MethodPost, path+"/freeze", map[string]string{"reason": "aml review"}, false).Code)
	assert.Equal(t, http.StatusOK, m.do(http.MethodPost, path+"/unfreeze", nil, false).Code)
	assert.Equal(t, http.StatusOK, m.do(http.MethodPost, path+"/dispute", map[string]string{"reason": "chargeback"}, false).Code)
	assert.Equal(t, http.StatusOK, m.do(http.MethodDelete, path, nil, false).Code)
}

func TestHandler_ResolveDispute(t *testing.T) {
	m := setupTestHandler(t)
	tokenID := uuid.New()
	path := "/api/v1/tokens/" + tokenID.String() + "/resolve"

	m.executor.EXPECT().
		ResolveDispute(gomock.Any(), tokenID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, req dto.ResolveDisputeRequest) (*dto.TokenResponse, error) {
			require.NotNil(t, req.Valid)
			assert.False(t, *req.Valid)
			return &dto.TokenResponse{TokenID: tokenID, Status: domain.TokenStatusInvalid}, nil
		})

	rec := m.do(http.MethodPost, path, map[string]interface{}{"valid": false, "reason": "fraud"}, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The outcome must be explicit
	rec = m.do(http.MethodPost, path, map[string]interface{}{"reason": "fraud"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ChangeTokenStatus(t *testing.T) {
	m := setupTestHandler(t)
	tokenID := uuid.New()
	path := "/api/v1/tokens/" + tokenID.String() + "/status"
	frozen := domain.TokenStatusFrozen

	m.executor.EXPECT().
		ChangeTokenStatus(gomock.Any(), tokenID, dto.ChangeStatusRequest{
			Status:         domain.TokenStatusActive,
			ExpectedStatus: &frozen,
			Reason:         "cleared",
		}).
		Return(&dto.TokenResponse{TokenID: tokenID, Status: domain.TokenStatusActive}, nil)

	rec := m.do(http.MethodPost, path, map[string]interface{}{
		"status":          "active",
		"expected_status": "frozen",
		"reason":          "cleared",
	}, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = m.do(http.MethodPost, path, map[string]interface{}{"status": "melted"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListWalletTokens(t *testing.T) {
	m := setupTestHandler(t)
	wallet := uuid.New()
	frozen := domain.TokenStatusFrozen
	eur := domain.CBDCTypeEUR
	next := uint64(110)

	m.executor.EXPECT().
		ListTokens(gomock.Any(), store.TokenFilter{
			Owner:    &wallet,
			Status:   &frozen,
			CBDCType: &eur,
			Limit:    100,
			Offset:   10,
		}).
		Return(&dto.TokenListResponse{Tokens: []dto.TokenResponse{}, Offset: &next, Total: 500}, nil)

	rec := m.do(http.MethodGet,
		"/api/v1/wallets/"+wallet.String()+"/tokens?status=frozen&cbdc_type=EUR-CBDC&limit=1000&offset=10", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got dto.TokenListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(500), got.Total)
	require.NotNil(t, got.Offset)
	assert.Equal(t, next, *got.Offset)
}

func TestHandler_ListWalletTokensRejectsBadFilters(t *testing.T) {
	m := setupTestHandler(t)
	path := "/api/v1/wallets/" + uuid.NewString() + "/tokens"

	for _, query := range []string{"?status=melted", "?cbdc_type=BTC", "?limit=ten"} {
		rec := m.do(http.MethodGet, path+query, nil, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestHandler_ListTokensByStatusAndType(t *testing.T) {
	m := setupTestHandler(t)
	disputed := domain.TokenStatusDisputed
	gbp := domain.CBDCTypeGBP

	m.executor.EXPECT().
		ListTokens(gomock.Any(), store.TokenFilter{Status: &disputed, Limit: 20}).
		Return(&dto.TokenListResponse{Tokens: []dto.TokenResponse{}}, nil)
	m.executor.EXPECT().
		ListTokens(gomock.Any(), store.TokenFilter{CBDCType: &gbp, Limit: 5}).
		Return(&dto.TokenListResponse{Tokens: []dto.TokenResponse{}}, nil)

	assert.Equal(t, http.StatusOK, m.do(http.MethodGet, "/api/v1/tokens/status/disputed", nil, true).Code)
	assert.Equal(t, http.StatusOK, m.do(http.MethodGet, "/api/v1/tokens/cbdc/GBP-CBDC?limit=5", nil, true).Code)
	assert.Equal(t, http.StatusBadRequest, m.do(http.MethodGet, "/api/v1/tokens/status/melted", nil, true).Code)
	assert.Equal(t, http.StatusBadRequest, m.do(http.MethodGet, "/api/v1/tokens/cbdc/BTC", nil, true).Code)
}

func TestHandler_GetAuditTrail(t *testing.T) {
	m := setupTestHandler(t)
	tokenID := uuid.New()

	m.executor.EXPECT().
		GetAuditTrail(gomock.Any(), tokenID, store.AuditFilter{
			Operations: []domain.AuditOperation{domain.AuditOperationStatusChange},
		}).
		Return(&dto.AuditTrailResponse{TokenID: tokenID, Consistent: true}, nil)

	rec := m.do(http.MethodGet, "/api/v1/tokens/"+tokenID.String()+"/audit?operation=STATUS_CHANGE", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got dto.AuditTrailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Consistent)

	rec = m.do(http.MethodGet, "/api/v1/tokens/"+tokenID.String()+"/audit?operation=DELETE", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = m.do(http.MethodGet,
		"/api/v1/tokens/"+tokenID.String()+"/audit?from=2025-02-01T00:00:00Z&to=2025-01-01T00:00:00Z", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetTokenHistoryAndVerifyOwnership(t *testing.T) {
	m := setupTestHandler(t)
	tokenID, owner := uuid.New(), uuid.New()

	m.executor.EXPECT().
		GetTokenHistory(gomock.Any(), tokenID).
		Return(&dto.TokenHistoryResponse{TokenID: tokenID, CurrentOwner: owner}, nil)
	m.executor.EXPECT().
		VerifyOwnership(gomock.Any(), tokenID, owner).
		Return(&dto.VerifyOwnershipResponse{TokenID: tokenID, Owner: owner, IsOwner: true}, nil)

	rec := m.do(http.MethodGet, "/api/v1/tokens/"+tokenID.String()+"/history", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = m.do(http.MethodGet, "/api/v1/tokens/"+tokenID.String()+"/verify/"+owner.String(), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var got dto.VerifyOwnershipResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.IsOwner)
}

func TestHandler_BulkChangeStatus(t *testing.T) {
	m := setupTestHandler(t)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	m.executor.EXPECT().
		BulkChangeStatus(gomock.Any(), dto.BulkStatusRequest{TokenIDs: ids, Status: domain.TokenStatusFrozen, Reason: "sanctions"}).
		Return(&dto.BulkStatusResponse{
			Requested: 2,
			Succeeded: 1,
			Failed:    1,
			Results: []dto.BulkOutcomeResponse{
				{TokenID: ids[0], Success: true, Status: domain.TokenStatusFrozen},
				{TokenID: ids[1], Code: "invalid_transition", Error: "invalid transition"},
			},
		}, nil)

	rec := m.do(http.MethodPost, "/api/v1/tokens/bulk/status", map[string]interface{}{
		"token_ids": ids,
		"status":    "frozen",
		"reason":    "sanctions",
	}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got dto.BulkStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, "invalid_transition", got.Results[1].Code)
}

func TestHandler_BulkChangeStatusValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{name: "no selection", body: map[string]interface{}{"status": "frozen"}},
		{name: "both selections", body: map[string]interface{}{
			"status":    "frozen",
			"token_ids": []uuid.UUID{uuid.New()},
			"filter":    map[string]string{"status": "active"},
		}},
		{name: "unknown status", body: map[string]interface{}{"status": "melted", "token_ids": []uuid.UUID{uuid.New()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupTestHandler(t)

			rec := m.do(http.MethodPost, "/api/v1/tokens/bulk/status", tt.body, false)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_HealthCheck(t *testing.T) {
	m := setupTestHandler(t)

	rec := m.do(http.MethodGet, "/health", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var got dto.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 3, got.Publisher.Queued)
	assert.Equal(t, uint64(42), got.Publisher.Published)
}
