package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-ledger/internal/api/shared/constants"
	"github.com/feral-file/ff-ledger/internal/api/shared/dto"
	"github.com/feral-file/ff-ledger/internal/api/shared/executor"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/events"
	"github.com/feral-file/ff-ledger/internal/store"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// IssueTokens issues one or more tokens to a wallet
	// POST /api/v1/tokens
	IssueTokens(c *gin.Context)

	// GetToken retrieves a single token by its id
	// GET /api/v1/tokens/:id
	GetToken(c *gin.Context)

	// TransferToken transfers a token to a new owner
	// POST /api/v1/tokens/:id/transfer
	TransferToken(c *gin.Context)

	// InvalidateToken marks a token as permanently invalid
	// DELETE /api/v1/tokens/:id
	InvalidateToken(c *gin.Context)

	// ChangeTokenStatus moves a token to the requested status
	// POST /api/v1/tokens/:id/status
	ChangeTokenStatus(c *gin.Context)

	// FreezeToken, UnfreezeToken, DisputeToken and ResolveDispute are the convenience transitions
	// POST /api/v1/tokens/:id/freeze|unfreeze|dispute|resolve
	FreezeToken(c *gin.Context)
	UnfreezeToken(c *gin.Context)
	DisputeToken(c *gin.Context)
	ResolveDispute(c *gin.Context)

	// GetTokenHistory retrieves the transaction history of a token
	// GET /api/v1/tokens/:id/history
	GetTokenHistory(c *gin.Context)

	// GetAuditTrail retrieves the audit trail of a token with its replay check
	// GET /api/v1/tokens/:id/audit?operation=<op1>&operation=<op2>&from=<rfc3339>&to=<rfc3339>
	GetAuditTrail(c *gin.Context)

	// VerifyOwnership checks whether a wallet owns a token
	// GET /api/v1/tokens/:id/verify/:owner
	VerifyOwnership(c *gin.Context)

	// ListWalletTokens retrieves the tokens of a wallet
	// GET /api/v1/wallets/:id/tokens?status=<status>&cbdc_type=<type>&limit=<limit>&offset=<offset>
	ListWalletTokens(c *gin.Context)

	// ListTokensByStatus retrieves tokens in a status
	// GET /api/v1/tokens/status/:status?limit=<limit>&offset=<offset>
	ListTokensByStatus(c *gin.Context)

	// ListTokensByCBDCType retrieves tokens of a currency
	// GET /api/v1/tokens/cbdc/:type?limit=<limit>&offset=<offset>
	ListTokensByCBDCType(c *gin.Context)

	// BulkChangeStatus applies a status change to many tokens
	// POST /api/v1/tokens/bulk/status
	BulkChangeStatus(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// PublisherStats reports the state of the event publisher
type PublisherStats interface {
	Stats() events.Stats
}

// handler implements the Handler interface
type handler struct {
	executor  executor.Executor
	publisher PublisherStats
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor, publisher PublisherStats) Handler {
	return &handler{
		executor:  exec,
		publisher: publisher,
	}
}

// parseUUIDParam parses a path parameter as a uuid, responding with 400 when it is not one
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		respondBadRequest(c, fmt.Sprintf("Invalid %s", name), "must be a non-nil uuid")
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds the request body when there is one
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// IssueTokens issues one or more tokens to a wallet
func (h *handler) IssueTokens(c *gin.Context) {
	var req dto.IssueTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	// Validate request body
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	response, err := h.executor.IssueTokens(c.Request.Context(), req)
	if err != nil {
		respondLedgerError(c, err, "Failed to issue tokens",
			zap.String("cbdc_type", string(req.CBDCType)),
			zap.Stringer("owner", req.Owner),
		)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetToken retrieves a single token by its id
func (h *handler) GetToken(c *gin.Context) {
	tokenID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	token, err := h.executor.GetToken(c.Request.Context(), tokenID)
	if err != nil {
		respondLedgerError(c, err, "Failed to get token", zap.Stringer("token_id", tokenID))
		return
	}

	c.JSON(http.StatusOK, token)
}

// TransferToken transfers a token to a new owner
func (h *handler) TransferToken(c *gin.Context) {
	tokenID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.TransferTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	// Validate request body
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	token, err := h.executor.TransferToken(c.Request.Context(), tokenID, req)
	if err != nil {
		respondLedgerError(c, err, "Failed to transfer token",
			zap.Stringer("token_id", tokenID),
			zap.Stringer("new_owner", req.NewOwner),
		)
		return
	}

	c.JSON(http.StatusOK, token)
}

// InvalidateToken marks a token as permanently invalid
func (h *handler) InvalidateToken(c *gin.Context) {
	h.changeStatus(c, "Failed to invalidate token", h.executor.InvalidateToken)
}

// FreezeToken freezes an active token
func (h *handler) FreezeToken(c *gin.Context) {
	h.changeStatus(c, "Failed to freeze token", h.executor.FreezeToken)
}

// UnfreezeToken reactivates a frozen token
func (h *handler) UnfreezeToken(c *gin.Context) {
	h.changeStatus(c, "Failed to unfreeze token", h.executor.UnfreezeToken)
}

// DisputeToken opens a dispute on a token
func (h *handler) DisputeToken(c *gin.Context) {
	h.changeStatus(c, "Failed to dispute token", h.executor.DisputeToken)
}

// changeStatus runs one of the convenience transitions, the reason body is optional
func (h *handler) changeStatus(
	c *gin.Context,
	message string,
	transition func(ctx context.Context, tokenID uuid.UUID, reason string) (*dto.TokenResponse, error),
) {
	tokenID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ReasonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondValidationError(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	token, err := transition(c.Request.Context(), tokenID, req.Reason)
	if err != nil {
		respondLedgerError(c, err, message, zap.Stringer("token_id", tokenID))
		return
	}

	c.JSON(http.StatusOK, token)
}

// ResolveDispute closes the dispute of a token
func (h *handler) ResolveDispute(c *gin.Context) {
	tokenID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	// Validate request body
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	token, err := h.executor.ResolveDispute(c.Request.Context(), tokenID, req)
	if err != nil {
		respondLedgerError(c, err, "Failed to resolve dispute", zap.Stringer("token_id", tokenID))
		return
	}

	c.JSON(http.StatusOK, token)
}

// ChangeTokenStatus moves a token to the requested status
func (h *handler) ChangeTokenStatus(c *gin.Context) {
	tokenID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	// Validate request body
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	token, err := h.executor.ChangeTokenStatus(c.Request.Context(), tokenID, req)
	if err != nil {
		respondLedgerError(c, err, "Failed to change token status",
			zap.Stringer("token_id", tokenID),
			zap.String("status", string(req.Status)),
		)
		return
	}

	c.JSON(http.StatusOK, token)
}

// GetTokenHistory retrieves the transaction history of a token
func (h *handler) GetTokenHistory(c *gin.Context) {
	tokenID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	history, err := h.executor.GetTokenHistory(c.Request.Context(), tokenID)
	if err != nil {
		respondLedgerError(c, err, "Failed to get token history", zap.Stringer("token_id", tokenID))
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetAuditTrail retrieves the audit trail of a token with its replay check
func (h *handler) GetAuditTrail(c *gin.Context) {
	tokenID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	// Parse query parameters
	queryParams, err := ParseAuditTrailQuery(c)
	if err != nil {
		respondValidationError(c, err)
		return
	}

	// Validate query parameters
	if err := queryParams.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	report, err := h.executor.GetAuditTrail(c.Request.Context(), tokenID, queryParams.Filter())
	if err != nil {
		respondLedgerError(c, err, "Failed to get audit trail", zap.Stringer("token_id", tokenID))
		return
	}

	c.JSON(http.StatusOK, report)
}

// VerifyOwnership checks whether a wallet owns a token
func (h *handler) VerifyOwnership(c *gin.Context) {
	tokenID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	owner, ok := parseUUIDParam(c, "owner")
	if !ok {
		return
	}

	response, err := h.executor.VerifyOwnership(c.Request.Context(), tokenID, owner)
	if err != nil {
		respondLedgerError(c, err, "Failed to verify ownership",
			zap.Stringer("token_id", tokenID),
			zap.Stringer("owner", owner),
		)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListWalletTokens retrieves the tokens of a wallet
func (h *handler) ListWalletTokens(c *gin.Context) {
	walletID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	h.listTokens(c, func(filter *store.TokenFilter) {
		filter.Owner = &walletID
	})
}

// ListTokensByStatus retrieves tokens in a status
func (h *handler) ListTokensByStatus(c *gin.Context) {
	status := domain.TokenStatus(c.Param("status"))
	if !status.Valid() {
		respondBadRequest(c, "Invalid status", string(status))
		return
	}

	h.listTokens(c, func(filter *store.TokenFilter) {
		filter.Status = &status
	})
}

// ListTokensByCBDCType retrieves tokens of a currency
func (h *handler) ListTokensByCBDCType(c *gin.Context) {
	cbdcType := domain.CBDCType(c.Param("type"))
	if !cbdcType.Valid() {
		respondBadRequest(c, "Invalid CBDC type", string(cbdcType))
		return
	}

	h.listTokens(c, func(filter *store.TokenFilter) {
		filter.CBDCType = &cbdcType
	})
}

// listTokens parses the shared listing parameters and lets the route pin its own filter
func (h *handler) listTokens(c *gin.Context, pin func(filter *store.TokenFilter)) {
	// Parse query parameters
	queryParams, err := ParseListTokensQuery(c)
	if err != nil {
		respondValidationError(c, err)
		return
	}

	// Validate query parameters
	if err := queryParams.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	filter := queryParams.Filter()
	pin(&filter)

	response, err := h.executor.ListTokens(c.Request.Context(), filter)
	if err != nil {
		respondLedgerError(c, err, "Failed to list tokens")
		return
	}

	c.JSON(http.StatusOK, response)
}

// BulkChangeStatus applies a status change to many tokens
func (h *handler) BulkChangeStatus(c *gin.Context) {
	var req dto.BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	// Validate request body
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	response, err := h.executor.BulkChangeStatus(c.Request.Context(), req)
	if err != nil {
		respondLedgerError(c, err, "Failed to change token statuses",
			zap.String("status", string(req.Status)),
			zap.Int("token_ids", len(req.TokenIDs)),
		)
		return
	}

	c.JSON(http.StatusOK, response)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Service:   constants.SERVICE_NAME,
		Publisher: h.publisher.Stats(),
	})
}
