package executor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feral-file/ff-ledger/internal/api/shared/dto"
	"github.com/feral-file/ff-ledger/internal/bulk"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/ledger"
	"github.com/feral-file/ff-ledger/internal/store"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

// Executor is the interface for the API executor.
// Errors are the ledger's domain errors, the transport layer translates them.
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// IssueTokens issues new tokens
	IssueTokens(ctx context.Context, req dto.IssueTokensRequest) (*dto.IssueTokensResponse, error)

	// GetToken retrieves a single token by its id
	GetToken(ctx context.Context, tokenID uuid.UUID) (*dto.TokenResponse, error)

	// ListTokens retrieves tokens matching the filter
	ListTokens(ctx context.Context, filter store.TokenFilter) (*dto.TokenListResponse, error)

	// TransferToken transfers a token to a new owner
	TransferToken(ctx context.Context, tokenID uuid.UUID, req dto.TransferTokenRequest) (*dto.TokenResponse, error)

	// ChangeTokenStatus moves a token to the requested status
	ChangeTokenStatus(ctx context.Context, tokenID uuid.UUID, req dto.ChangeStatusRequest) (*dto.TokenResponse, error)

	// FreezeToken, UnfreezeToken, DisputeToken and InvalidateToken are the convenience transitions
	FreezeToken(ctx context.Context, tokenID uuid.UUID, reason string) (*dto.TokenResponse, error)
	UnfreezeToken(ctx context.Context, tokenID uuid.UUID, reason string) (*dto.TokenResponse, error)
	DisputeToken(ctx context.Context, tokenID uuid.UUID, reason string) (*dto.TokenResponse, error)
	InvalidateToken(ctx context.Context, tokenID uuid.UUID, reason string) (*dto.TokenResponse, error)

	// ResolveDispute closes the dispute of a token
	ResolveDispute(ctx context.Context, tokenID uuid.UUID, req dto.ResolveDisputeRequest) (*dto.TokenResponse, error)

	// GetTokenHistory retrieves the transaction history of a token
	GetTokenHistory(ctx context.Context, tokenID uuid.UUID) (*dto.TokenHistoryResponse, error)

	// GetAuditTrail retrieves the verified audit trail of a token
	GetAuditTrail(ctx context.Context, tokenID uuid.UUID, filter store.AuditFilter) (*dto.AuditTrailResponse, error)

	// VerifyOwnership checks whether the wallet owns the token
	VerifyOwnership(ctx context.Context, tokenID uuid.UUID, owner uuid.UUID) (*dto.VerifyOwnershipResponse, error)

	// BulkChangeStatus applies a status change to a selection of tokens
	BulkChangeStatus(ctx context.Context, req dto.BulkStatusRequest) (*dto.BulkStatusResponse, error)
}

type executor struct {
	ledger ledger.Ledger
	bulk   bulk.Operator
}

func NewExecutor(l ledger.Ledger, op bulk.Operator) Executor {
	return &executor{ledger: l, bulk: op}
}

func (e *executor) IssueTokens(ctx context.Context, req dto.IssueTokensRequest) (*dto.IssueTokensResponse, error) {
	tokens, err := e.ledger.Issue(ctx, ledger.IssueInput{
		CBDCType:        req.CBDCType,
		Denomination:    req.Denomination,
		Owner:           req.Owner,
		Quantity:        req.Quantity,
		Issuer:          req.Issuer,
		Series:          req.Series,
		Metadata:        req.Metadata,
		ComplianceFlags: req.ComplianceFlags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	return &dto.IssueTokensResponse{
		Tokens: dto.MapTokensToDTO(tokens),
		Count:  len(tokens),
	}, nil
}

func (e *executor) GetToken(ctx context.Context, tokenID uuid.UUID) (*dto.TokenResponse, error) {
	token, err := e.ledger.GetToken(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return dto.MapTokenToDTO(token), nil
}

func (e *executor) ListTokens(ctx context.Context, filter store.TokenFilter) (*dto.TokenListResponse, error) {
	tokens, total, err := e.ledger.FindTokens(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	// Offset for the next page
	var nextOffset *uint64
	if next := filter.Offset + uint64(len(tokens)); len(tokens) > 0 && next < total {
		nextOffset = &next
	}

	return &dto.TokenListResponse{
		Tokens: dto.MapTokensToDTO(tokens),
		Offset: nextOffset,
		Total:  total,
	}, nil
}

func (e *executor) TransferToken(ctx context.Context, tokenID uuid.UUID, req dto.TransferTokenRequest) (*dto.TokenResponse, error) {
	input := ledger.TransferInput{
		TokenID:       tokenID,
		NewOwner:      req.NewOwner,
		TransactionID: req.TransactionID,
		Metadata:      req.Metadata,
		Expected: domain.Expectation{
			Status: req.ExpectedStatus,
			Owner:  req.ExpectedOwner,
		},
	}

	token, err := e.ledger.Transfer(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to transfer token: %w", err)
	}

	return dto.MapTokenToDTO(token), nil
}

func (e *executor) ChangeTokenStatus(ctx context.Context, tokenID uuid.UUID, req dto.ChangeStatusRequest) (*dto.TokenResponse, error) {
	input := ledger.TransitionInput{
		TokenID: tokenID,
		Desired: req.Status,
		Reason:  req.Reason,
	}
	if req.ExpectedStatus != nil {
		input.Expected = domain.ExpectStatus(*req.ExpectedStatus)
	}

	token, err := e.ledger.Transition(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to change token status: %w", err)
	}

	return dto.MapTokenToDTO(token), nil
}

func (e *executor) FreezeToken(ctx context.Context, tokenID uuid.UUID, reason string) (*dto.TokenResponse, error) {
	return e.mapTransition(e.ledger.Freeze(ctx, tokenID, reason))
}

func (e *executor) UnfreezeToken(ctx context.Context, tokenID uuid.UUID, reason string) (*dto.TokenResponse, error) {
	return e.mapTransition(e.ledger.Unfreeze(ctx, tokenID, reason))
}

func (e *executor) DisputeToken(ctx context.Context, tokenID uuid.UUID, reason string) (*dto.TokenResponse, error) {
	return e.mapTransition(e.ledger.Dispute(ctx, tokenID, reason))
}

func (e *executor) InvalidateToken(ctx context.Context, tokenID uuid.UUID, reason string) (*dto.TokenResponse, error) {
	return e.mapTransition(e.ledger.Invalidate(ctx, tokenID, reason))
}

func (e *executor) ResolveDispute(ctx context.Context, tokenID uuid.UUID, req dto.ResolveDisputeRequest) (*dto.TokenResponse, error) {
	if req.Valid == nil {
		return nil, fmt.Errorf("%w: valid is required", domain.ErrValidation)
	}

	return e.mapTransition(e.ledger.Resolve(ctx, tokenID, *req.Valid, req.Reason))
}

func (e *executor) mapTransition(token *schema.Token, err error) (*dto.TokenResponse, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to change token status: %w", err)
	}

	return dto.MapTokenToDTO(token), nil
}

func (e *executor) GetTokenHistory(ctx context.Context, tokenID uuid.UUID) (*dto.TokenHistoryResponse, error) {
	history, err := e.ledger.History(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to get token history: %w", err)
	}

	txs := history.TransactionHistory
	if txs == nil {
		txs = []uuid.UUID{}
	}

	return &dto.TokenHistoryResponse{
		TokenID:            history.TokenID,
		CurrentOwner:       history.CurrentOwner,
		TransactionHistory: txs,
		Transfers:          dto.MapAuditRecordsToDTO(history.Transfers),
	}, nil
}

func (e *executor) GetAuditTrail(ctx context.Context, tokenID uuid.UUID, filter store.AuditFilter) (*dto.AuditTrailResponse, error) {
	report, err := e.ledger.AuditTrail(ctx, tokenID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}

	return &dto.AuditTrailResponse{
		TokenID:       tokenID,
		Token:         dto.MapTokenToDTO(report.Token),
		Records:       dto.MapAuditRecordsToDTO(report.Records),
		Reconstructed: report.Reconstructed,
		Consistent:    report.Consistent,
	}, nil
}

func (e *executor) VerifyOwnership(ctx context.Context, tokenID uuid.UUID, owner uuid.UUID) (*dto.VerifyOwnershipResponse, error) {
	isOwner, err := e.ledger.VerifyOwnership(ctx, tokenID, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ownership: %w", err)
	}

	return &dto.VerifyOwnershipResponse{
		TokenID: tokenID,
		Owner:   owner,
		IsOwner: isOwner,
	}, nil
}

func (e *executor) BulkChangeStatus(ctx context.Context, req dto.BulkStatusRequest) (*dto.BulkStatusResponse, error) {
	bulkReq := bulk.Request{
		TokenIDs: req.TokenIDs,
		Desired:  req.Status,
		Reason:   req.Reason,
	}
	if req.Filter != nil {
		bulkReq.Filter = &store.TokenFilter{
			Owner:    req.Filter.Owner,
			Status:   req.Filter.Status,
			CBDCType: req.Filter.CBDCType,
		}
	}

	result, err := e.bulk.Transition(ctx, bulkReq)
	if err != nil {
		return nil, fmt.Errorf("failed to run bulk status change: %w", err)
	}

	return dto.MapBulkResultToDTO(result), nil
}
