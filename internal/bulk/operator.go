// Package bulk applies one status transition to a set of tokens.
package bulk

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-ledger/internal/audit"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/ledger"
	"github.com/feral-file/ff-ledger/internal/logger"
	"github.com/feral-file/ff-ledger/internal/store"
	"github.com/feral-file/ff-ledger/internal/store/schema"
)

//go:generate mockgen -source=operator.go -destination=../mocks/bulk.go -package=mocks -mock_names=Operator=MockBulkOperator

// Operator defines the bulk transition operation
type Operator interface {
	// Transition applies the desired status to every selected token independently.
	// Partial failure is reported per token, the error is only set when nothing could be attempted.
	Transition(ctx context.Context, req Request) (*Result, error)
}

// Request selects tokens either by id or by predicate
type Request struct {
	TokenIDs []uuid.UUID
	// Filter is used when TokenIDs is empty. Limit and Offset are ignored.
	Filter  *store.TokenFilter
	Desired domain.TokenStatus
	Reason  string
}

// Outcome is the result of the transition of one token
type Outcome struct {
	TokenID uuid.UUID
	Success bool
	// Status is the new status on success
	Status domain.TokenStatus
	Code   string
	Error  string
}

// Result summarises a bulk transition
type Result struct {
	// Matched is the number of tokens the predicate matched, it can exceed Requested
	Matched   uint64
	Requested int
	Succeeded int
	Failed    int
	Outcomes  []Outcome
}

// Config holds the bulk operator configuration
type Config struct {
	Concurrency int
	MaxTokens   int
}

type operator struct {
	cfg    Config
	ledger ledger.Ledger
}

// NewOperator creates a bulk operator running transitions through the ledger
func NewOperator(cfg Config, l ledger.Ledger) Operator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxTokens <= 0 || cfg.MaxTokens > domain.MAX_BULK_TOKEN_IDS {
		cfg.MaxTokens = domain.MAX_BULK_TOKEN_IDS
	}
	return &operator{cfg: cfg, ledger: l}
}

// target is one token to transition with the status it had in the snapshot.
// A nil status means the token has to be read first.
type target struct {
	tokenID uuid.UUID
	status  *domain.TokenStatus
}

func (o *operator) Transition(ctx context.Context, req Request) (*Result, error) {
	if !req.Desired.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, req.Desired)
	}

	targets, matched, err := o.selectTargets(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Matched:   matched,
		Requested: len(targets),
		Outcomes:  make([]Outcome, len(targets)),
	}
	if len(targets) == 0 {
		return result, nil
	}

	metadata := audit.Metadata{domain.AUDIT_KEY_BULK: true}

	// Each task writes only its own slot
	pool := pond.NewPool(o.cfg.Concurrency, pond.WithContext(ctx))
	for i, t := range targets {
		pool.Submit(func() {
			result.Outcomes[i] = o.transitionOne(ctx, t, req, metadata)
		})
	}
	pool.StopAndWait()

	for i, outcome := range result.Outcomes {
		if outcome.TokenID == uuid.Nil {
			// Task never ran because the context was canceled first
			result.Outcomes[i] = failedOutcome(targets[i].tokenID, ctx.Err())
		}
		if result.Outcomes[i].Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	logger.InfoCtx(ctx, "Bulk transition completed",
		zap.String("desired", string(req.Desired)),
		zap.Int("requested", result.Requested),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (o *operator) selectTargets(ctx context.Context, req Request) ([]target, uint64, error) {
	if len(req.TokenIDs) > 0 {
		if len(req.TokenIDs) > o.cfg.MaxTokens {
			return nil, 0, fmt.Errorf("%w: at most %d token ids per request", domain.ErrValidation, o.cfg.MaxTokens)
		}

		seen := make(map[uuid.UUID]struct{}, len(req.TokenIDs))
		for i, id := range req.TokenIDs {
			if id == uuid.Nil {
				return nil, 0, fmt.Errorf("%w: token id at index %d is nil", domain.ErrValidation, i)
			}
			if _, ok := seen[id]; ok {
				return nil, 0, fmt.Errorf("%w: duplicate token id %s", domain.ErrValidation, id)
			}
			seen[id] = struct{}{}
		}

		// Snapshot the statuses in one read, unknown ids are read again and fail as not found
		tokens, _, err := o.ledger.FindTokens(ctx, store.TokenFilter{
			TokenIDs: req.TokenIDs,
			Limit:    len(req.TokenIDs),
		})
		if err != nil {
			return nil, 0, err
		}

		statuses := make(map[uuid.UUID]domain.TokenStatus, len(tokens))
		for _, t := range tokens {
			statuses[t.TokenID] = t.Status
		}

		targets := make([]target, len(req.TokenIDs))
		for i, id := range req.TokenIDs {
			targets[i] = target{tokenID: id}
			if status, ok := statuses[id]; ok {
				targets[i].status = &status
			}
		}
		return targets, uint64(len(targets)), nil
	}

	if req.Filter == nil {
		return nil, 0, fmt.Errorf("%w: token ids or a filter are required", domain.ErrValidation)
	}

	filter := *req.Filter
	if filter.Status == nil && filter.Owner == nil && filter.CBDCType == nil && len(filter.TokenIDs) == 0 {
		return nil, 0, fmt.Errorf("%w: filter must set at least one criterion", domain.ErrValidation)
	}
	filter.Limit = o.cfg.MaxTokens
	filter.Offset = 0

	tokens, total, err := o.ledger.FindTokens(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return snapshotTargets(tokens), total, nil
}

func snapshotTargets(tokens []schema.Token) []target {
	targets := make([]target, len(tokens))
	for i := range tokens {
		status := tokens[i].Status
		targets[i] = target{tokenID: tokens[i].TokenID, status: &status}
	}
	return targets
}

// transitionOne runs one precondition-checked transition.
// The precondition is the status the token had when it was selected.
func (o *operator) transitionOne(ctx context.Context, t target, req Request, metadata audit.Metadata) Outcome {
	status := t.status
	if status == nil {
		token, err := o.ledger.GetToken(ctx, t.tokenID)
		if err != nil {
			return failedOutcome(t.tokenID, err)
		}
		status = &token.Status
	}

	token, err := o.ledger.Transition(ctx, ledger.TransitionInput{
		TokenID:  t.tokenID,
		Expected: domain.ExpectStatus(*status),
		Desired:  req.Desired,
		Reason:   req.Reason,
		Metadata: metadata,
	})
	if err != nil {
		return failedOutcome(t.tokenID, err)
	}

	return Outcome{
		TokenID: t.tokenID,
		Success: true,
		Status:  token.Status,
	}
}

func failedOutcome(tokenID uuid.UUID, err error) Outcome {
	if err == nil {
		err = context.Canceled
	}
	return Outcome{
		TokenID: tokenID,
		Code:    domain.Code(err),
		Error:   err.Error(),
	}
}
