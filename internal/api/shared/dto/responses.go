package dto

import (
	"github.com/google/uuid"

	"github.com/feral-file/ff-ledger/internal/bulk"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/events"
)

// BulkOutcomeResponse represents the result of one token of a bulk request
type BulkOutcomeResponse struct {
	TokenID uuid.UUID          `json:"token_id"`
	Success bool               `json:"success"`
	Status  domain.TokenStatus `json:"status,omitempty"`
	Code    string             `json:"code,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// BulkStatusResponse represents the result of a bulk status change
type BulkStatusResponse struct {
	Matched   uint64                `json:"matched"`
	Requested int                   `json:"requested"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Results   []BulkOutcomeResponse `json:"results"`
}

// HealthResponse represents the health status of the API
type HealthResponse struct {
	Status    string       `json:"status"`
	Service   string       `json:"service"`
	Publisher events.Stats `json:"publisher"`
}

// MapBulkResultToDTO maps a bulk.Result to BulkStatusResponse
func MapBulkResultToDTO(result *bulk.Result) *BulkStatusResponse {
	if result == nil {
		return nil
	}

	outcomes := make([]BulkOutcomeResponse, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		outcomes = append(outcomes, BulkOutcomeResponse{
			TokenID: o.TokenID,
			Success: o.Success,
			Status:  o.Status,
			Code:    o.Code,
			Error:   o.Error,
		})
	}

	return &BulkStatusResponse{
		Matched:   result.Matched,
		Requested: result.Requested,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Results:   outcomes,
	}
}
