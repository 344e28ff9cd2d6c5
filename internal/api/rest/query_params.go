package rest

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-ledger/internal/api/shared/constants"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/store"
)

// ListTokensQueryParams holds query parameters for the token listing endpoints
type ListTokensQueryParams struct {
	// Filters
	Status   string `form:"status"`
	CBDCType string `form:"cbdc_type"`

	// Pagination
	Limit  int    `form:"limit,default=20"`
	Offset uint64 `form:"offset,default=0"`
}

// ParseListTokensQuery parses query parameters for the token listing endpoints
func ParseListTokensQuery(c *gin.Context) (*ListTokensQueryParams, error) {
	var params ListTokensQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	// Cap limit
	if params.Limit <= 0 {
		params.Limit = constants.DEFAULT_TOKENS_LIMIT
	}
	if params.Limit > constants.MAX_PAGE_SIZE {
		params.Limit = constants.MAX_PAGE_SIZE
	}

	return &params, nil
}

// Validate validates the query parameters
func (p *ListTokensQueryParams) Validate() error {
	if p.Status != "" && !domain.TokenStatus(p.Status).Valid() {
		return fmt.Errorf("invalid status: %s", p.Status)
	}

	if p.CBDCType != "" && !domain.CBDCType(p.CBDCType).Valid() {
		return fmt.Errorf("invalid cbdc_type: %s", p.CBDCType)
	}

	return nil
}

// Filter converts the query parameters to a store filter
func (p *ListTokensQueryParams) Filter() store.TokenFilter {
	filter := store.TokenFilter{
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if p.Status != "" {
		status := domain.TokenStatus(p.Status)
		filter.Status = &status
	}
	if p.CBDCType != "" {
		cbdc := domain.CBDCType(p.CBDCType)
		filter.CBDCType = &cbdc
	}
	return filter
}

// AuditTrailQueryParams holds query parameters for GET /tokens/:id/audit
type AuditTrailQueryParams struct {
	Operations []string   `form:"operation"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ParseAuditTrailQuery parses query parameters for GET /tokens/:id/audit
func ParseAuditTrailQuery(c *gin.Context) (*AuditTrailQueryParams, error) {
	var params AuditTrailQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	return &params, nil
}

// Validate validates the query parameters
func (p *AuditTrailQueryParams) Validate() error {
	for _, op := range p.Operations {
		if !domain.AuditOperation(op).Valid() {
			return fmt.Errorf("invalid operation: %s", op)
		}
	}

	if p.From != nil && p.To != nil && p.From.After(*p.To) {
		return fmt.Errorf("from must not be after to")
	}

	return nil
}

// Filter converts the query parameters to a store filter
func (p *AuditTrailQueryParams) Filter() store.AuditFilter {
	filter := store.AuditFilter{From: p.From, To: p.To}
	for _, op := range p.Operations {
		filter.Operations = append(filter.Operations, domain.AuditOperation(op))
	}
	return filter
}
