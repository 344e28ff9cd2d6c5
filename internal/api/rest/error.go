package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-ledger/internal/api/shared/errors"
	"github.com/feral-file/ff-ledger/internal/domain"
	"github.com/feral-file/ff-ledger/internal/logger"
)

// respondWithError sends a standardized error response tagged with the request correlation id
func respondWithError(c *gin.Context, statusCode int, apiErr *apierrors.APIError) {
	c.JSON(statusCode, gin.H{"error": apiErr.WithCorrelationID(logger.CorrelationID(c.Request.Context()))})
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		respondWithError(c, http.StatusBadRequest, apiErr)
		return
	}
	respondWithError(c, http.StatusBadRequest, apierrors.NewValidationError(err.Error()))
}

// respondLedgerError translates a ledger error to its HTTP response.
// Anything outside the ledger error taxonomy is logged and reported as an internal error.
func respondLedgerError(c *gin.Context, err error, message string, fields ...zap.Field) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(c, http.StatusNotFound, apierrors.New(apierrors.ErrCodeNotFound, message, err.Error()))
	case errors.Is(err, domain.ErrValidation):
		respondWithError(c, http.StatusBadRequest, apierrors.NewValidationError(err.Error()))
	case errors.Is(err, domain.ErrConflict):
		respondWithError(c, http.StatusConflict, apierrors.New(apierrors.ErrCodeConflict, message, err.Error()))
	case errors.Is(err, domain.ErrInvalidTransition):
		respondWithError(c, http.StatusConflict, apierrors.New(apierrors.ErrCodeInvalidTransition, message, err.Error()))
	case errors.Is(err, domain.ErrInvalidOperation):
		respondWithError(c, http.StatusConflict, apierrors.New(apierrors.ErrCodeInvalidOperation, message, err.Error()))
	default:
		logger.ErrorCtx(c.Request.Context(), err, fields...)
		respondWithError(c, http.StatusInternalServerError, apierrors.NewInternalError(message))
	}
}
