package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apierrors "github.com/feral-file/ff-ledger/internal/api/shared/errors"
	"github.com/feral-file/ff-ledger/internal/logger"
)

// NewRateLimiter builds the process wide request limiter.
// A non-positive rps disables limiting and returns nil.
func NewRateLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimit returns a gin middleware that rejects requests the limiter has no token for.
// A nil limiter lets every request through.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limiter.Allow() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		logger.WarnCtx(ctx, "Request rate limited",
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		)
		apiErr := apierrors.NewRateLimitedError("Too many requests").
			WithCorrelationID(logger.CorrelationID(ctx))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": apiErr})
	}
}
