package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes.
// auth guards every route that mutates the ledger.
func SetupRoutes(router *gin.Engine, handler Handler, auth gin.HandlerFunc) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Token reads (public read access)
		v1.GET("/tokens/:id", handler.GetToken)
		v1.GET("/tokens/:id/history", handler.GetTokenHistory)
		v1.GET("/tokens/:id/audit", handler.GetAuditTrail)
		v1.GET("/tokens/:id/verify/:owner", handler.VerifyOwnership)
		v1.GET("/tokens/status/:status", handler.ListTokensByStatus)
		v1.GET("/tokens/cbdc/:type", handler.ListTokensByCBDCType)

		// Wallet reads (public read access)
		v1.GET("/wallets/:id/tokens", handler.ListWalletTokens)

		// Issuance and transfers (requires authentication)
		v1.POST("/tokens", auth, handler.IssueTokens)
		v1.POST("/tokens/:id/transfer", auth, handler.TransferToken)

		// Status changes (requires authentication)
		v1.DELETE("/tokens/:id", auth, handler.InvalidateToken)
		v1.POST("/tokens/:id/status", auth, handler.ChangeTokenStatus)
		v1.POST("/tokens/:id/freeze", auth, handler.FreezeToken)
		v1.POST("/tokens/:id/unfreeze", auth, handler.UnfreezeToken)
		v1.POST("/tokens/:id/dispute", auth, handler.DisputeToken)
		v1.POST("/tokens/:id/resolve", auth, handler.ResolveDispute)
		v1.POST("/tokens/bulk/status", auth, handler.BulkChangeStatus)
	}
}
