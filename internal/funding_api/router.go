package funding_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peerfund-funding-orchestrator/internal/funding_api/handler"
	"github.com/peerfund-funding-orchestrator/internal/funding_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	contractHandler *handler.ContractHandler,
	fundingHandler *handler.FundingHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		contracts := v1.Group("/contracts")
		{
			contracts.POST("", contractHandler.Create)
			contracts.GET("/:id", contractHandler.GetByID)
			contracts.GET("/:id/quote", contractHandler.Quote)

			contracts.GET("/:id/fundings", contractHandler.ListFundings)
			contracts.POST("/:id/fundings", fundingHandler.Fund)

			contracts.POST("/:id/disburse", fundingHandler.Disburse)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
