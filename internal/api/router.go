package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fechamento-diario/internal/api/handler"
	"github.com/fechamento-diario/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	closureHandler *handler.ClosureHandler,
	divergenceHandler *handler.DivergenceHandler,
	auditHandler *handler.AuditHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Daily closure operations
		closures := v1.Group("/closures")
		{
			closures.POST("", closureHandler.Create)
			closures.GET("", closureHandler.List)
			closures.GET("/:date", closureHandler.GetByDate)
			closures.DELETE("/:date", closureHandler.Clear)
			closures.POST("/:date/settlement", closureHandler.IngestSettlement)
			closures.GET("/:date/audit", auditHandler.ListByDate)
		}

		// Divergence resolution operations
		divergences := v1.Group("/divergences")
		{
			divergences.POST("/:id/resolve", divergenceHandler.Resolve)
			divergences.POST("/resolve-batch", divergenceHandler.ResolveBatch)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
