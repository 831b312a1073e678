package http

import (
	"github.com/gearmatch/ratingsync/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.Server.RateLimitPerMinute))
	{
		v1.POST("/match", handler.PreviewMatch)
		v1.GET("/runs", handler.ListRuns)
		v1.GET("/categories", handler.ListCategories)
	}

	return router
}
