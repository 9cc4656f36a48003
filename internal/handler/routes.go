package handler

import (
	"github.com/dafibh/fortuna/fortuna-rollover/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, authHandler *AuthHandler, rolloverHandler *RolloverHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Auth routes (protected)
	auth := api.Group("/auth")
	auth.Use(authMiddleware.Authenticate())
	auth.GET("/me", authHandler.Me)

	// Rollover routes (protected)
	rollover := api.Group("/rollover")
	rollover.Use(authMiddleware.Authenticate())
	rollover.GET("/unspent", rolloverHandler.GetUnspent)
	rollover.GET("/preview", rolloverHandler.GetPreview)
	rollover.POST("/preview", rolloverHandler.PostPreview)
	rollover.POST("/execute", rolloverHandler.Execute, middleware.RateLimitMiddleware(rateLimiter))
	rollover.GET("/settings", rolloverHandler.GetSettings)
	rollover.PUT("/settings", rolloverHandler.UpdateSettings)
	rollover.GET("/history", rolloverHandler.GetHistory)
}
