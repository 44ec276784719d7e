package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/swivel-scan/swivel/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Scanner control (mutating endpoints require API key authentication)
		v1.POST("/scanning/start", middleware.APIKeyAuth(authCfg), handler.StartScanning)
		v1.POST("/scanning/stop", middleware.APIKeyAuth(authCfg), handler.StopScanning)
		v1.GET("/scanning/status", handler.ScanningStatus)

		// Current geodata fix (public read access)
		v1.GET("/location", handler.GetLocation)

		// Correlation reports (public read access)
		v1.GET("/reports/multi-place", handler.MultiPlaceReport)
		v1.GET("/reports/multi-place-fingerprint", handler.MultiPlaceFingerprintReport)

		// WiFi inventory (public read access)
		v1.GET("/wifi/networks", handler.WiFiNetworks)

		// Destructive maintenance (requires API key authentication)
		v1.POST("/database/recreate", middleware.APIKeyAuth(authCfg), handler.RecreateDatabase)
	}
}
