package routes

import (
	"launchcontrol/internal/handlers"
	"launchcontrol/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupClaimRoutes sets up all routes related to token claims
func SetupClaimRoutes(r *gin.Engine) {
	claim := r.Group("/claim")
	{
		claim.GET("/launch/:launch_id/wallet/:wallet", handlers.GetClaimStatus)
	}

	writes := r.Group("/claim")
	writes.Use(middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             5,
	}))
	{
		writes.POST("", handlers.ClaimTokens)
	}
}
