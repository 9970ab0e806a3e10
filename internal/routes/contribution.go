package routes

import (
	"launchcontrol/internal/handlers"
	"launchcontrol/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupContributionRoutes sets up all routes related to contribution management
func SetupContributionRoutes(r *gin.Engine) {
	contribution := r.Group("/contribution")
	{
		contribution.GET("/launch/:launch_id", handlers.ListContributionsByLaunch)
		contribution.GET("/launch/:launch_id/wallet/:wallet", handlers.GetWalletContribution)
	}

	// Registration and refund both hit the RPC node to verify or move
	// funds, keep them behind a limiter.
	writes := r.Group("/contribution")
	writes.Use(middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             5,
	}))
	{
		writes.POST("", handlers.RegisterContribution)
		writes.POST("/refund", handlers.RefundContribution)
	}
}
