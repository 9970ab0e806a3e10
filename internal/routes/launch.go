package routes

import (
	"launchcontrol/internal/handlers"
	"launchcontrol/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupLaunchRoutes sets up all routes related to launch management
func SetupLaunchRoutes(r *gin.Engine) {
	launch := r.Group("/launch")
	{
		launch.GET("", handlers.ListLaunches)
		launch.GET("/:id", handlers.GetLaunch)
		launch.GET("/:id/transfers", handlers.ListLaunchTransfers)
		launch.POST("/:id/cancel", handlers.CancelLaunch)
	}

	// Launch creation spins up an escrow wallet and trigger enqueues token
	// creation, so both get a tighter limit than the read endpoints.
	writes := r.Group("/launch")
	writes.Use(middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             3,
	}))
	{
		writes.POST("", handlers.CreateLaunch)
		writes.POST("/:id/trigger", handlers.TriggerLaunch)
	}
}
