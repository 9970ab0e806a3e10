package routes

import (
	"launchcontrol/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupBlockedWalletRoutes sets up all routes related to wallet blocklist management
func SetupBlockedWalletRoutes(r *gin.Engine) {
	blocked := r.Group("/blocked-wallet")
	{
		blocked.GET("", handlers.ListBlockedWallets)
		blocked.POST("", handlers.BlockWallet)
		blocked.POST("/:id/unblock", handlers.UnblockWallet)
	}
}
