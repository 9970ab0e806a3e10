package routes

import (
	"launchcontrol/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupWithdrawalRequestRoutes sets up all routes related to withdrawal request management
func SetupWithdrawalRequestRoutes(r *gin.Engine) {
	withdrawal := r.Group("/withdrawal-request")
	{
		withdrawal.GET("", handlers.ListWithdrawalRequests)
		withdrawal.POST("", handlers.CreateWithdrawalRequest)
		withdrawal.POST("/:id/complete", handlers.CompleteWithdrawalRequest)
		withdrawal.POST("/:id/reject", handlers.RejectWithdrawalRequest)
	}
}
