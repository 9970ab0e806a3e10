package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"launchcontrol/internal/launcherr"
)

// respondError maps the ledger error taxonomy to HTTP statuses. Confirmation
// timeouts get 202 so clients show "pending, please wait" instead of failure.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, launcherr.ErrWalletBlocked):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, launcherr.ErrLaunchNotAccepting),
		errors.Is(err, launcherr.ErrPerWalletCapExceeded),
		errors.Is(err, launcherr.ErrHardcapExceeded),
		errors.Is(err, launcherr.ErrInvalidState),
		errors.Is(err, launcherr.ErrDuplicateSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, launcherr.ErrClaimInProgress),
		errors.Is(err, launcherr.ErrAlreadyClaimed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, launcherr.ErrNoContribution):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, launcherr.ErrTransferUnconfirmed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, launcherr.ErrConfirmationTimeout):
		c.JSON(http.StatusAccepted, gin.H{"status": "pending", "detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return uint(id), true
}
