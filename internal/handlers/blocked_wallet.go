package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"launchcontrol/internal/handlers/business"
	"launchcontrol/internal/models"
	dbconfig "launchcontrol/pkg/config"
)

// BlockedWalletRequest represents the request body for blocking a wallet
type BlockedWalletRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Reason        string `json:"reason"`
}

// ListBlockedWallets returns all blocklist entries
func ListBlockedWallets(c *gin.Context) {
	var wallets []models.BlockedWallet
	if err := dbconfig.DB.Order("created_at DESC").Find(&wallets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, wallets)
}

// BlockWallet adds a wallet to the blocklist, or re-activates an existing
// entry
func BlockWallet(c *gin.Context) {
	var request BlockedWalletRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := business.ValidateWalletAddress(request.WalletAddress); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := business.ValidateReason(request.Reason); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var wallet models.BlockedWallet
	err := dbconfig.DB.Where("wallet_address = ?", request.WalletAddress).First(&wallet).Error
	if err == nil {
		wallet.IsActive = true
		wallet.Reason = request.Reason
		if err := dbconfig.DB.Save(&wallet).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	} else {
		wallet = models.BlockedWallet{
			WalletAddress: request.WalletAddress,
			Reason:        request.Reason,
			IsActive:      true,
		}
		if err := dbconfig.DB.Create(&wallet).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	log.WithFields(log.Fields{"wallet": request.WalletAddress, "reason": request.Reason}).
		Info("Wallet blocked")
	c.JSON(http.StatusOK, wallet)
}

// UnblockWallet deactivates a blocklist entry without deleting its history
func UnblockWallet(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	res := dbconfig.DB.Model(&models.BlockedWallet{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_active": false})
}
