package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"launchcontrol/internal/handlers/business"
	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
	dbconfig "launchcontrol/pkg/config"
	lcsolana "launchcontrol/pkg/solana"
)

// ClaimRequest represents the request body for claiming launch tokens
type ClaimRequest struct {
	LaunchID      uint   `json:"launch_id" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// ClaimTokens pays out the caller's pro-rata token share for a created launch
func ClaimTokens(c *gin.Context) {
	var request ClaimRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	km, err := lcsolana.NewEscrowKeyManager()
	if err != nil {
		respondError(c, err)
		return
	}
	payer := lcsolana.NewEscrowPayer(lcsolana.NewClient(), km)

	txHash, err := business.ClaimTokens(c.Request.Context(), dbconfig.DB, payer, request.LaunchID, request.WalletAddress)
	if err != nil {
		if errors.Is(err, launcherr.ErrConfirmationTimeout) {
			c.JSON(http.StatusAccepted, gin.H{"status": "pending", "tx_hash": txHash})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "claimed", "tx_hash": txHash})
}

// GetClaimStatus returns the wallet's claim state for a launch: its expected
// share plus any in-flight or settled withdrawal request.
func GetClaimStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "launch_id")
	if !ok {
		return
	}
	wallet := c.Param("wallet")
	if err := business.ValidateWalletAddress(wallet); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var launch models.Launch
	if err := dbconfig.DB.First(&launch, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	contribution, err := business.WalletContribution(dbconfig.DB, id, wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"launch_id":     id,
		"wallet":        wallet,
		"amount":        contribution.Amount,
		"share":         business.ComputeContributorShare(contribution, &launch),
		"claimed":       contribution.Claimed,
		"claimed_at":    contribution.ClaimedAt,
		"claim_tx_hash": contribution.ClaimTxHash,
	}

	var request models.WithdrawalRequest
	err = dbconfig.DB.Where("wallet_address = ? AND pool_id = ? AND feature = ?",
		wallet, id, models.FeatureLaunchClaim).
		Order("created_at DESC").
		First(&request).Error
	if err == nil {
		resp["request_status"] = request.Status
	}

	c.JSON(http.StatusOK, resp)
}
