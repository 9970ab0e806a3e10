package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"launchcontrol/internal/handlers/business"
	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
	dbconfig "launchcontrol/pkg/config"
	lcsolana "launchcontrol/pkg/solana"
)

// ContributionRequest represents the request body for registering a
// contribution. The client sends SOL to the deposit wallet first, then
// registers the transfer here.
type ContributionRequest struct {
	LaunchID      uint    `json:"launch_id" binding:"required"`
	WalletAddress string  `json:"wallet_address" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
	TxHash        string  `json:"tx_hash" binding:"required"`
}

// RefundRequest represents the request body for refunding a contribution
type RefundRequest struct {
	LaunchID      uint   `json:"launch_id" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// RegisterContribution validates and records a contribution against the
// launch ledger
func RegisterContribution(c *gin.Context) {
	var request ContributionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contribution, err := business.RegisterContribution(
		c.Request.Context(),
		dbconfig.DB,
		lcsolana.NewClient(),
		request.LaunchID,
		request.WalletAddress,
		request.Amount,
		request.TxHash,
	)
	if err != nil {
		log.WithFields(log.Fields{
			"launch_id": request.LaunchID,
			"wallet":    request.WalletAddress,
			"amount":    request.Amount,
		}).Warnf("Contribution rejected: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contribution)
}

// RefundContribution reverses a wallet's contribution and returns its SOL
func RefundContribution(c *gin.Context) {
	var request RefundRequest
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

	txHash, err := business.Refund(c.Request.Context(), dbconfig.DB, payer, request.LaunchID, request.WalletAddress)
	if err != nil {
		if errors.Is(err, launcherr.ErrConfirmationTimeout) {
			c.JSON(http.StatusAccepted, gin.H{"status": "pending", "tx_hash": txHash})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refunded", "tx_hash": txHash})
}

// ListContributionsByLaunch returns all contributions for a launch
func ListContributionsByLaunch(c *gin.Context) {
	id, ok := parseIDParam(c, "launch_id")
	if !ok {
		return
	}

	var contributions []models.Contribution
	if err := dbconfig.DB.Where("launch_id = ?", id).
		Order("created_at ASC").
		Find(&contributions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contributions)
}

// GetWalletContribution returns a wallet's contribution for a launch
func GetWalletContribution(c *gin.Context) {
	id, ok := parseIDParam(c, "launch_id")
	if !ok {
		return
	}
	wallet := c.Param("wallet")
	if err := business.ValidateWalletAddress(wallet); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contribution, err := business.WalletContribution(dbconfig.DB, id, wallet)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribution)
}
