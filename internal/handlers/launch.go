package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"launchcontrol/internal/handlers/business"
	"launchcontrol/internal/models"
	dbconfig "launchcontrol/pkg/config"
	lcsolana "launchcontrol/pkg/solana"
)

// LaunchRequest represents the request body for creating a launch
type LaunchRequest struct {
	Name          string   `json:"name" binding:"required"`
	Symbol        string   `json:"symbol" binding:"required"`
	CreatorWallet string   `json:"creator_wallet" binding:"required"`
	Hardcap       *float64 `json:"hardcap"`
	PerWalletCap  *float64 `json:"per_wallet_cap"`
}

// LaunchJobMessage is published to the launch_jobs queue when a launch
// becomes ready.
type LaunchJobMessage struct {
	LaunchID uint `json:"launch_id"`
}

// CreateLaunch creates a launch together with its escrow wallet. The escrow
// secret is encrypted before the row is written; if the encryption key is
// unavailable the whole operation fails and nothing is persisted.
func CreateLaunch(c *gin.Context) {
	var request LaunchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := business.ValidateLaunchInput(request.Name, request.Symbol); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := business.CheckWalletAllowed(dbconfig.DB, request.CreatorWallet); err != nil {
		respondError(c, err)
		return
	}

	km, err := lcsolana.NewEscrowKeyManager()
	if err != nil {
		// Fail closed: no wallet, no launch row.
		respondError(c, err)
		return
	}
	wallet, err := km.CreateEscrowWallet()
	if err != nil {
		respondError(c, err)
		return
	}

	launch := models.Launch{
		Name:                 request.Name,
		Symbol:               request.Symbol,
		CreatorWallet:        request.CreatorWallet,
		DepositWalletAddress: wallet.PublicAddress,
		EncryptedPrivateKey:  wallet.EncryptedSecret,
		KeyVersion:           wallet.KeyVersion,
		Status:               models.LaunchStatusPendingContributions,
	}
	if request.Hardcap != nil && *request.Hardcap > 0 {
		launch.Hardcap = *request.Hardcap
	}
	if request.PerWalletCap != nil && *request.PerWalletCap > 0 {
		launch.PerWalletCap = *request.PerWalletCap
	}

	if err := dbconfig.DB.Create(&launch).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.WithFields(log.Fields{
		"launch_id":      launch.ID,
		"deposit_wallet": launch.DepositWalletAddress,
	}).Info("Launch created")

	c.JSON(http.StatusCreated, launch)
}

// ListLaunches returns all launches, newest first
func ListLaunches(c *gin.Context) {
	var launches []models.Launch
	query := dbconfig.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&launches).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, launches)
}

// GetLaunch returns a specific launch by ID
func GetLaunch(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var launch models.Launch
	if err := dbconfig.DB.First(&launch, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, launch)
}

// CancelLaunch cancels a launch that has not received any contribution
func CancelLaunch(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := business.CancelLaunch(dbconfig.DB, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.LaunchStatusCancelled})
}

// TriggerLaunch queues the token creation job for a ready launch. Retrying
// while the worker is already launching is harmless; BeginLaunch in the
// worker is idempotent.
func TriggerLaunch(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var launch models.Launch
	if err := dbconfig.DB.First(&launch, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	if launch.Status != models.LaunchStatusReadyToLaunch && launch.Status != models.LaunchStatusLaunching {
		c.JSON(http.StatusConflict, gin.H{"error": "launch is not ready to launch"})
		return
	}

	if err := publishLaunchJob(launch.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "launch_id": launch.ID})
}

// publishLaunchJob puts a launch id on the worker queue.
func publishLaunchJob(launchID uint) error {
	publisher, err := dbconfig.NewPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	return publisher.Publish(dbconfig.LaunchJobsQueue, LaunchJobMessage{LaunchID: launchID})
}

// ListLaunchTransfers returns the escrow fund movement audit trail for a launch
func ListLaunchTransfers(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var records []models.LaunchFundTransferRecord
	if err := dbconfig.DB.Where("launch_id = ?", id).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
