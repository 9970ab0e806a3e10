package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"launchcontrol/internal/handlers/business"
	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
	dbconfig "launchcontrol/pkg/config"
)

// WithdrawalRequestBody represents the request body for opening a withdrawal
// request. Launch claims go through /claims; this generic surface serves the
// staking, race, burn and social payout paths that share the same
// at-most-one in-flight rule.
type WithdrawalRequestBody struct {
	WalletAddress string  `json:"wallet_address" binding:"required"`
	PoolID        uint    `json:"pool_id" binding:"required"`
	Feature       string  `json:"feature" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
}

var validFeatures = map[string]bool{
	models.FeatureStake:  true,
	models.FeatureRace:   true,
	models.FeatureBurn:   true,
	models.FeatureSocial: true,
}

// CreateWithdrawalRequest opens a pending withdrawal, rejecting it while a
// prior one for the same (wallet, pool, feature) is still in flight. The
// existence check and the insert run in one transaction.
func CreateWithdrawalRequest(c *gin.Context) {
	var body WithdrawalRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validFeatures[body.Feature] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown feature"})
		return
	}
	if body.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	if err := business.CheckWalletAllowed(dbconfig.DB, body.WalletAddress); err != nil {
		respondError(c, err)
		return
	}

	request := models.WithdrawalRequest{
		WalletAddress: body.WalletAddress,
		PoolID:        body.PoolID,
		Feature:       body.Feature,
		Amount:        body.Amount,
		Status:        models.WithdrawalStatusPending,
	}
	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		var inflight int64
		if err := tx.Model(&models.WithdrawalRequest{}).
			Where("wallet_address = ? AND pool_id = ? AND feature = ? AND status IN ?",
				body.WalletAddress, body.PoolID, body.Feature,
				[]string{models.WithdrawalStatusPending, models.WithdrawalStatusProcessing}).
			Count(&inflight).Error; err != nil {
			return err
		}
		if inflight > 0 {
			return launcherr.ErrClaimInProgress
		}
		return tx.Create(&request).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// ListWithdrawalRequests returns withdrawal requests, optionally filtered by
// wallet, feature, or status
func ListWithdrawalRequests(c *gin.Context) {
	query := dbconfig.DB.Order("created_at DESC")
	if wallet := c.Query("wallet"); wallet != "" {
		query = query.Where("wallet_address = ?", wallet)
	}
	if feature := c.Query("feature"); feature != "" {
		query = query.Where("feature = ?", feature)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.WithdrawalRequest
	if err := query.Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, requests)
}

// CompleteWithdrawalRequest settles a processing request with its payout
// transaction hash. Operator surface; the conditional update keeps a
// concurrent reject from racing it.
func CompleteWithdrawalRequest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		TxHash string `json:"tx_hash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := dbconfig.DB.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status IN ?", id,
			[]string{models.WithdrawalStatusPending, models.WithdrawalStatusProcessing}).
		Updates(map[string]interface{}{
			"status":  models.WithdrawalStatusCompleted,
			"tx_hash": body.TxHash,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "request is not in flight"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.WithdrawalStatusCompleted})
}

// RejectWithdrawalRequest rejects an in-flight request, freeing the slot for
// a new one
func RejectWithdrawalRequest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	if err := business.ValidateReason(body.Reason); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := dbconfig.DB.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status IN ?", id,
			[]string{models.WithdrawalStatusPending, models.WithdrawalStatusProcessing}).
		Updates(map[string]interface{}{
			"status":        models.WithdrawalStatusRejected,
			"reject_reason": body.Reason,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "request is not in flight"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.WithdrawalStatusRejected})
}
