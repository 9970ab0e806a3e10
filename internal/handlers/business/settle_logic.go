package business

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
)

// PayoutSender signs and submits payouts from a launch escrow wallet.
// Implemented by pkg/solana.EscrowPayer; tests stub it.
type PayoutSender interface {
	SendSOL(ctx context.Context, encryptedSecret, to string, amount float64) (string, error)
	SendToken(ctx context.Context, encryptedSecret, mint, to string, amount uint64, decimals uint8) (string, error)
	Confirm(ctx context.Context, txHash string) error
}

// ComputeContributorShare returns the whole-token allocation for one
// contribution: floor(contributorPool * amount / hardcap). The denominator is
// the fixed hardcap, not the realized total, because the pool is sized
// against the target. Flooring guarantees the summed shares never exceed the
// pool; the dust remainder is not redistributed.
func ComputeContributorShare(c *models.Contribution, l *models.Launch) int64 {
	if l.Hardcap <= 0 {
		return 0
	}
	return int64(math.Floor(l.ContributorPool * c.Amount / l.Hardcap))
}

// ClaimTokens pays out a contributor's token share exactly once.
//
// Preconditions: launch is created, the wallet holds an unclaimed
// contribution, and no claim for the same (wallet, launch) is in flight. The
// claimed flag flips only after the transfer confirms, via a conditional
// update, so a crashed or timed-out claim stays retryable while a concurrent
// one is rejected with ErrClaimInProgress.
func ClaimTokens(ctx context.Context, db *gorm.DB, payer PayoutSender, launchID uint, wallet string) (string, error) {
	if err := CheckWalletAllowed(db, wallet); err != nil {
		return "", err
	}

	var launch models.Launch
	if err := db.First(&launch, launchID).Error; err != nil {
		return "", fmt.Errorf("launch %d not found: %w", launchID, err)
	}
	if launch.Status != models.LaunchStatusCreated {
		return "", fmt.Errorf("%w: launch %d is %s, claims require created", launcherr.ErrInvalidState, launchID, launch.Status)
	}

	contribution, err := WalletContribution(db, launchID, wallet)
	if err != nil {
		return "", err
	}
	if contribution.Claimed {
		return "", launcherr.ErrAlreadyClaimed
	}

	share := ComputeContributorShare(contribution, &launch)
	if share <= 0 {
		return "", fmt.Errorf("%w: zero share for %f SOL", launcherr.ErrNoContribution, contribution.Amount)
	}

	// Reserve the claim: the in-flight check and the insert share one
	// transaction, mirroring the withdrawal-request rule used by the other
	// payout features.
	request := &models.WithdrawalRequest{
		WalletAddress: wallet,
		PoolID:        launchID,
		Feature:       models.FeatureLaunchClaim,
		Amount:        float64(share),
		Status:        models.WithdrawalStatusProcessing,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		var inflight int64
		if err := tx.Model(&models.WithdrawalRequest{}).
			Where("wallet_address = ? AND pool_id = ? AND feature = ? AND status IN ?",
				wallet, launchID, models.FeatureLaunchClaim,
				[]string{models.WithdrawalStatusPending, models.WithdrawalStatusProcessing}).
			Count(&inflight).Error; err != nil {
			return fmt.Errorf("failed to check in-flight claims: %w", err)
		}
		if inflight > 0 {
			return launcherr.ErrClaimInProgress
		}
		return tx.Create(request).Error
	})
	if err != nil {
		return "", err
	}

	baseUnits := uint64(share) * pow10(launch.TokenDecimals)
	txHash, sendErr := payer.SendToken(ctx, launch.EncryptedPrivateKey, launch.TokenMint, wallet, baseUnits, launch.TokenDecimals)

	if sendErr != nil {
		if errors.Is(sendErr, launcherr.ErrConfirmationTimeout) && txHash != "" {
			// Leave the request processing with the signature attached; the
			// watchdog (or a retried claim) resolves it from chain state.
			db.Model(request).Update("tx_hash", txHash)
			return txHash, sendErr
		}
		// Terminal failure frees the slot for a fresh claim attempt.
		db.Model(request).Updates(map[string]interface{}{
			"status":        models.WithdrawalStatusRejected,
			"reject_reason": sendErr.Error(),
		})
		return "", sendErr
	}

	if err := finalizeClaim(db, request, contribution, &launch, txHash, float64(share)); err != nil {
		return txHash, err
	}

	log.WithFields(log.Fields{
		"launch_id": launchID,
		"wallet":    wallet,
		"share":     share,
		"tx_hash":   txHash,
	}).Info("Contribution claimed")

	return txHash, nil
}

// finalizeClaim flips the claimed flag and settles the request, all
// conditional on the row still being unclaimed.
func finalizeClaim(db *gorm.DB, request *models.WithdrawalRequest, contribution *models.Contribution, launch *models.Launch, txHash string, share float64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Contribution{}).
			Where("id = ? AND claimed = ?", contribution.ID, false).
			Updates(map[string]interface{}{
				"claimed":       true,
				"claimed_at":    &now,
				"claim_tx_hash": txHash,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark contribution claimed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return launcherr.ErrAlreadyClaimed
		}

		if err := tx.Model(request).Updates(map[string]interface{}{
			"status":  models.WithdrawalStatusCompleted,
			"tx_hash": txHash,
		}).Error; err != nil {
			return fmt.Errorf("failed to complete withdrawal request: %w", err)
		}

		return tx.Create(&models.LaunchFundTransferRecord{
			LaunchID:     launch.ID,
			Direction:    "out",
			Purpose:      models.TransferPurposeClaim,
			Mint:         launch.TokenMint,
			Amount:       share,
			Counterparty: contribution.WalletAddress,
			TxHash:       txHash,
			Confirmed:    true,
		}).Error
	})
}

// ResolveStaleClaim re-checks a processing claim whose transfer was
// submitted but timed out, completing or releasing it from chain state.
// Called by the watchdog.
func ResolveStaleClaim(ctx context.Context, db *gorm.DB, payer PayoutSender, request *models.WithdrawalRequest) error {
	if request.Feature != models.FeatureLaunchClaim || request.Status != models.WithdrawalStatusProcessing {
		return nil
	}
	if request.TxHash == "" {
		// Never submitted; release the slot.
		return db.Model(request).Updates(map[string]interface{}{
			"status":        models.WithdrawalStatusRejected,
			"reject_reason": "transfer never submitted",
		}).Error
	}

	err := payer.Confirm(ctx, request.TxHash)
	switch {
	case err == nil:
		var launch models.Launch
		if ferr := db.First(&launch, request.PoolID).Error; ferr != nil {
			return ferr
		}
		contribution, ferr := WalletContribution(db, request.PoolID, request.WalletAddress)
		if ferr != nil {
			return ferr
		}
		return finalizeClaim(db, request, contribution, &launch, request.TxHash, request.Amount)
	case errors.Is(err, launcherr.ErrSubmissionFailed):
		return db.Model(request).Updates(map[string]interface{}{
			"status":        models.WithdrawalStatusRejected,
			"reject_reason": err.Error(),
		}).Error
	default:
		// Still unconfirmed; leave it for the next sweep.
		return nil
	}
}

// Refund reverses a wallet's most recent contribution before a launch
// proceeds. The row delete and the aggregate decrement are one transaction,
// recorded as an unconfirmed outgoing fund record; only the transfer step is
// retried afterwards, keyed off that record, so the ledger never
// double-decrements.
func Refund(ctx context.Context, db *gorm.DB, payer PayoutSender, launchID uint, wallet string) (string, error) {
	if err := CheckWalletAllowed(db, wallet); err != nil {
		return "", err
	}

	var launch models.Launch
	if err := db.First(&launch, launchID).Error; err != nil {
		return "", fmt.Errorf("launch %d not found: %w", launchID, err)
	}
	if launch.Status != models.LaunchStatusPendingContributions {
		return "", launcherr.ErrLaunchNotAccepting
	}

	var record models.LaunchFundTransferRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		// A prior refund attempt that already decremented the ledger leaves
		// an unconfirmed record behind; reuse it instead of mutating again.
		err := tx.Where("launch_id = ? AND counterparty = ? AND purpose = ? AND confirmed = ?",
			launchID, wallet, models.TransferPurposeRefund, false).
			First(&record).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check refund records: %w", err)
		}

		var contribution models.Contribution
		err = tx.Where("launch_id = ? AND wallet_address = ?", launchID, wallet).
			Order("created_at DESC").
			First(&contribution).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return launcherr.ErrNoContribution
			}
			return fmt.Errorf("failed to load contribution: %w", err)
		}

		if err := tx.Delete(&contribution).Error; err != nil {
			return fmt.Errorf("failed to delete contribution: %w", err)
		}

		if err := tx.Model(&models.Launch{}).Where("id = ?", launchID).
			Update("total_contributed", gorm.Expr("total_contributed - ?", contribution.Amount)).Error; err != nil {
			return fmt.Errorf("failed to decrement launch total: %w", err)
		}

		var remaining int64
		if err := tx.Model(&models.Contribution{}).
			Where("launch_id = ? AND wallet_address = ?", launchID, wallet).
			Count(&remaining).Error; err != nil {
			return fmt.Errorf("failed to count remaining contributions: %w", err)
		}
		if remaining == 0 {
			if err := tx.Model(&models.Launch{}).
				Where("id = ? AND contributor_count > 0", launchID).
				Update("contributor_count", gorm.Expr("contributor_count - 1")).Error; err != nil {
				return fmt.Errorf("failed to decrement contributor count: %w", err)
			}
		}

		record = models.LaunchFundTransferRecord{
			LaunchID:     launchID,
			Direction:    "out",
			Purpose:      models.TransferPurposeRefund,
			Mint:         "sol",
			Amount:       contribution.Amount,
			Counterparty: wallet,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return "", err
	}

	// A signature from a prior timed-out attempt may already be in flight;
	// confirm it rather than double-sending.
	if record.TxHash != "" {
		err := payer.Confirm(ctx, record.TxHash)
		switch {
		case err == nil:
			if uerr := db.Model(&record).Update("confirmed", true).Error; uerr != nil {
				return record.TxHash, uerr
			}
			return record.TxHash, nil
		case errors.Is(err, launcherr.ErrSubmissionFailed):
			record.TxHash = ""
			if uerr := db.Model(&record).Update("tx_hash", "").Error; uerr != nil {
				return "", uerr
			}
			// fall through to resend
		default:
			return record.TxHash, err
		}
	}

	txHash, sendErr := payer.SendSOL(ctx, launch.EncryptedPrivateKey, wallet, record.Amount)
	if txHash != "" {
		db.Model(&record).Update("tx_hash", txHash)
	}
	if sendErr != nil {
		return txHash, sendErr
	}
	if err := db.Model(&record).Update("confirmed", true).Error; err != nil {
		return txHash, err
	}

	log.WithFields(log.Fields{
		"launch_id": launchID,
		"wallet":    wallet,
		"amount":    record.Amount,
		"tx_hash":   txHash,
	}).Info("Contribution refunded")

	return txHash, nil
}

func pow10(n uint8) uint64 {
	result := uint64(1)
	for i := uint8(0); i < n; i++ {
		result *= 10
	}
	return result
}
