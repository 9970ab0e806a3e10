package business

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
)

// solEpsilon absorbs float64 noise when comparing SOL amounts. One lamport is
// 1e-9 SOL, so anything below half a lamport is rounding dust.
const solEpsilon = 5e-10

// TransferVerifier confirms that a funding transfer landed on the deposit
// wallet with the exact claimed amount. Implemented by pkg/solana.Client.
type TransferVerifier interface {
	VerifyIncomingTransfer(ctx context.Context, txHash, depositAddress string, amount float64) error
}

// RegisterContribution validates and records one confirmed contribution.
//
// Preconditions run in order, first failure wins: blocklist, launch state,
// per-wallet cap, hardcap headroom, on-chain confirmation. The insert and the
// aggregate increment are one transaction; the hardcap is enforced by a
// guarded UPDATE so two concurrent registrations cannot jointly overshoot it,
// and the per-wallet cap is re-checked inside the transaction for the same
// reason. Reaching the hardcap flips the launch to ready_to_launch in the
// same transaction.
func RegisterContribution(ctx context.Context, db *gorm.DB, verifier TransferVerifier, launchID uint, wallet string, amount float64, txHash string) (*models.Contribution, error) {
	if err := CheckWalletAllowed(db, wallet); err != nil {
		return nil, err
	}

	var launch models.Launch
	if err := db.First(&launch, launchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, launcherr.ErrLaunchNotAccepting
		}
		return nil, fmt.Errorf("failed to load launch %d: %w", launchID, err)
	}
	if launch.Status != models.LaunchStatusPendingContributions {
		return nil, launcherr.ErrLaunchNotAccepting
	}

	if amount <= 0 {
		return nil, launcherr.ErrPerWalletCapExceeded
	}
	// Fast-fail wallet cap check before paying for on-chain verification.
	// Advisory only: the re-check inside the transaction is the
	// authoritative one.
	var walletTotal float64
	if err := db.Model(&models.Contribution{}).
		Where("launch_id = ? AND wallet_address = ?", launchID, wallet).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&walletTotal).Error; err != nil {
		return nil, fmt.Errorf("failed to sum wallet contributions: %w", err)
	}
	if walletTotal+amount > launch.PerWalletCap+solEpsilon {
		return nil, launcherr.ErrPerWalletCapExceeded
	}

	// Fast-fail headroom check from the loaded row. Advisory only: the
	// guarded UPDATE below is the authoritative one.
	if launch.TotalContributed+amount > launch.Hardcap+solEpsilon {
		return nil, launcherr.ErrHardcapExceeded
	}

	if txHash == "" {
		return nil, fmt.Errorf("%w: missing tx hash", launcherr.ErrTransferUnconfirmed)
	}
	if err := verifier.VerifyIncomingTransfer(ctx, txHash, launch.DepositWalletAddress, amount); err != nil {
		return nil, err
	}

	contribution := &models.Contribution{
		LaunchID:      launchID,
		WalletAddress: wallet,
		Amount:        amount,
		TxHash:        txHash,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// The central race: two concurrent registrations must observe each
		// other's effect on total_contributed. Zero rows affected means the
		// live row has no headroom (or left the accepting state).
		res := tx.Model(&models.Launch{}).
			Where("id = ? AND status = ? AND total_contributed + ? <= hardcap + ?",
				launchID, models.LaunchStatusPendingContributions, amount, solEpsilon).
			Update("total_contributed", gorm.Expr("total_contributed + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to update launch total: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var live models.Launch
			if err := tx.First(&live, launchID).Error; err != nil {
				return fmt.Errorf("failed to reload launch %d: %w", launchID, err)
			}
			if live.Status != models.LaunchStatusPendingContributions {
				return launcherr.ErrLaunchNotAccepting
			}
			return launcherr.ErrHardcapExceeded
		}

		// The update above locked the launch row, so concurrent registrations
		// for this launch are serialized past this point. Re-check the wallet
		// cap against the committed rows: two registrations released together
		// both saw the pre-insert sum in the advisory check.
		var committed float64
		if err := tx.Model(&models.Contribution{}).
			Where("launch_id = ? AND wallet_address = ?", launchID, wallet).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&committed).Error; err != nil {
			return fmt.Errorf("failed to sum wallet contributions: %w", err)
		}
		if committed+amount > launch.PerWalletCap+solEpsilon {
			return launcherr.ErrPerWalletCapExceeded
		}

		// Count a wallet once, on its first contribution to this launch.
		var existing int64
		if err := tx.Model(&models.Contribution{}).
			Where("launch_id = ? AND wallet_address = ?", launchID, wallet).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to count wallet contributions: %w", err)
		}
		if existing == 0 {
			if err := tx.Model(&models.Launch{}).Where("id = ?", launchID).
				Update("contributor_count", gorm.Expr("contributor_count + 1")).Error; err != nil {
				return fmt.Errorf("failed to bump contributor count: %w", err)
			}
		}

		if err := tx.Create(contribution).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return launcherr.ErrDuplicateSubmission
			}
			return fmt.Errorf("failed to insert contribution: %w", err)
		}

		if err := tx.Create(&models.LaunchFundTransferRecord{
			LaunchID:     launchID,
			Direction:    "in",
			Purpose:      models.TransferPurposeContribution,
			Mint:         "sol",
			Amount:       amount,
			Counterparty: wallet,
			TxHash:       txHash,
		}).Error; err != nil {
			return fmt.Errorf("failed to record fund transfer: %w", err)
		}

		// Hitting the hardcap promotes the launch inside the same atomic
		// unit; there is no separate poll that could race with it.
		var updated models.Launch
		if err := tx.First(&updated, launchID).Error; err != nil {
			return fmt.Errorf("failed to reload launch %d: %w", launchID, err)
		}
		if updated.Hardcap-updated.TotalContributed < solEpsilon {
			if err := tx.Model(&models.Launch{}).
				Where("id = ? AND status = ?", launchID, models.LaunchStatusPendingContributions).
				Update("status", models.LaunchStatusReadyToLaunch).Error; err != nil {
				return fmt.Errorf("failed to mark launch ready: %w", err)
			}
			log.WithFields(log.Fields{"launch_id": launchID, "total": updated.TotalContributed}).
				Info("Hardcap reached, launch ready")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"launch_id": launchID,
		"wallet":    wallet,
		"amount":    amount,
		"tx_hash":   txHash,
	}).Info("Contribution registered")

	return contribution, nil
}

// WalletContribution returns the wallet's most recent unclaimed contribution
// for the launch.
func WalletContribution(db *gorm.DB, launchID uint, wallet string) (*models.Contribution, error) {
	var contribution models.Contribution
	err := db.Where("launch_id = ? AND wallet_address = ?", launchID, wallet).
		Order("created_at DESC").
		First(&contribution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, launcherr.ErrNoContribution
		}
		return nil, fmt.Errorf("failed to load contribution: %w", err)
	}
	return &contribution, nil
}
