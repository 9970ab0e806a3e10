package business

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
)

// legalTransitions is the full launch lifecycle. Launches only move forward;
// refunds decrement the ledger but never move a launch backward.
var legalTransitions = map[string][]string{
	models.LaunchStatusPendingContributions: {models.LaunchStatusReadyToLaunch, models.LaunchStatusCancelled},
	models.LaunchStatusReadyToLaunch:        {models.LaunchStatusLaunching, models.LaunchStatusFailed},
	models.LaunchStatusLaunching:            {models.LaunchStatusCreated, models.LaunchStatusFailed},
}

// CanTransition reports whether from -> to is a legal launch transition.
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition flips a launch from one status to another with a conditional
// update, so two concurrent triggers cannot both apply. Extra column updates
// ride in the same statement.
func transition(db *gorm.DB, launchID uint, from, to string, updates map[string]interface{}) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", launcherr.ErrInvalidState, from, to)
	}

	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	res := db.Model(&models.Launch{}).
		Where("id = ? AND status = ?", launchID, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to transition launch %d: %w", launchID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: launch %d is not in state %s", launcherr.ErrInvalidState, launchID, from)
	}

	log.WithFields(log.Fields{"launch_id": launchID, "from": from, "to": to}).
		Info("Launch state transition")
	return nil
}

// BeginLaunch moves a launch from ready_to_launch to launching. A retried
// trigger while already launching is a no-op, since transaction submission
// may be retried.
func BeginLaunch(db *gorm.DB, launchID uint) (*models.Launch, error) {
	err := transition(db, launchID, models.LaunchStatusReadyToLaunch, models.LaunchStatusLaunching, nil)
	if err != nil && errors.Is(err, launcherr.ErrInvalidState) {
		var launch models.Launch
		if ferr := db.First(&launch, launchID).Error; ferr != nil {
			return nil, fmt.Errorf("launch %d not found: %w", launchID, ferr)
		}
		if launch.Status == models.LaunchStatusLaunching {
			return &launch, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	var launch models.Launch
	if err := db.First(&launch, launchID).Error; err != nil {
		return nil, fmt.Errorf("launch %d not found after transition: %w", launchID, err)
	}
	return &launch, nil
}

// CompleteLaunch moves a launch from launching to created, recording the
// token mint and the confirmed creation transaction.
func CompleteLaunch(db *gorm.DB, launchID uint, tokenMint, txHash string) error {
	return transition(db, launchID, models.LaunchStatusLaunching, models.LaunchStatusCreated, map[string]interface{}{
		"token_mint":       tokenMint,
		"creation_tx_hash": txHash,
	})
}

// FailLaunch marks a launch failed after an unrecoverable submission error.
// Callers must not invoke this on a mere confirmation timeout while
// resubmission with the same funds is still possible.
func FailLaunch(db *gorm.DB, launchID uint, reason string) error {
	var launch models.Launch
	if err := db.First(&launch, launchID).Error; err != nil {
		return fmt.Errorf("launch %d not found: %w", launchID, err)
	}

	return transition(db, launchID, launch.Status, models.LaunchStatusFailed, map[string]interface{}{
		"fail_reason": reason,
	})
}

// CancelLaunch cancels a launch that never received a contribution. The
// conditional update keeps it unreachable once funds have arrived.
func CancelLaunch(db *gorm.DB, launchID uint) error {
	res := db.Model(&models.Launch{}).
		Where("id = ? AND status = ? AND total_contributed < ? AND contributor_count = 0",
			launchID, models.LaunchStatusPendingContributions, solEpsilon).
		Update("status", models.LaunchStatusCancelled)
	if res.Error != nil {
		return fmt.Errorf("failed to cancel launch %d: %w", launchID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: launch %d cannot be cancelled", launcherr.ErrInvalidState, launchID)
	}

	log.Infof("Launch %d cancelled", launchID)
	return nil
}

// MarkCreationSubmitted records the in-flight creation transaction on a
// launching row so the watchdog can resolve it after a timeout.
func MarkCreationSubmitted(db *gorm.DB, launchID uint, tokenMint, txHash string) error {
	return db.Model(&models.Launch{}).
		Where("id = ? AND status = ?", launchID, models.LaunchStatusLaunching).
		Updates(map[string]interface{}{
			"token_mint":       tokenMint,
			"creation_tx_hash": txHash,
		}).Error
}
