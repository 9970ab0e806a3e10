package business

import (
	"fmt"

	"gorm.io/gorm"

	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
)

// Input bounds shared by all write paths. Checks run before any persistence;
// the first failure aborts the request.
const (
	minWalletAddressLen = 32
	maxWalletAddressLen = 44
	maxNameLen          = 64
	maxSymbolLen        = 16
	maxReasonLen        = 256
)

// CheckWalletAllowed validates the wallet address shape and rejects wallets
// on the active blocklist.
func CheckWalletAllowed(db *gorm.DB, wallet string) error {
	if err := ValidateWalletAddress(wallet); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.BlockedWallet{}).
		Where("wallet_address = ? AND is_active = ?", wallet, true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check blocklist: %w", err)
	}
	if count > 0 {
		return launcherr.ErrWalletBlocked
	}
	return nil
}

// ValidateWalletAddress rejects strings that cannot be a base58 Solana
// address. Full key validation happens at transfer time.
func ValidateWalletAddress(wallet string) error {
	if len(wallet) < minWalletAddressLen || len(wallet) > maxWalletAddressLen {
		return fmt.Errorf("invalid wallet address length %d", len(wallet))
	}
	for _, r := range wallet {
		// base58 alphabet: no 0, O, I, l
		valid := (r >= '1' && r <= '9') ||
			(r >= 'A' && r <= 'H') || (r >= 'J' && r <= 'N') || (r >= 'P' && r <= 'Z') ||
			(r >= 'a' && r <= 'k') || (r >= 'm' && r <= 'z')
		if !valid {
			return fmt.Errorf("invalid character %q in wallet address", r)
		}
	}
	return nil
}

// ValidateLaunchInput bounds-checks user-supplied launch fields.
func ValidateLaunchInput(name, symbol string) error {
	if name == "" || len(name) > maxNameLen {
		return fmt.Errorf("launch name must be 1-%d characters", maxNameLen)
	}
	if symbol == "" || len(symbol) > maxSymbolLen {
		return fmt.Errorf("launch symbol must be 1-%d characters", maxSymbolLen)
	}
	return nil
}

// ValidateReason bounds-checks free-text fields like block reasons.
func ValidateReason(reason string) error {
	if len(reason) > maxReasonLen {
		return fmt.Errorf("reason must be at most %d characters", maxReasonLen)
	}
	return nil
}
