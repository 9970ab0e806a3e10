package business

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
)

func TestValidateWalletAddress(t *testing.T) {
	valid := "4Nd1mYvK9Y6rXvXq2hPq8jR5sTkWuGmBnCzDpEfHtJkW"

	tests := []struct {
		name    string
		wallet  string
		wantErr bool
	}{
		{"valid address", valid, false},
		{"valid short address", strings.Repeat("a", 32), false},
		{"empty", "", true},
		{"too short", "abc", true},
		{"too long", strings.Repeat("a", 45), true},
		{"zero not in base58", strings.Repeat("a", 31) + "0", true},
		{"capital O not in base58", strings.Repeat("a", 31) + "O", true},
		{"capital I not in base58", strings.Repeat("a", 31) + "I", true},
		{"lowercase l not in base58", strings.Repeat("a", 31) + "l", true},
		{"whitespace", strings.Repeat("a", 31) + " ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWalletAddress(tt.wallet)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckWalletAllowed(t *testing.T) {
	db := newTestDB(t)

	blocked := "9XyWvUtSrQpMnMkJhGfEdCbA5z4Y3x2W1vUtSrQpNmKj"
	clean := "4Nd1mYvK9Y6rXvXq2hPq8jR5sTkWuGmBnCzDpEfHtJkW"

	require.NoError(t, db.Create(&models.BlockedWallet{
		WalletAddress: blocked,
		Reason:        "chargeback abuse",
		IsActive:      true,
	}).Error)

	t.Run("clean wallet passes", func(t *testing.T) {
		assert.NoError(t, CheckWalletAllowed(db, clean))
	})

	t.Run("blocked wallet rejected", func(t *testing.T) {
		err := CheckWalletAllowed(db, blocked)
		assert.True(t, errors.Is(err, launcherr.ErrWalletBlocked))
	})

	t.Run("deactivated block passes", func(t *testing.T) {
		require.NoError(t, db.Model(&models.BlockedWallet{}).
			Where("wallet_address = ?", blocked).
			Update("is_active", false).Error)
		assert.NoError(t, CheckWalletAllowed(db, blocked))
	})
}

func TestValidateLaunchInput(t *testing.T) {
	assert.NoError(t, ValidateLaunchInput("My Token", "MTK"))
	assert.Error(t, ValidateLaunchInput("", "MTK"))
	assert.Error(t, ValidateLaunchInput("My Token", ""))
	assert.Error(t, ValidateLaunchInput(strings.Repeat("x", 65), "MTK"))
	assert.Error(t, ValidateLaunchInput("My Token", strings.Repeat("x", 17)))
}

func TestValidateReason(t *testing.T) {
	assert.NoError(t, ValidateReason(""))
	assert.NoError(t, ValidateReason("spam"))
	assert.Error(t, ValidateReason(strings.Repeat("x", 257)))
}
