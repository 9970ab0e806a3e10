package business

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"launchcontrol/internal/models"
)

// newTestDB opens a throwaway sqlite database with the full schema. Each test
// gets its own file so parallel tests never share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// The busy timeout lets concurrent write transactions queue instead of
	// erroring, matching postgres lock-wait behavior closely enough for the
	// race tests.
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Launch{},
		&models.Contribution{},
		&models.LaunchFundTransferRecord{},
		&models.WithdrawalRequest{},
		&models.BlockedWallet{},
	))

	return db
}

// seedLaunch inserts a launch with sane defaults, letting tests override the
// fields they care about.
func seedLaunch(t *testing.T, db *gorm.DB, mutate func(*models.Launch)) *models.Launch {
	t.Helper()

	launch := &models.Launch{
		Name:                 "Test Launch",
		Symbol:               "TEST",
		CreatorWallet:        "4Nd1mYvK9Y6rXvXq2hPq8jR5sTkWuGmBnCzDpEfHtJkW",
		Hardcap:              11,
		PerWalletCap:         1,
		ContributorPool:      150_000_000,
		StakePool:            250_000_000,
		RacePool:             150_000_000,
		BurnPool:             150_000_000,
		SocialPool:           100_000_000,
		DevLockPool:          150_000_000,
		CompensationPool:     50_000_000,
		TokenDecimals:        6,
		DepositWalletAddress: "8FtqLkPvXyWzJhNmRbScDuGeHaTiUoVpQnErYwAsKdXc",
		EncryptedPrivateKey:  "ZW5jcnlwdGVkLXNlY3JldA==",
		KeyVersion:           1,
		Status:               models.LaunchStatusPendingContributions,
	}
	if mutate != nil {
		mutate(launch)
	}
	require.NoError(t, db.Create(launch).Error)
	return launch
}
