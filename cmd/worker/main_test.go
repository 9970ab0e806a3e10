package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
	lcsolana "launchcontrol/pkg/solana"
)

func newWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "worker.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Launch{}, &models.LaunchFundTransferRecord{}))
	return db
}

func seedReadyLaunch(t *testing.T, db *gorm.DB) *models.Launch {
	t.Helper()

	launch := &models.Launch{
		Name:                 "Race Coin",
		Symbol:               "RACE",
		CreatorWallet:        "4Nd1mYvK9Y6rXvXq2hPq8jR5sTkWuGmBnCzDpEfHtJkW",
		Hardcap:              11,
		PerWalletCap:         1,
		TotalContributed:     11,
		ContributorPool:      150_000_000,
		TokenDecimals:        6,
		DepositWalletAddress: "8FtqLkPvXyWzJhNmRbScDuGeHaTiUoVpQnErYwAsKdXc",
		EncryptedPrivateKey:  "ZHVtbXktY2lwaGVydGV4dA==",
		Status:               models.LaunchStatusReadyToLaunch,
	}
	require.NoError(t, db.Create(launch).Error)
	return launch
}

type stubCreator struct {
	created *lcsolana.CreatedToken
	err     error
	calls   int
}

func (c *stubCreator) CreateLaunchToken(ctx context.Context, encryptedSecret string, supply uint64, decimals uint8) (*lcsolana.CreatedToken, error) {
	c.calls++
	return c.created, c.err
}

func TestHandleLaunchJob(t *testing.T) {
	t.Run("creates the token and completes the launch", func(t *testing.T) {
		db := newWorkerTestDB(t)
		launch := seedReadyLaunch(t, db)
		creator := &stubCreator{created: &lcsolana.CreatedToken{
			Mint:         "Mint11111111111111111111111111111111111111",
			Signature:    "sig1",
			RentLamports: 1_461_600,
		}}

		require.NoError(t, handleLaunchJob(db, creator, launch.ID))

		var updated models.Launch
		require.NoError(t, db.First(&updated, launch.ID).Error)
		assert.Equal(t, models.LaunchStatusCreated, updated.Status)
		assert.Equal(t, creator.created.Mint, updated.TokenMint)
		assert.Equal(t, "sig1", updated.CreationTxHash)

		var fee models.LaunchFundTransferRecord
		require.NoError(t, db.Where("launch_id = ? AND purpose = ?",
			launch.ID, models.TransferPurposeCreationFee).First(&fee).Error)
		assert.True(t, fee.Confirmed)
		assert.InDelta(t, 1_461_600.0/lcsolana.LamportsPerSol, fee.Amount, 1e-12)
	})

	t.Run("submission failure marks the launch failed", func(t *testing.T) {
		db := newWorkerTestDB(t)
		launch := seedReadyLaunch(t, db)
		creator := &stubCreator{err: fmt.Errorf("%w: custom program error", launcherr.ErrSubmissionFailed)}

		require.NoError(t, handleLaunchJob(db, creator, launch.ID))

		var updated models.Launch
		require.NoError(t, db.First(&updated, launch.ID).Error)
		assert.Equal(t, models.LaunchStatusFailed, updated.Status)
		assert.Contains(t, updated.FailReason, "submission failed")
	})

	t.Run("signing failure marks the launch failed", func(t *testing.T) {
		db := newWorkerTestDB(t)
		launch := seedReadyLaunch(t, db)
		creator := &stubCreator{err: fmt.Errorf("%w: cipher mismatch", launcherr.ErrSigningFailed)}

		require.NoError(t, handleLaunchJob(db, creator, launch.ID))

		var updated models.Launch
		require.NoError(t, db.First(&updated, launch.ID).Error)
		assert.Equal(t, models.LaunchStatusFailed, updated.Status)
	})

	t.Run("transient error requeues without failing the launch", func(t *testing.T) {
		db := newWorkerTestDB(t)
		launch := seedReadyLaunch(t, db)
		rpcErr := errors.New("rpc: connection refused")

		err := handleLaunchJob(db, &stubCreator{err: rpcErr}, launch.ID)
		require.ErrorIs(t, err, rpcErr)

		var updated models.Launch
		require.NoError(t, db.First(&updated, launch.ID).Error)
		assert.Equal(t, models.LaunchStatusLaunching, updated.Status)
		assert.Empty(t, updated.FailReason)

		// The redelivered job picks the launch back up and finishes it.
		retry := &stubCreator{created: &lcsolana.CreatedToken{Mint: "Mint1", Signature: "sig2"}}
		require.NoError(t, handleLaunchJob(db, retry, launch.ID))
		require.NoError(t, db.First(&updated, launch.ID).Error)
		assert.Equal(t, models.LaunchStatusCreated, updated.Status)
	})

	t.Run("confirmation timeout hands resolution to the watchdog", func(t *testing.T) {
		db := newWorkerTestDB(t)
		launch := seedReadyLaunch(t, db)
		creator := &stubCreator{
			created: &lcsolana.CreatedToken{Mint: "Mint1", Signature: "slowsig"},
			err:     launcherr.ErrConfirmationTimeout,
		}

		require.NoError(t, handleLaunchJob(db, creator, launch.ID))

		var updated models.Launch
		require.NoError(t, db.First(&updated, launch.ID).Error)
		assert.Equal(t, models.LaunchStatusLaunching, updated.Status)
		assert.Equal(t, "slowsig", updated.CreationTxHash)

		// A duplicate job must not mint a second time while the signature is
		// in flight.
		again := &stubCreator{}
		require.NoError(t, handleLaunchJob(db, again, launch.ID))
		assert.Zero(t, again.calls)
	})
}

func TestLaunchJobHandler(t *testing.T) {
	t.Run("drops an unparseable message", func(t *testing.T) {
		db := newWorkerTestDB(t)
		creator := &stubCreator{}
		handler := launchJobHandler(db, creator)

		assert.NoError(t, handler([]byte("not-json")), "a poison message must be acked, not requeued")
		assert.Zero(t, creator.calls)
	})

	t.Run("dispatches a valid message", func(t *testing.T) {
		db := newWorkerTestDB(t)
		launch := seedReadyLaunch(t, db)
		creator := &stubCreator{created: &lcsolana.CreatedToken{Mint: "Mint1", Signature: "sig1"}}
		handler := launchJobHandler(db, creator)

		require.NoError(t, handler([]byte(fmt.Sprintf(`{"launch_id":%d}`, launch.ID))))

		var updated models.Launch
		require.NoError(t, db.First(&updated, launch.ID).Error)
		assert.Equal(t, models.LaunchStatusCreated, updated.Status)
	})
}
