package business

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
)

// stubVerifier stands in for the RPC-backed transfer verifier.
type stubVerifier struct {
	err   error
	calls int
}

func (v *stubVerifier) VerifyIncomingTransfer(ctx context.Context, txHash, depositAddress string, amount float64) error {
	v.calls++
	return v.err
}

// barrierVerifier blocks every caller until the gate's full count has
// arrived, forcing concurrent registrations past their pre-transaction
// checks before either one inserts.
type barrierVerifier struct {
	gate *sync.WaitGroup
}

func (v *barrierVerifier) VerifyIncomingTransfer(ctx context.Context, txHash, depositAddress string, amount float64) error {
	v.gate.Done()
	v.gate.Wait()
	return nil
}

const (
	walletA = "4Nd1mYvK9Y6rXvXq2hPq8jR5sTkWuGmBnCzDpEfHtJkW"
	walletB = "7TuWsRqPnMkJhGfEdCbAz5y4X3w2V1uTsRqPnMkJhGfE"
	walletC = "2BcDeFgHjKmNpQrStUvWxYz1a3b4c5d6e7f8g9hJkMnP"
)

func TestRegisterContribution(t *testing.T) {
	ctx := context.Background()

	t.Run("records contribution and audit row", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, nil)
		verifier := &stubVerifier{}

		contribution, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.5, "tx1")
		require.NoError(t, err)
		assert.Equal(t, 1, verifier.calls)
		assert.Equal(t, 0.5, contribution.Amount)
		assert.False(t, contribution.Claimed)

		var got models.Launch
		require.NoError(t, db.First(&got, launch.ID).Error)
		assert.InDelta(t, 0.5, got.TotalContributed, 1e-9)
		assert.Equal(t, 1, got.ContributorCount)
		assert.Equal(t, models.LaunchStatusPendingContributions, got.Status)

		var record models.LaunchFundTransferRecord
		require.NoError(t, db.Where("launch_id = ? AND purpose = ?", launch.ID, models.TransferPurposeContribution).First(&record).Error)
		assert.Equal(t, "in", record.Direction)
		assert.Equal(t, walletA, record.Counterparty)
		assert.Equal(t, "tx1", record.TxHash)
	})

	t.Run("counts a wallet once across contributions", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, nil)
		verifier := &stubVerifier{}

		_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.3, "tx1")
		require.NoError(t, err)
		_, err = RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.3, "tx2")
		require.NoError(t, err)
		_, err = RegisterContribution(ctx, db, verifier, launch.ID, walletB, 0.3, "tx3")
		require.NoError(t, err)

		var got models.Launch
		require.NoError(t, db.First(&got, launch.ID).Error)
		assert.Equal(t, 2, got.ContributorCount)
		assert.InDelta(t, 0.9, got.TotalContributed, 1e-9)
	})

	t.Run("per-wallet cap", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, nil)
		verifier := &stubVerifier{}

		_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.8, "tx1")
		require.NoError(t, err)

		_, err = RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.3, "tx2")
		assert.True(t, errors.Is(err, launcherr.ErrPerWalletCapExceeded))

		// Exactly reaching the cap is allowed.
		_, err = RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.2, "tx3")
		assert.NoError(t, err)
	})

	t.Run("concurrent same-wallet contributions respect cap", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, nil)

		// Hold both registrations at the verifier until both passed the
		// advisory cap check, then release them together.
		var gate sync.WaitGroup
		gate.Add(2)
		verifier := &barrierVerifier{gate: &gate}

		errs := make(chan error, 2)
		for _, txHash := range []string{"txrace1", "txrace2"} {
			txHash := txHash
			go func() {
				_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 1.0, txHash)
				errs <- err
			}()
		}

		var rejected []error
		for i := 0; i < 2; i++ {
			if err := <-errs; err != nil {
				rejected = append(rejected, err)
			}
		}
		require.Len(t, rejected, 1, "exactly one of the racing contributions must be rejected")
		assert.True(t, errors.Is(rejected[0], launcherr.ErrPerWalletCapExceeded))

		var total float64
		require.NoError(t, db.Model(&models.Contribution{}).
			Where("launch_id = ? AND wallet_address = ?", launch.ID, walletA).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&total).Error)
		assert.InDelta(t, 1.0, total, solEpsilon)
	})

	t.Run("rejects zero and negative amounts", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, nil)
		verifier := &stubVerifier{}

		_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0, "tx1")
		assert.True(t, errors.Is(err, launcherr.ErrPerWalletCapExceeded))
		_, err = RegisterContribution(ctx, db, verifier, launch.ID, walletA, -1, "tx2")
		assert.True(t, errors.Is(err, launcherr.ErrPerWalletCapExceeded))
		assert.Zero(t, verifier.calls, "verification must not run for invalid amounts")
	})

	t.Run("hardcap enforcement and promotion", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, func(l *models.Launch) {
			l.PerWalletCap = 11
		})
		verifier := &stubVerifier{}

		_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 10.5, "tx1")
		require.NoError(t, err)

		// 10.5 + 1.0 overshoots an 11 SOL hardcap.
		_, err = RegisterContribution(ctx, db, verifier, launch.ID, walletB, 1.0, "tx2")
		assert.True(t, errors.Is(err, launcherr.ErrHardcapExceeded))

		var got models.Launch
		require.NoError(t, db.First(&got, launch.ID).Error)
		assert.InDelta(t, 10.5, got.TotalContributed, 1e-9)
		assert.Equal(t, models.LaunchStatusPendingContributions, got.Status)

		// The exact remainder fills the launch and promotes it.
		_, err = RegisterContribution(ctx, db, verifier, launch.ID, walletB, 0.5, "tx3")
		require.NoError(t, err)

		require.NoError(t, db.First(&got, launch.ID).Error)
		assert.InDelta(t, 11, got.TotalContributed, 1e-9)
		assert.Equal(t, models.LaunchStatusReadyToLaunch, got.Status)

		// Full launches accept nothing further.
		_, err = RegisterContribution(ctx, db, verifier, launch.ID, walletC, 0.1, "tx4")
		assert.True(t, errors.Is(err, launcherr.ErrLaunchNotAccepting))
	})

	t.Run("duplicate tx hash", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, nil)
		verifier := &stubVerifier{}

		_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.5, "txdup")
		require.NoError(t, err)

		_, err = RegisterContribution(ctx, db, verifier, launch.ID, walletB, 0.5, "txdup")
		assert.True(t, errors.Is(err, launcherr.ErrDuplicateSubmission))

		// The rolled-back insert must not leave its increment behind.
		var got models.Launch
		require.NoError(t, db.First(&got, launch.ID).Error)
		assert.InDelta(t, 0.5, got.TotalContributed, 1e-9)
		assert.Equal(t, 1, got.ContributorCount)
	})

	t.Run("blocked wallet", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, nil)
		verifier := &stubVerifier{}

		require.NoError(t, db.Create(&models.BlockedWallet{
			WalletAddress: walletA,
			Reason:        "sanctioned",
			IsActive:      true,
		}).Error)

		_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.5, "tx1")
		assert.True(t, errors.Is(err, launcherr.ErrWalletBlocked))
		assert.Zero(t, verifier.calls)

		var count int64
		require.NoError(t, db.Model(&models.Contribution{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("unverified transfer", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, nil)
		verifier := &stubVerifier{err: launcherr.ErrTransferUnconfirmed}

		_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.5, "tx1")
		assert.True(t, errors.Is(err, launcherr.ErrTransferUnconfirmed))

		var got models.Launch
		require.NoError(t, db.First(&got, launch.ID).Error)
		assert.Zero(t, got.TotalContributed)
	})

	t.Run("missing tx hash", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, nil)
		verifier := &stubVerifier{}

		_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.5, "")
		assert.True(t, errors.Is(err, launcherr.ErrTransferUnconfirmed))
		assert.Zero(t, verifier.calls)
	})

	t.Run("launch not accepting", func(t *testing.T) {
		db := newTestDB(t)
		launch := seedLaunch(t, db, func(l *models.Launch) {
			l.Status = models.LaunchStatusCreated
		})
		verifier := &stubVerifier{}

		_, err := RegisterContribution(ctx, db, verifier, launch.ID, walletA, 0.5, "tx1")
		assert.True(t, errors.Is(err, launcherr.ErrLaunchNotAccepting))
	})

	t.Run("unknown launch", func(t *testing.T) {
		db := newTestDB(t)
		verifier := &stubVerifier{}

		_, err := RegisterContribution(ctx, db, verifier, 9999, walletA, 0.5, "tx1")
		assert.True(t, errors.Is(err, launcherr.ErrLaunchNotAccepting))
	})
}

func TestWalletContribution(t *testing.T) {
	db := newTestDB(t)
	launch := seedLaunch(t, db, nil)

	_, err := WalletContribution(db, launch.ID, walletA)
	assert.True(t, errors.Is(err, launcherr.ErrNoContribution))

	require.NoError(t, db.Create(&models.Contribution{
		LaunchID:      launch.ID,
		WalletAddress: walletA,
		Amount:        0.4,
		TxHash:        "tx1",
	}).Error)

	got, err := WalletContribution(db, launch.ID, walletA)
	require.NoError(t, err)
	assert.Equal(t, 0.4, got.Amount)
}
