package business

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.LaunchStatusPendingContributions, models.LaunchStatusReadyToLaunch, true},
		{models.LaunchStatusPendingContributions, models.LaunchStatusCancelled, true},
		{models.LaunchStatusReadyToLaunch, models.LaunchStatusLaunching, true},
		{models.LaunchStatusReadyToLaunch, models.LaunchStatusFailed, true},
		{models.LaunchStatusLaunching, models.LaunchStatusCreated, true},
		{models.LaunchStatusLaunching, models.LaunchStatusFailed, true},

		// No backward moves, no shortcuts, terminal states stay terminal.
		{models.LaunchStatusReadyToLaunch, models.LaunchStatusPendingContributions, false},
		{models.LaunchStatusLaunching, models.LaunchStatusReadyToLaunch, false},
		{models.LaunchStatusPendingContributions, models.LaunchStatusLaunching, false},
		{models.LaunchStatusPendingContributions, models.LaunchStatusCreated, false},
		{models.LaunchStatusReadyToLaunch, models.LaunchStatusCancelled, false},
		{models.LaunchStatusCreated, models.LaunchStatusFailed, false},
		{models.LaunchStatusCreated, models.LaunchStatusLaunching, false},
		{models.LaunchStatusFailed, models.LaunchStatusLaunching, false},
		{models.LaunchStatusCancelled, models.LaunchStatusPendingContributions, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+" to "+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestBeginLaunch(t *testing.T) {
	db := newTestDB(t)

	t.Run("from ready", func(t *testing.T) {
		launch := seedLaunch(t, db, func(l *models.Launch) {
			l.Status = models.LaunchStatusReadyToLaunch
			l.DepositWalletAddress = "Dep1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		})

		got, err := BeginLaunch(db, launch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LaunchStatusLaunching, got.Status)
	})

	t.Run("retried trigger is a no-op", func(t *testing.T) {
		launch := seedLaunch(t, db, func(l *models.Launch) {
			l.Status = models.LaunchStatusLaunching
			l.DepositWalletAddress = "Dep2aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		})

		got, err := BeginLaunch(db, launch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LaunchStatusLaunching, got.Status)
	})

	t.Run("rejected while accepting", func(t *testing.T) {
		launch := seedLaunch(t, db, func(l *models.Launch) {
			l.DepositWalletAddress = "Dep3aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		})

		_, err := BeginLaunch(db, launch.ID)
		assert.True(t, errors.Is(err, launcherr.ErrInvalidState))
	})
}

func TestCompleteLaunch(t *testing.T) {
	db := newTestDB(t)
	launch := seedLaunch(t, db, func(l *models.Launch) {
		l.Status = models.LaunchStatusLaunching
	})

	require.NoError(t, CompleteLaunch(db, launch.ID, "MintAddr111", "sigabc"))

	var got models.Launch
	require.NoError(t, db.First(&got, launch.ID).Error)
	assert.Equal(t, models.LaunchStatusCreated, got.Status)
	assert.Equal(t, "MintAddr111", got.TokenMint)
	assert.Equal(t, "sigabc", got.CreationTxHash)

	// A second completion finds no launching row.
	err := CompleteLaunch(db, launch.ID, "MintAddr222", "sigdef")
	assert.True(t, errors.Is(err, launcherr.ErrInvalidState))
}

func TestFailLaunch(t *testing.T) {
	db := newTestDB(t)

	t.Run("from launching", func(t *testing.T) {
		launch := seedLaunch(t, db, func(l *models.Launch) {
			l.Status = models.LaunchStatusLaunching
			l.DepositWalletAddress = "Dep4aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		})

		require.NoError(t, FailLaunch(db, launch.ID, "transaction rejected"))

		var got models.Launch
		require.NoError(t, db.First(&got, launch.ID).Error)
		assert.Equal(t, models.LaunchStatusFailed, got.Status)
		assert.Equal(t, "transaction rejected", got.FailReason)
	})

	t.Run("accepting launches cannot fail", func(t *testing.T) {
		launch := seedLaunch(t, db, func(l *models.Launch) {
			l.DepositWalletAddress = "Dep5aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		})

		err := FailLaunch(db, launch.ID, "nope")
		assert.True(t, errors.Is(err, launcherr.ErrInvalidState))
	})
}

func TestCancelLaunch(t *testing.T) {
	db := newTestDB(t)

	t.Run("empty launch cancels", func(t *testing.T) {
		launch := seedLaunch(t, db, nil)

		require.NoError(t, CancelLaunch(db, launch.ID))

		var got models.Launch
		require.NoError(t, db.First(&got, launch.ID).Error)
		assert.Equal(t, models.LaunchStatusCancelled, got.Status)
	})

	t.Run("funded launch cannot cancel", func(t *testing.T) {
		launch := seedLaunch(t, db, func(l *models.Launch) {
			l.TotalContributed = 0.5
			l.ContributorCount = 1
			l.DepositWalletAddress = "Dep6aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		})

		err := CancelLaunch(db, launch.ID)
		assert.True(t, errors.Is(err, launcherr.ErrInvalidState))
	})
}

func TestMarkCreationSubmitted(t *testing.T) {
	db := newTestDB(t)
	launch := seedLaunch(t, db, func(l *models.Launch) {
		l.Status = models.LaunchStatusLaunching
	})

	require.NoError(t, MarkCreationSubmitted(db, launch.ID, "MintPending1", "sigpending"))

	var got models.Launch
	require.NoError(t, db.First(&got, launch.ID).Error)
	assert.Equal(t, models.LaunchStatusLaunching, got.Status, "recording the tx must not advance the state")
	assert.Equal(t, "MintPending1", got.TokenMint)
	assert.Equal(t, "sigpending", got.CreationTxHash)
}
