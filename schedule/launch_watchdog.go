package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"

	"launchcontrol/internal/handlers/business"
	"launchcontrol/internal/models"
	dbconfig "launchcontrol/pkg/config"
	lcsolana "launchcontrol/pkg/solana"
)

const sweepTimeout = 90 * time.Second

// ResolvePendingCreations sweeps launches stuck in launching with a creation
// transaction already on-chain and settles them from the transaction status.
func ResolvePendingCreations(client *lcsolana.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	var launches []models.Launch
	if err := dbconfig.DB.
		Where("status = ? AND creation_tx_hash <> ''", models.LaunchStatusLaunching).
		Find(&launches).Error; err != nil {
		logger.Errorf("> Failed to query pending creations: %v", err)
		return err
	}
	if len(launches) == 0 {
		return nil
	}

	logger.Infof("> Found %d launches with pending token creation", len(launches))

	for _, launch := range launches {
		status, err := client.GetTransactionStatus(ctx, launch.CreationTxHash)
		if err != nil {
			logger.Errorf("> Failed to check creation tx for launch %d: %v", launch.ID, err)
			continue
		}

		switch {
		case status.Failed:
			if err := business.FailLaunch(dbconfig.DB, launch.ID, "token creation transaction failed on-chain"); err != nil {
				logger.Errorf("> Failed to mark launch %d failed: %v", launch.ID, err)
			} else {
				logger.Warnf("> Launch %d token creation failed on-chain (%s)", launch.ID, launch.CreationTxHash)
			}
		case status.Confirmed:
			if err := business.CompleteLaunch(dbconfig.DB, launch.ID, launch.TokenMint, launch.CreationTxHash); err != nil {
				logger.Errorf("> Failed to complete launch %d: %v", launch.ID, err)
			} else {
				logger.Infof("> Launch %d token creation confirmed (%s)", launch.ID, launch.TokenMint)
			}
		default:
			// Still in flight, check again next sweep.
		}
	}

	return nil
}

// ResolveStaleClaims sweeps claim withdrawal requests left processing by a
// confirmation timeout or a crashed API process.
func ResolveStaleClaims(payer *lcsolana.EscrowPayer) error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cutoff := time.Now().Add(-2 * time.Minute)
	var requests []models.WithdrawalRequest
	if err := dbconfig.DB.
		Where("feature = ? AND status = ? AND updated_at < ?",
			models.FeatureLaunchClaim, models.WithdrawalStatusProcessing, cutoff).
		Find(&requests).Error; err != nil {
		logger.Errorf("> Failed to query stale claims: %v", err)
		return err
	}
	if len(requests) == 0 {
		return nil
	}

	logger.Infof("> Found %d stale claim requests", len(requests))

	for i := range requests {
		request := requests[i]
		if err := business.ResolveStaleClaim(ctx, dbconfig.DB, payer, &request); err != nil {
			logger.Errorf("> Failed to resolve claim request %d: %v", request.ID, err)
		}
	}

	return nil
}

func main() {
	os.MkdirAll("logs", 0755)
	file, err := os.OpenFile("logs/launch_watchdog.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logger.SetOutput(file)
	} else {
		logger.Warn("Failed to open log file, logging to stdout")
	}

	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logger.InfoLevel)

	dbconfig.InitDB()
	logger.Info("> Database connection initialized")

	keyManager, err := lcsolana.NewEscrowKeyManager()
	if err != nil {
		logger.Fatalf("> Failed to initialize escrow key manager: %v", err)
	}
	client := lcsolana.NewClient()
	payer := lcsolana.NewEscrowPayer(client, keyManager)

	c := cron.New(cron.WithSeconds())

	// Every 30 seconds: settle launches with an in-flight creation tx.
	_, err = c.AddFunc("*/30 * * * * *", func() {
		if err := ResolvePendingCreations(client); err != nil {
			logger.Errorf("> Pending creation sweep failed: %v", err)
		}
	})
	if err != nil {
		logger.Fatalf("> Failed to add cron job: %v", err)
	}

	// Every minute: resolve claim requests stuck in processing.
	_, err = c.AddFunc("0 * * * * *", func() {
		if err := ResolveStaleClaims(payer); err != nil {
			logger.Errorf("> Stale claim sweep failed: %v", err)
		}
	})
	if err != nil {
		logger.Fatalf("> Failed to add cron job: %v", err)
	}

	logger.Info("> Launch watchdog started")
	c.Start()

	select {}
}
