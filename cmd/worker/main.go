package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"launchcontrol/internal/handlers"
	"launchcontrol/internal/handlers/business"
	"launchcontrol/internal/launcherr"
	"launchcontrol/internal/models"
	"launchcontrol/pkg/config"
	lcsolana "launchcontrol/pkg/solana"
)

const creationTimeout = 2 * time.Minute

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	// The worker signs token creation transactions, so it cannot start
	// without the escrow encryption key.
	keyManager, err := lcsolana.NewEscrowKeyManager()
	if err != nil {
		logrus.Fatal("Failed to initialize escrow key manager: ", err)
	}
	payer := lcsolana.NewEscrowPayer(lcsolana.NewClient(), keyManager)

	msgConsumer, err := config.NewConsumer(config.LaunchJobsQueue)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	logrus.Info("Launch worker started, waiting for launch jobs...")

	err = msgConsumer.Consume(launchJobHandler(config.DB, payer))
	if err != nil {
		logrus.Fatal("Failed to start consumer: ", err)
	}
}

// tokenCreator is the slice of EscrowPayer the worker needs. Kept as an
// interface so tests can stub the chain.
type tokenCreator interface {
	CreateLaunchToken(ctx context.Context, encryptedSecret string, supply uint64, decimals uint8) (*lcsolana.CreatedToken, error)
}

// launchJobHandler decodes queue messages and hands them to handleLaunchJob.
// A message that does not parse will never parse; it is logged and acked so
// it cannot redeliver forever.
func launchJobHandler(db *gorm.DB, creator tokenCreator) func([]byte) error {
	return func(msg []byte) error {
		var job handlers.LaunchJobMessage
		if err := json.Unmarshal(msg, &job); err != nil {
			logrus.Errorf("Dropping unparseable launch job: %v", err)
			return nil
		}
		return handleLaunchJob(db, creator, job.LaunchID)
	}
}

// recordCreationFee appends the escrow's mint rent spend to the launch audit
// trail. Best effort; the launch itself is already created.
func recordCreationFee(db *gorm.DB, launchID uint, created *lcsolana.CreatedToken) {
	if created.RentLamports == 0 {
		return
	}
	record := models.LaunchFundTransferRecord{
		LaunchID:     launchID,
		Direction:    "out",
		Purpose:      models.TransferPurposeCreationFee,
		Mint:         "sol",
		Amount:       float64(created.RentLamports) / lcsolana.LamportsPerSol,
		Counterparty: created.Mint,
		TxHash:       created.Signature,
		Confirmed:    true,
	}
	if err := db.Create(&record).Error; err != nil {
		logrus.Errorf("Failed to record creation fee for launch %d: %v", launchID, err)
	}
}

// handleLaunchJob drives a single launch through token creation. Returning an
// error requeues the job, so anything already submitted on-chain is acked and
// left for the watchdog instead.
func handleLaunchJob(db *gorm.DB, creator tokenCreator, launchID uint) error {
	ctx, cancel := context.WithTimeout(context.Background(), creationTimeout)
	defer cancel()

	launch, err := business.BeginLaunch(db, launchID)
	if err != nil {
		if errors.Is(err, launcherr.ErrInvalidState) {
			// Already created, failed or cancelled. Stale or duplicate job.
			logrus.WithFields(logrus.Fields{"launch_id": launchID}).
				Warn("Launch job skipped, launch not in a launchable state")
			return nil
		}
		return err
	}

	if launch.CreationTxHash != "" {
		// A previous attempt got a transaction on-chain before the process
		// died. The watchdog owns resolution; minting again would double up.
		logrus.WithFields(logrus.Fields{
			"launch_id": launchID,
			"tx_hash":   launch.CreationTxHash,
		}).Warn("Launch already has a creation transaction in flight, leaving to watchdog")
		return nil
	}

	supply := uint64(launch.TotalSupply())
	for i := uint8(0); i < launch.TokenDecimals; i++ {
		supply *= 10
	}

	logrus.WithFields(logrus.Fields{
		"launch_id": launchID,
		"symbol":    launch.Symbol,
		"supply":    supply,
	}).Info("Creating launch token")

	created, err := creator.CreateLaunchToken(ctx, launch.EncryptedPrivateKey, supply, launch.TokenDecimals)
	switch {
	case err == nil:
		if err := business.CompleteLaunch(db, launchID, created.Mint, created.Signature); err != nil {
			return err
		}
		recordCreationFee(db, launchID, created)
		logrus.WithFields(logrus.Fields{
			"launch_id": launchID,
			"mint":      created.Mint,
			"tx_hash":   created.Signature,
		}).Info("Launch token created")
		return nil

	case errors.Is(err, launcherr.ErrConfirmationTimeout) && created != nil:
		// Submitted but not yet confirmed. Record the signature so the
		// watchdog can finish or fail the launch, and ack the job.
		if err := business.MarkCreationSubmitted(db, launchID, created.Mint, created.Signature); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"launch_id": launchID,
			"tx_hash":   created.Signature,
		}).Warn("Token creation unconfirmed, handed to watchdog")
		return nil

	case errors.Is(err, launcherr.ErrSubmissionFailed) || errors.Is(err, launcherr.ErrSigningFailed):
		if failErr := business.FailLaunch(db, launchID, err.Error()); failErr != nil {
			logrus.Errorf("Failed to mark launch %d failed: %v", launchID, failErr)
		}
		logrus.WithFields(logrus.Fields{
			"launch_id": launchID,
			"error":     err.Error(),
		}).Error("Token creation failed")
		return nil

	default:
		// Nothing was submitted, so the funds are intact and a retry with
		// the same parameters is safe. Transient RPC errors (blockhash
		// fetch, rent query, connection refused) land here; failing the
		// launch would strand the contributions.
		logrus.WithFields(logrus.Fields{
			"launch_id": launchID,
			"error":     err.Error(),
		}).Warn("Token creation errored before submission, requeueing")
		return err
	}
}
