package main

import (
	"log"
	"os"

	logrus "github.com/sirupsen/logrus"

	"launchcontrol/internal/models"
	"launchcontrol/internal/routes"
	"launchcontrol/pkg/config"
	lcsolana "launchcontrol/pkg/solana"
)

func main() {
	// Initialize database
	config.InitDB()

	if os.Getenv("RUN_MIGRATIONS") == "true" {
		config.ExecuteMigrations()
	}

	// Initialize RabbitMQ (optional, launch triggering falls back to an error
	// response if not configured)
	if os.Getenv("RABBITMQ_HOST") != "" {
		config.InitRabbitMQ()
		defer func() {
			if config.RabbitMQ != nil {
				config.RabbitMQ.Close()
			}
		}()
		log.Println("RabbitMQ initialized successfully")
	} else {
		log.Println("RabbitMQ not configured, skipping initialization")
	}

	// Watch escrow deposit wallets of launches still accepting contributions.
	// Balance pushes are informational; the ledger only moves on explicit
	// contribution registration.
	if os.Getenv("SOLANA_WS_URL") != "" {
		startDepositMonitor()
	}

	// Set up router
	r := routes.SetupRouter()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func startDepositMonitor() {
	monitor, err := lcsolana.NewDepositMonitor()
	if err != nil {
		logrus.Warnf("Deposit monitor disabled: %v", err)
		return
	}

	var launches []models.Launch
	if err := config.DB.
		Where("status = ?", models.LaunchStatusPendingContributions).
		Find(&launches).Error; err != nil {
		logrus.Warnf("Failed to load accepting launches for deposit monitor: %v", err)
		return
	}

	for _, launch := range launches {
		l := launch
		err := monitor.StartMonitoring(l.DepositWalletAddress, func(address string, lamports uint64) {
			logrus.WithFields(logrus.Fields{
				"launch_id": l.ID,
				"address":   address,
				"lamports":  lamports,
			}).Info("Escrow deposit balance changed")
		})
		if err != nil {
			logrus.Warnf("Failed to monitor deposit wallet %s: %v", l.DepositWalletAddress, err)
		}
	}

	logrus.Infof("Deposit monitor started for %d launches", len(launches))
}
