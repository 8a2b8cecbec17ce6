package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/peerfund-funding-orchestrator/internal/config"
	"github.com/peerfund-funding-orchestrator/internal/data/mongo"
	"github.com/peerfund-funding-orchestrator/internal/data/postgres"
	"github.com/peerfund-funding-orchestrator/internal/funding_api"
	"github.com/peerfund-funding-orchestrator/internal/funding_api/outbox_poller"
	"github.com/peerfund-funding-orchestrator/internal/logger"
	"github.com/peerfund-funding-orchestrator/internal/orchestrator"
	"github.com/peerfund-funding-orchestrator/internal/platform/gateway"
	"github.com/peerfund-funding-orchestrator/internal/platform/messaging/producers"
	"github.com/peerfund-funding-orchestrator/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("funding_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for request status updates
	statusProducer, err := producers.NewRequestStatusProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize request status Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	contractStore := postgres.NewContractRepository(log, postgresDB)
	fundingLedger := postgres.NewFundingRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	movementRecorder := mongo.NewMovementRepository(log, mongoDB.Database())

	// Initialize external collaborator clients
	walletGateway := gateway.NewWalletGateway(log, &cfg.Wallet)
	profileClient := gateway.NewProfileClient(log, &cfg.Profile)

	// Initialize orchestration services
	contractService := orchestrator.NewContractService(contractStore, fundingLedger, log)
	fundingService := orchestrator.NewFundingService(
		postgresDB,
		contractStore,
		fundingLedger,
		outboxRepo,
		statusProducer,
		log,
	)
	disbursementService, err := orchestrator.NewDisbursementService(
		contractStore,
		fundingLedger,
		profileClient,
		walletGateway,
		movementRecorder,
		orchestrator.DisbursementConfig{
			Workers:         cfg.Disbursement.Workers,
			TransferTimeout: cfg.Disbursement.TransferTimeout,
		},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize disbursement service", "error", err)
		os.Exit(1)
	}

	// Initialize outbox poller for undelivered status updates
	statusPublisher := outbox_poller.NewStatusPublisher(outboxRepo, statusProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, statusPublisher, log)

	// Initialize REST server
	server := funding_api.NewServer(log, cfg, contractService, fundingService, disbursementService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for the poller to stop
	wg.Wait()

	// Shut down the disbursement worker pool
	disbursementService.Release()

	if err = statusProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
