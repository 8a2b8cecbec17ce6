package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/peerfund-funding-orchestrator/internal/config"
	"github.com/peerfund-funding-orchestrator/internal/data/mongo"
	"github.com/peerfund-funding-orchestrator/internal/data/postgres"
	"github.com/peerfund-funding-orchestrator/internal/logger"
	"github.com/peerfund-funding-orchestrator/internal/orchestrator"
	"github.com/peerfund-funding-orchestrator/internal/platform/gateway"
	"github.com/peerfund-funding-orchestrator/internal/platform/messaging/consumers"
	"github.com/peerfund-funding-orchestrator/internal/platform/messaging/producers"
	"github.com/peerfund-funding-orchestrator/internal/platform/persistence"
	"github.com/peerfund-funding-orchestrator/internal/repayment_processor/components"
	"github.com/peerfund-funding-orchestrator/internal/repayment_processor/consumer"
	"github.com/peerfund-funding-orchestrator/internal/repayment_processor/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("repayment_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Repayment Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	contractStore := postgres.NewContractRepository(log, postgresDB)
	fundingLedger := postgres.NewFundingRepository(log, postgresDB)
	movementRecorder := mongo.NewMovementRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Auto-disbursement runs the payout saga right after a repayment lands
	var disbursement orchestrator.DisbursementOrchestrator
	var disbursementService *orchestrator.DisbursementService
	if cfg.Disbursement.AutoDisburse {
		walletGateway := gateway.NewWalletGateway(log, &cfg.Wallet)
		profileClient := gateway.NewProfileClient(log, &cfg.Profile)

		disbursementService, err = orchestrator.NewDisbursementService(
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
		disbursement = disbursementService
		log.Info("Auto-disbursement enabled")
	}

	// Initialize processing service with separated concerns
	processingService := components.CreateProcessingService(
		postgresDB,
		contractStore,
		movementRecorder,
		disbursement,
		log,
		cfg,
	)

	// Initialize repayment event handler
	repaymentEventHandler := consumer.NewRepaymentEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.RepaymentTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.RepaymentTopic, cfg.Kafka.ConsumerGroup, repaymentEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool if it's a WorkerPoolProcessingService
	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	if disbursementService != nil {
		disbursementService.Release()
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Repayment Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Repayment Processor shutdown completed with errors")
	} else {
		log.Info("Repayment Processor shutdown completed successfully")
	}
}
