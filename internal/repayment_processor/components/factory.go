package components

import (
	"log/slog"

	"github.com/peerfund-funding-orchestrator/internal/config"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/movement"
	"github.com/peerfund-funding-orchestrator/internal/orchestrator"
	"github.com/peerfund-funding-orchestrator/internal/platform/persistence"
	"github.com/peerfund-funding-orchestrator/internal/repayment_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its
// dependencies. Pass a nil disbursement orchestrator to disable auto
// disbursement.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	contracts contract.Store,
	movements movement.Recorder,
	disbursement orchestrator.DisbursementOrchestrator,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewRepaymentValidator(movements, logger)
	transitioner := NewContractTransitioner(contracts, logger)
	failureRecorder := NewFailureRecorder(movements, logger)

	baseService := service.NewProcessingService(
		pgDB,
		validator,
		transitioner,
		failureRecorder,
		movements,
		disbursement,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
