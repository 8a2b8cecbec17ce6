package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/movement"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
	"github.com/peerfund-funding-orchestrator/internal/orchestrator"
	"github.com/peerfund-funding-orchestrator/internal/platform/persistence"
)

type ProcessingServiceImpl struct {
	pgDB            *persistence.PostgresDB
	validator       RepaymentValidator
	transitioner    ContractTransitioner
	failureRecorder FailureRecorder
	movements       movement.Recorder
	disbursement    orchestrator.DisbursementOrchestrator // nil unless auto-disburse is on
	logger          *slog.Logger
}

func NewProcessingService(
	pgDB *persistence.PostgresDB,
	validator RepaymentValidator,
	transitioner ContractTransitioner,
	failureRecorder FailureRecorder,
	movements movement.Recorder,
	disbursement orchestrator.DisbursementOrchestrator,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		pgDB:            pgDB,
		validator:       validator,
		transitioner:    transitioner,
		failureRecorder: failureRecorder,
		movements:       movements,
		disbursement:    disbursement,
		logger:          logger,
	}
}

// ProcessRepayment applies one borrower settlement event: it validates the
// event, moves the contract to FUNDS_REPAID under a row lock and records the
// repayment in the movement ledger. Business failures are recorded and
// acknowledged; infrastructure failures propagate so the consumer retries.
func (s *ProcessingServiceImpl) ProcessRepayment(ctx context.Context, event *shared.RepaymentEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Processing repayment", "event_id", event.EventID.String(), "contract_id", event.ContractID.String(), "amount", event.Amount)

	// 1. Validate the event
	if err := s.validator.Validate(ctx, event); err != nil {
		logger.Error("Repayment validation failed", "event_id", event.EventID.String(), "error", err)

		var failureReason string
		switch {
		case errors.Is(err, shared.ErrMissingReference):
			failureReason = string(shared.FailureReasonMissingReference)
		case errors.Is(err, shared.ErrInvalidRepaymentAmount):
			failureReason = string(shared.FailureReasonInvalidAmount)
		default:
			failureReason = string(shared.FailureReasonUnknownError)
		}

		if recordErr := s.failureRecorder.RecordFailure(ctx, event, failureReason); recordErr != nil {
			logger.Error("Failed to record repayment failure", "event_id", event.EventID.String(), "error", recordErr)
		}

		return nil // Acknowledge: the event can never become valid
	}

	// 2. Check idempotency
	skip, err := s.validator.CheckIdempotency(ctx, event)
	if err != nil {
		return err // Let Kafka retry
	}
	if skip {
		return nil // Already processed
	}

	// 3. Begin database transaction
	var tx pgx.Tx
	tx, err = s.pgDB.Pool().Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "event_id", event.EventID.String(), "error", err)
		return fmt.Errorf("failed to begin DB transaction for repayment %s: %w", event.EventID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "event_id", event.EventID.String())
			_ = tx.Rollback(ctx)
			panic(p) // Re-panic
		} else if err != nil {
			logger.Error("Error occurred, rolling back transaction", "error", err, "event_id", event.EventID.String())
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "event_id", event.EventID.String())
			}
		}
	}()

	// 4. Lock and transition the contract
	repaid, alreadyRepaid, err := s.transitioner.LockAndTransition(ctx, tx, event)
	if err != nil {
		switch {
		case errors.Is(err, contract.ErrContractNotFound{}):
			if recordErr := s.failureRecorder.RecordFailure(ctx, event, string(shared.FailureReasonContractNotFound)); recordErr != nil {
				logger.Error("Failed to record contract not found failure", "event_id", event.EventID.String(), "error", recordErr)
			}
			return nil
		case errors.Is(err, orchestrator.ErrInvalidContractState{}):
			if recordErr := s.failureRecorder.RecordFailure(ctx, event, string(shared.FailureReasonContractNotFunded)); recordErr != nil {
				logger.Error("Failed to record contract state failure", "event_id", event.EventID.String(), "error", recordErr)
			}
			return nil
		case errors.Is(err, shared.ErrRepaymentAmountMismatch):
			if recordErr := s.failureRecorder.RecordFailure(ctx, event, string(shared.FailureReasonAmountMismatch)); recordErr != nil {
				logger.Error("Failed to record amount mismatch failure", "event_id", event.EventID.String(), "error", recordErr)
			}
			return nil
		}

		// For other errors, let them propagate for retry
		return err
	}

	if alreadyRepaid {
		logger.Info("Contract already repaid, acknowledging event", "event_id", event.EventID.String(), "contract_id", event.ContractID.String())
		if err = tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Error("Failed to rollback no-op transaction", "event_id", event.EventID.String(), "error", err)
		}
		err = nil
		return nil
	}

	// 5. Commit transaction
	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction",
			"event_id", event.EventID.String(),
			"contract_id", event.ContractID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to commit DB transaction for repayment %s: %w", event.EventID.String(), err)
	}

	// 6. Record the repayment movement. A duplicate here means a previous run
	// committed but crashed before recording; the reference keeps it single.
	if recordErr := s.movements.Record(ctx, movement.NewRepayment(event)); recordErr != nil {
		if !errors.Is(recordErr, movement.ErrDuplicateMovement{Reference: event.Reference}) {
			logger.Error("Failed to record repayment movement", "event_id", event.EventID.String(), "error", recordErr)
			return fmt.Errorf("failed to record repayment movement for %s: %w", event.EventID.String(), recordErr)
		}
	}

	logger.Info("Repayment applied", "event_id", event.EventID.String(), "contract_id", repaid.ID.String(), "status", string(repaid.Status))

	// 7. Optionally kick off the disbursement saga. Failures are logged, not
	// returned: the repayment is already applied and the saga can be re-issued
	// over the API.
	if s.disbursement != nil {
		if _, disbErr := s.disbursement.Disburse(ctx, repaid.ID); disbErr != nil {
			logger.Error("Auto-disbursement failed, contract remains re-issuable",
				"contract_id", repaid.ID.String(),
				"error", disbErr,
			)
		}
	}

	return nil
}
