package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/peerfund-funding-orchestrator/internal/domain/movement"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
	"github.com/peerfund-funding-orchestrator/internal/repayment_processor/service"
)

type FailureRecorderImpl struct {
	movements movement.Recorder
	logger    *slog.Logger
}

func NewFailureRecorder(movements movement.Recorder, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		movements: movements,
		logger:    logger,
	}
}

// RecordFailure records a repayment event that could not be applied in the
// movement ledger. An existing movement for the same reference means the
// outcome is already on record; nothing is overwritten.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, event *shared.RepaymentEvent, failureReason string) error {
	logger := r.logger
	if event.CorrelationID != "" {
		logger = r.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Recording failed repayment", "event_id", event.EventID.String(), "reason", failureReason)

	err := r.movements.Record(ctx, movement.NewFailedRepayment(event, failureReason))
	if err != nil {
		if errors.Is(err, movement.ErrDuplicateMovement{Reference: event.Reference}) {
			logger.Info("Failure already on record for reference", "event_id", event.EventID.String(), "reference", event.Reference)
			return nil
		}
		logger.Error("Failed to record failed repayment", "event_id", event.EventID.String(), "error", err)
		return err
	}

	logger.Info("Successfully recorded failed repayment", "event_id", event.EventID.String())
	return nil
}
