package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/peerfund-funding-orchestrator/internal/domain/movement"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
	"github.com/peerfund-funding-orchestrator/internal/repayment_processor/service"
)

type RepaymentValidatorImpl struct {
	movements movement.Recorder
	logger    *slog.Logger
}

func NewRepaymentValidator(movements movement.Recorder, logger *slog.Logger) service.RepaymentValidator {
	return &RepaymentValidatorImpl{
		movements: movements,
		logger:    logger,
	}
}

// Validate checks repayment event validity
func (v *RepaymentValidatorImpl) Validate(ctx context.Context, event *shared.RepaymentEvent) error {
	logger := v.logger
	if event.CorrelationID != "" {
		logger = v.logger.With("correlation_id", event.CorrelationID)
	}

	if event.Reference == "" {
		logger.Error("Missing repayment reference", "event_id", event.EventID.String())
		return shared.ErrMissingReference
	}

	if event.Amount <= 0 {
		logger.Error("Invalid repayment amount", "event_id", event.EventID.String(), "amount", event.Amount)
		return shared.ErrInvalidRepaymentAmount
	}

	return nil
}

// CheckIdempotency checks whether a movement already carries the settlement
// reference. Both recorded and failed outcomes are terminal for an event.
func (v *RepaymentValidatorImpl) CheckIdempotency(ctx context.Context, event *shared.RepaymentEvent) (bool, error) {
	logger := v.logger
	if event.CorrelationID != "" {
		logger = v.logger.With("correlation_id", event.CorrelationID)
	}

	existing, err := v.movements.GetByReference(ctx, event.Reference)
	if err != nil && !errors.Is(err, movement.ErrMovementNotFound{}) {
		logger.Error("Failed to check movement ledger for idempotency", "event_id", event.EventID.String(), "error", err)
		return false, fmt.Errorf("idempotency check failed for repayment %s: %w", event.EventID.String(), err)
	}

	if existing != nil {
		logger.Info("Repayment already processed (idempotency)",
			"event_id", event.EventID.String(),
			"reference", event.Reference,
			"status", string(existing.Status),
		)
		return true, nil // Skip processing
	}

	return false, nil // Continue processing
}
