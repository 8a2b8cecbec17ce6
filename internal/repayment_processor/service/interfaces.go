package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
)

// ProcessingService defines the interface for processing repayment events.
type ProcessingService interface {
	ProcessRepayment(ctx context.Context, event *shared.RepaymentEvent) error
}

// RepaymentValidator validates repayment events before processing
type RepaymentValidator interface {
	Validate(ctx context.Context, event *shared.RepaymentEvent) error
	CheckIdempotency(ctx context.Context, event *shared.RepaymentEvent) (bool, error)
}

// ContractTransitioner moves a contract to FUNDS_REPAID under a row lock.
// The second return reports that the contract was already repaid or disbursed,
// which callers treat as an idempotent skip rather than a failure.
type ContractTransitioner interface {
	LockAndTransition(ctx context.Context, tx pgx.Tx, event *shared.RepaymentEvent) (*contract.Contract, bool, error)
}

// FailureRecorder records repayment events that could not be applied
type FailureRecorder interface {
	RecordFailure(ctx context.Context, event *shared.RepaymentEvent, failureReason string) error
}
