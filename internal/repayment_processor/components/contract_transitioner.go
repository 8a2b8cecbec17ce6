package components

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
	"github.com/peerfund-funding-orchestrator/internal/orchestrator"
	"github.com/peerfund-funding-orchestrator/internal/repayment_processor/service"
)

type ContractTransitionerImpl struct {
	contracts contract.Store
	logger    *slog.Logger
}

func NewContractTransitioner(contracts contract.Store, logger *slog.Logger) service.ContractTransitioner {
	return &ContractTransitionerImpl{
		contracts: contracts,
		logger:    logger,
	}
}

// LockAndTransition locks the contract row, verifies the settlement matches
// the contract, and moves it to FUNDS_REPAID. A contract already at
// FUNDS_REPAID or FUNDS_DISBURSED is reported as an idempotent skip.
func (t *ContractTransitionerImpl) LockAndTransition(ctx context.Context, tx pgx.Tx, event *shared.RepaymentEvent) (*contract.Contract, bool, error) {
	logger := t.logger
	if event.CorrelationID != "" {
		logger = t.logger.With("correlation_id", event.CorrelationID)
	}

	store := t.contracts.WithTx(tx)

	locked, err := store.LockForUpdate(ctx, event.ContractID)
	if err != nil {
		return nil, false, err
	}

	switch locked.Status {
	case contract.StatusFundsRepaid, contract.StatusFundsDisbursed:
		return locked, true, nil
	case contract.StatusFullyFunded:
		// Proceed
	default:
		logger.Error("Contract not ready for repayment",
			"contract_id", locked.ID.String(),
			"status", string(locked.Status),
		)
		return nil, false, orchestrator.ErrInvalidContractState{
			ContractID: locked.ID,
			Current:    locked.Status,
			Required:   contract.StatusFullyFunded,
		}
	}

	if event.Amount != locked.RepaymentAmount {
		logger.Error("Repayment amount mismatch",
			"contract_id", locked.ID.String(),
			"expected", locked.RepaymentAmount,
			"received", event.Amount,
		)
		return nil, false, shared.ErrRepaymentAmountMismatch
	}

	if err := store.UpdateStatus(ctx, locked.ID, contract.StatusFundsRepaid, locked.Version); err != nil {
		return nil, false, err
	}

	locked.Status = contract.StatusFundsRepaid
	locked.Version++
	return locked, false, nil
}
