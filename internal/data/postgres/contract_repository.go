// Package postgres provides PostgreSQL implementations of the contract store
// and funding ledger. All writes that the funding invariant depends on run
// through pgx transactions handed in via WithTx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/platform/persistence"
)

// ContractRepository implements the contract.Store interface for PostgreSQL
type ContractRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewContractRepository creates a new PostgreSQL contract repository
func NewContractRepository(logger *slog.Logger, db *persistence.PostgresDB) contract.Store {
	return &ContractRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so contract writes commit
// atomically with the funding writes they depend on
func (r *ContractRepository) WithTx(tx pgx.Tx) contract.Store {
	return &ContractRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new contract
func (r *ContractRepository) Create(ctx context.Context, c *contract.Contract) error {
	query := `
		INSERT INTO contracts (id, request_id, wallet_id, target_amount, repayment_amount, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.RequestID,
		c.WalletID,
		c.TargetAmount,
		c.RepaymentAmount,
		c.Status,
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create contract", "error", err)
		return fmt.Errorf("failed to create contract: %w", err)
	}

	return nil
}

const contractColumns = `id, request_id, wallet_id, target_amount, repayment_amount, status, version, created_at, updated_at`

func scanContract(row pgx.Row) (*contract.Contract, error) {
	var c contract.Contract
	err := row.Scan(
		&c.ID,
		&c.RequestID,
		&c.WalletID,
		&c.TargetAmount,
		&c.RepaymentAmount,
		&c.Status,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID retrieves a contract by its ID
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM contracts
		WHERE id = $1
	`

	c, err := scanContract(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contract.ErrContractNotFound{ContractID: id}
		}
		r.logger.Error("Failed to get contract", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	return c, nil
}

// GetByRequestID retrieves the contract opened for a request-for-funding.
// Returns nil, nil when the request has no contract yet.
func (r *ContractRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*contract.Contract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM contracts
		WHERE request_id = $1
	`

	c, err := scanContract(r.querier.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get contract by request ID", "request_id", requestID.String(), "error", err)
		return nil, fmt.Errorf("failed to get contract by request ID: %w", err)
	}

	return c, nil
}

// UpdateStatus transitions the contract status using optimistic locking.
// Returns ErrConcurrentModification if the contract changed since it was read.
func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status contract.Status, version int) error {
	query := `
		UPDATE contracts
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := r.querier.Exec(ctx, query, status, id, version)
	if err != nil {
		r.logger.Error("Failed to update contract status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update contract status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return contract.ErrConcurrentModification{ContractID: id}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the contract row. Funding
// contributions hold it across the capacity check and the funding insert.
func (r *ContractRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM contracts
		WHERE id = $1
		FOR UPDATE
	`

	c, err := scanContract(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contract.ErrContractNotFound{ContractID: id}
		}
		r.logger.Error("Failed to lock contract for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock contract for update: %w", err)
	}

	return c, nil
}
