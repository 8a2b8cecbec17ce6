package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/peerfund-funding-orchestrator/internal/domain/funding"
	"github.com/peerfund-funding-orchestrator/internal/platform/persistence"
)

// FundingRepository implements the funding.Ledger interface for PostgreSQL
type FundingRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFundingRepository creates a new PostgreSQL funding repository
func NewFundingRepository(logger *slog.Logger, db *persistence.PostgresDB) funding.Ledger {
	return &FundingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *FundingRepository) WithTx(tx pgx.Tx) funding.Ledger {
	return &FundingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const fundingColumns = `id, contract_id, profile_id, status, funding_amount, repayment_amount, disbursed_amount, reference, transferred_at, created_at`

func scanFunding(row pgx.Row) (*funding.Funding, error) {
	var f funding.Funding
	err := row.Scan(
		&f.ID,
		&f.ContractID,
		&f.ProfileID,
		&f.Status,
		&f.FundingAmount,
		&f.RepaymentAmount,
		&f.DisbursedAmount,
		&f.Reference,
		&f.TransferredAt,
		&f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create stores a new funding record
func (r *FundingRepository) Create(ctx context.Context, f *funding.Funding) error {
	query := `
		INSERT INTO fundings (id, contract_id, profile_id, status, funding_amount, repayment_amount, disbursed_amount, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		f.ID,
		f.ContractID,
		f.ProfileID,
		f.Status,
		f.FundingAmount,
		f.RepaymentAmount,
		f.DisbursedAmount,
		f.Reference,
		f.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create funding", "contract_id", f.ContractID.String(), "error", err)
		return fmt.Errorf("failed to create funding: %w", err)
	}

	return nil
}

// GetByID retrieves a funding by its ID
func (r *FundingRepository) GetByID(ctx context.Context, id uuid.UUID) (*funding.Funding, error) {
	query := `
		SELECT ` + fundingColumns + `
		FROM fundings
		WHERE id = $1
	`

	f, err := scanFunding(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, funding.ErrFundingNotFound{FundingID: id}
		}
		r.logger.Error("Failed to get funding", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get funding: %w", err)
	}

	return f, nil
}

// GetByReference resolves an idempotency key. Returns nil, nil when no
// funding carries the reference.
func (r *FundingRepository) GetByReference(ctx context.Context, reference string) (*funding.Funding, error) {
	query := `
		SELECT ` + fundingColumns + `
		FROM fundings
		WHERE reference = $1
	`

	f, err := scanFunding(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get funding by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get funding by reference: %w", err)
	}

	return f, nil
}

// ListByContract returns all fundings for the contract in creation order
func (r *FundingRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*funding.Funding, error) {
	query := `
		SELECT ` + fundingColumns + `
		FROM fundings
		WHERE contract_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, contractID)
	if err != nil {
		r.logger.Error("Failed to list fundings", "contract_id", contractID.String(), "error", err)
		return nil, fmt.Errorf("failed to list fundings: %w", err)
	}
	defer rows.Close()

	var fundings []*funding.Funding
	for rows.Next() {
		f, err := scanFunding(rows)
		if err != nil {
			r.logger.Error("Failed to scan funding", "error", err)
			return nil, fmt.Errorf("failed to scan funding: %w", err)
		}
		fundings = append(fundings, f)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over fundings", "error", err)
		return nil, fmt.Errorf("error iterating over fundings: %w", err)
	}

	return fundings, nil
}

// CountByContract counts the fundings recorded against a contract
func (r *FundingRepository) CountByContract(ctx context.Context, contractID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM fundings
		WHERE contract_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, contractID).Scan(&count); err != nil {
		r.logger.Error("Failed to count fundings", "contract_id", contractID.String(), "error", err)
		return 0, fmt.Errorf("failed to count fundings: %w", err)
	}

	return count, nil
}

// MarkTransferred persists the disbursement resumability marker. The guard
// on transferred_at keeps an already-set marker untouched, so the earliest
// transfer timestamp survives retries.
func (r *FundingRepository) MarkTransferred(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE fundings
		SET transferred_at = NOW()
		WHERE id = $1 AND transferred_at IS NULL
	`

	_, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to mark funding transferred", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark funding transferred: %w", err)
	}

	return nil
}

// UpdateStatusBatch moves the fundings to status in one statement. Reaching
// FUNDS_DISBURSED settles each funding's disbursed amount to its repayment
// amount.
func (r *FundingRepository) UpdateStatusBatch(ctx context.Context, ids []uuid.UUID, status funding.Status) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE fundings
		SET status = $1,
		    disbursed_amount = CASE WHEN $1 = 'FUNDS_DISBURSED' THEN repayment_amount ELSE disbursed_amount END
		WHERE id = ANY($2)
	`

	result, err := r.querier.Exec(ctx, query, status, ids)
	if err != nil {
		r.logger.Error("Failed to batch update funding status", "status", string(status), "count", len(ids), "error", err)
		return fmt.Errorf("failed to batch update funding status: %w", err)
	}

	if result.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("funding batch update touched %d of %d rows", result.RowsAffected(), len(ids))
	}

	return nil
}
