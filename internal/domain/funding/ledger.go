package funding

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Ledger manages funding record persistence
type Ledger interface {
	Create(ctx context.Context, f *Funding) error
	GetByID(ctx context.Context, id uuid.UUID) (*Funding, error)

	// GetByReference resolves a caller-supplied idempotency key.
	// Returns nil, nil when no funding carries the reference.
	GetByReference(ctx context.Context, reference string) (*Funding, error)

	// ListByContract returns all fundings for the contract ordered by
	// creation time
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*Funding, error)
	CountByContract(ctx context.Context, contractID uuid.UUID) (int64, error)

	// MarkTransferred persists the disbursement resumability marker.
	// Idempotent: an already-set marker is left untouched.
	MarkTransferred(ctx context.Context, id uuid.UUID) error

	// UpdateStatusBatch moves the given fundings to status in one statement.
	// Transitioning to FUNDS_DISBURSED also settles disbursed_amount to the
	// funding's repayment amount.
	UpdateStatusBatch(ctx context.Context, ids []uuid.UUID, status Status) error
	WithTx(tx pgx.Tx) Ledger
}

// ErrFundingNotFound indicates missing funding record
type ErrFundingNotFound struct {
	FundingID uuid.UUID
}

func (e ErrFundingNotFound) Error() string {
	return "funding not found: " + e.FundingID.String()
}

// Is matches any ErrFundingNotFound when the target carries a nil id
func (e ErrFundingNotFound) Is(target error) bool {
	t, ok := target.(ErrFundingNotFound)
	if !ok {
		return false
	}
	if t.FundingID == uuid.Nil {
		return true
	}
	return e.FundingID == t.FundingID
}

// ErrDuplicateReference indicates idempotency-key uniqueness violation
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "funding already exists for reference: " + e.Reference
}
