package contract

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store defines contract persistence operations
type Store interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Contract, error)

	// UpdateStatus uses optimistic locking keyed on version
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, version int) error

	// LockForUpdate acquires a pessimistic row lock; funding contributions to
	// the same contract serialize on it
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Contract, error)
	WithTx(tx pgx.Tx) Store
}

// ErrContractNotFound indicates missing contract
type ErrContractNotFound struct {
	ContractID uuid.UUID
}

func (e ErrContractNotFound) Error() string {
	return "contract not found: " + e.ContractID.String()
}

// Is matches any ErrContractNotFound when the target carries a nil id
func (e ErrContractNotFound) Is(target error) bool {
	t, ok := target.(ErrContractNotFound)
	if !ok {
		return false
	}
	if t.ContractID == uuid.Nil {
		return true
	}
	return e.ContractID == t.ContractID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	ContractID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for contract: " + e.ContractID.String()
}

// ErrDuplicateRequest indicates a contract already exists for the request
type ErrDuplicateRequest struct {
	RequestID uuid.UUID
}

func (e ErrDuplicateRequest) Error() string {
	return "contract already exists for request: " + e.RequestID.String()
}
