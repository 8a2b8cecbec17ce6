package movement

import (
	"context"

	"github.com/google/uuid"
)

// Recorder persists movement ledger entries and answers idempotency queries
type Recorder interface {
	Record(ctx context.Context, m *Movement) error
	GetByReference(ctx context.Context, reference string) (*Movement, error)
	GetByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]*Movement, error)
	CountByContract(ctx context.Context, contractID uuid.UUID) (int64, error)
}

// ErrMovementNotFound indicates missing movement entry
type ErrMovementNotFound struct {
	Reference string
}

func (e ErrMovementNotFound) Error() string {
	return "movement not found for reference: " + e.Reference
}

// Is matches any ErrMovementNotFound when the target carries no reference
func (e ErrMovementNotFound) Is(target error) bool {
	t, ok := target.(ErrMovementNotFound)
	if !ok {
		return false
	}
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}

// ErrDuplicateMovement indicates reference uniqueness violation
type ErrDuplicateMovement struct {
	Reference string
}

func (e ErrDuplicateMovement) Error() string {
	return "duplicate movement for reference: " + e.Reference
}
