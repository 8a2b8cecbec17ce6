package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRepaymentAmount  = errors.New("repayment amount must be positive")
	ErrMissingReference        = errors.New("repayment reference is required")
	ErrRepaymentAmountMismatch = errors.New("repayment amount does not match the contract repayment amount")
)

// RepaymentEvent is the Kafka message emitted by the payments platform when a
// borrower settles a contract. Reference is the payment platform's settlement
// id and doubles as the idempotency key for event processing.
type RepaymentEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	ContractID    uuid.UUID `json:"contract_id"`
	Amount        int64     `json:"amount"` // Minor currency units
	Reference     string    `json:"reference"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// RequestStatusEvent notifies the request-for-funding service that the
// aggregate funding state of its contract changed.
type RequestStatusEvent struct {
	RequestID     uuid.UUID `json:"request_id"`
	ContractID    uuid.UUID `json:"contract_id"`
	Status        string    `json:"status"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
