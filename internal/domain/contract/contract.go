package contract

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidTargetAmount    = errors.New("target amount must be positive")
	ErrInvalidRepaymentAmount = errors.New("repayment amount must be positive")
	ErrEmptyWalletID          = errors.New("wallet id cannot be empty")
	ErrMissingRequestID       = errors.New("request id is required")
)

// Status is the contract lifecycle state. It is a closed enumeration; every
// transition site matches on it exhaustively.
type Status string

const (
	StatusOpen            Status = "OPEN"
	StatusPartiallyFunded Status = "PARTIALLY_FUNDED"
	StatusFullyFunded     Status = "FULLY_FUNDED"
	StatusFundsRepaid     Status = "FUNDS_REPAID"
	StatusFundsDisbursed  Status = "FUNDS_DISBURSED"
)

// AcceptsFunding reports whether investor contributions are permitted in this
// state.
func (s Status) AcceptsFunding() bool {
	switch s {
	case StatusOpen, StatusPartiallyFunded:
		return true
	case StatusFullyFunded, StatusFundsRepaid, StatusFundsDisbursed:
		return false
	}
	return false
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
// FUNDS_DISBURSED is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusOpen:
		return next == StatusPartiallyFunded || next == StatusFullyFunded
	case StatusPartiallyFunded:
		return next == StatusPartiallyFunded || next == StatusFullyFunded
	case StatusFullyFunded:
		return next == StatusFundsRepaid
	case StatusFundsRepaid:
		return next == StatusFundsDisbursed
	case StatusFundsDisbursed:
		return false
	}
	return false
}

// Contract represents a financing agreement raising TargetAmount from
// investors against RepaymentAmount owed by the borrower. Fundings are not an
// owned collection; they are loaded on demand from the funding ledger and
// attached here only for read access.
type Contract struct {
	ID              uuid.UUID `json:"id"`
	RequestID       uuid.UUID `json:"request_id"` // Originating request-for-funding, immutable
	WalletID        string    `json:"wallet_id"`  // Raised funds land here; repayments leave from here
	TargetAmount    int64     `json:"target_amount"`    // Minor currency units, immutable
	RepaymentAmount int64     `json:"repayment_amount"` // Immutable
	Status          Status    `json:"status"`
	Version         int       `json:"version"` // For optimistic locking
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewContract creates an open contract for an approved request-for-funding
func NewContract(requestID uuid.UUID, walletID string, targetAmount, repaymentAmount int64) (*Contract, error) {
	if requestID == uuid.Nil {
		return nil, ErrMissingRequestID
	}
	if walletID == "" {
		return nil, ErrEmptyWalletID
	}
	if targetAmount <= 0 {
		return nil, ErrInvalidTargetAmount
	}
	if repaymentAmount <= 0 {
		return nil, ErrInvalidRepaymentAmount
	}

	now := time.Now()
	return &Contract{
		ID:              uuid.New(),
		RequestID:       requestID,
		WalletID:        walletID,
		TargetAmount:    targetAmount,
		RepaymentAmount: repaymentAmount,
		Status:          StatusOpen,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// DeriveStatus computes the funding-phase status implied by the raised amount.
// Status is derived from ledger state, not tracked independently; callers
// persist the result in the same storage transaction as the funding write.
func (c *Contract) DeriveStatus(raisedAmount int64) Status {
	switch {
	case raisedAmount >= c.TargetAmount:
		return StatusFullyFunded
	case raisedAmount > 0:
		return StatusPartiallyFunded
	default:
		return StatusOpen
	}
}
