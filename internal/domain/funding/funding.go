package funding

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidFundingAmount = errors.New("funding amount must be positive")
	ErrMissingProfileID     = errors.New("investor profile id is required")
)

// Status is the lifecycle state of a single investor contribution
type Status string

const (
	StatusInCommitment   Status = "IN_COMMITMENT"
	StatusFunded         Status = "FUNDED"
	StatusFundsDisbursed Status = "FUNDS_DISBURSED"
	StatusRejected       Status = "REJECTED"
)

// CountsTowardRaised reports whether the contribution counts against the
// contract's target amount. Rejected fundings never do.
func (s Status) CountsTowardRaised() bool {
	return s != StatusRejected
}

// Funding is one investor's contribution to a contract. RepaymentAmount is
// the investor's pro-rata share of the contract repayment, fixed at
// contribution time. TransferredAt marks that the disbursement wallet
// transfer for this funding has completed; a saga retry skips fundings
// carrying the marker so value never moves twice.
type Funding struct {
	ID              uuid.UUID  `json:"id"`
	ContractID      uuid.UUID  `json:"contract_id"`
	ProfileID       uuid.UUID  `json:"profile_id"`
	Status          Status     `json:"status"`
	FundingAmount   int64      `json:"funding_amount"`
	RepaymentAmount int64      `json:"repayment_amount"`
	DisbursedAmount int64      `json:"disbursed_amount"` // 0 until the contract reaches FUNDS_DISBURSED
	Reference       string     `json:"reference,omitempty"` // Caller-supplied idempotency key
	TransferredAt   *time.Time `json:"transferred_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// New creates a commitment-stage funding record
func New(contractID, profileID uuid.UUID, fundingAmount, repaymentAmount int64, reference string) (*Funding, error) {
	if profileID == uuid.Nil {
		return nil, ErrMissingProfileID
	}
	if fundingAmount <= 0 {
		return nil, ErrInvalidFundingAmount
	}

	return &Funding{
		ID:              uuid.New(),
		ContractID:      contractID,
		ProfileID:       profileID,
		Status:          StatusInCommitment,
		FundingAmount:   fundingAmount,
		RepaymentAmount: repaymentAmount,
		Reference:       reference,
		CreatedAt:       time.Now(),
	}, nil
}

// Transferred reports whether the disbursement transfer already completed
func (f *Funding) Transferred() bool {
	return f.TransferredAt != nil
}
