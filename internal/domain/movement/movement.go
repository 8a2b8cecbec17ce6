package movement

import (
	"time"

	"github.com/google/uuid"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
)

// Kind classifies a value movement
type Kind string

const (
	KindFunding      Kind = "FUNDING"      // Investor -> contract wallet
	KindRepayment    Kind = "REPAYMENT"    // Borrower settlement of a contract
	KindDisbursement Kind = "DISBURSEMENT" // Contract wallet -> investor
)

// Status of a movement record
type Status string

const (
	StatusRecorded Status = "RECORDED"
	StatusFailed   Status = "FAILED"
)

// Movement is one ledger entry for a value transfer touching a contract.
// Every disbursement transfer and every borrower repayment gets exactly one.
type Movement struct {
	MovementID    uuid.UUID  `json:"movement_id" bson:"movement_id"`
	ContractID    uuid.UUID  `json:"contract_id" bson:"contract_id"`
	FundingID     *uuid.UUID `json:"funding_id,omitempty" bson:"funding_id,omitempty"`
	ProfileID     *uuid.UUID `json:"profile_id,omitempty" bson:"profile_id,omitempty"`
	Kind          Kind       `json:"kind" bson:"kind"`
	Amount        int64      `json:"amount" bson:"amount"` // Minor currency units
	FromWallet    string     `json:"from_wallet,omitempty" bson:"from_wallet,omitempty"`
	ToWallet      string     `json:"to_wallet,omitempty" bson:"to_wallet,omitempty"`
	TransferID    string     `json:"transfer_id,omitempty" bson:"transfer_id,omitempty"`
	Reference     string     `json:"reference,omitempty" bson:"reference,omitempty"` // Idempotency key
	CorrelationID string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Status        Status     `json:"status" bson:"status"`
	FailureReason string     `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

// NewDisbursement records a completed disbursement transfer for one funding
func NewDisbursement(contractID, fundingID, profileID uuid.UUID, conf Confirmation, correlationID string) *Movement {
	fid := fundingID
	pid := profileID
	return &Movement{
		MovementID:    uuid.New(),
		ContractID:    contractID,
		FundingID:     &fid,
		ProfileID:     &pid,
		Kind:          KindDisbursement,
		Amount:        conf.Amount,
		FromWallet:    conf.FromWallet,
		ToWallet:      conf.ToWallet,
		TransferID:    conf.TransferID,
		CorrelationID: correlationID,
		Status:        StatusRecorded,
		CreatedAt:     time.Now(),
	}
}

// Confirmation carries the transfer receipt fields a movement needs. Kept
// local so the package does not depend on the wallet gateway package.
type Confirmation struct {
	TransferID string
	FromWallet string
	ToWallet   string
	Amount     int64
}

// NewRepayment records a borrower settlement event
func NewRepayment(ev *shared.RepaymentEvent) *Movement {
	return &Movement{
		MovementID:    uuid.New(),
		ContractID:    ev.ContractID,
		Kind:          KindRepayment,
		Amount:        ev.Amount,
		Reference:     ev.Reference,
		CorrelationID: ev.CorrelationID,
		Status:        StatusRecorded,
		CreatedAt:     ev.Timestamp,
	}
}

// NewFailedRepayment records a repayment event that could not be applied
func NewFailedRepayment(ev *shared.RepaymentEvent, reason string) *Movement {
	m := NewRepayment(ev)
	m.Status = StatusFailed
	m.FailureReason = reason
	return m
}
