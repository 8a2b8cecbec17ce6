package orchestrator

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
)

// ErrInvalidContractState indicates the contract is not in a state that
// permits the requested operation. Callers must not retry.
type ErrInvalidContractState struct {
	ContractID uuid.UUID
	Current    contract.Status
	Required   contract.Status
}

func (e ErrInvalidContractState) Error() string {
	return fmt.Sprintf("contract %s is %s, operation requires %s",
		e.ContractID.String(), e.Current, e.Required)
}

// Is matches any ErrInvalidContractState when the target carries a nil id
func (e ErrInvalidContractState) Is(target error) bool {
	t, ok := target.(ErrInvalidContractState)
	if !ok {
		return false
	}
	if t.ContractID == uuid.Nil {
		return true
	}
	return e.ContractID == t.ContractID
}

// ErrFundingExceedsOutstanding indicates a contribution larger than the
// contract's remaining capacity
type ErrFundingExceedsOutstanding struct {
	ContractID  uuid.UUID
	Requested   int64
	Outstanding int64
}

func (e ErrFundingExceedsOutstanding) Error() string {
	return fmt.Sprintf("funding amount %d exceeds outstanding %d on contract %s",
		e.Requested, e.Outstanding, e.ContractID.String())
}

// Is matches any ErrFundingExceedsOutstanding when the target carries a nil id
func (e ErrFundingExceedsOutstanding) Is(target error) bool {
	t, ok := target.(ErrFundingExceedsOutstanding)
	if !ok {
		return false
	}
	if t.ContractID == uuid.Nil {
		return true
	}
	return e.ContractID == t.ContractID
}

// UpdateRequestError indicates the funding was persisted but the status
// update toward the request-for-funding service failed. The outbox retains
// the event for background retry; the failure is still surfaced, never
// swallowed.
type UpdateRequestError struct {
	RequestID uuid.UUID
	Err       error
}

func (e *UpdateRequestError) Error() string {
	return fmt.Sprintf("failed to update request %s status: %v", e.RequestID.String(), e.Err)
}

func (e *UpdateRequestError) Unwrap() error { return e.Err }

// TransferFundsError reports a disbursement fan-out abort: which funding
// failed, which fundings already moved value (their markers are persisted, a
// retry skips them) and which remain untouched.
type TransferFundsError struct {
	ContractID  uuid.UUID
	FundingID   uuid.UUID
	Transferred []uuid.UUID
	Remaining   []uuid.UUID
	Err         error
}

func (e *TransferFundsError) Error() string {
	return fmt.Sprintf("transfer failed for funding %s on contract %s (%d transferred, %d remaining): %v",
		e.FundingID.String(), e.ContractID.String(), len(e.Transferred), len(e.Remaining), e.Err)
}

func (e *TransferFundsError) Unwrap() error { return e.Err }

// DisburseContractError indicates the funding ledger batch update failed
// after all transfers completed. Retry-safe: transfers are skipped on
// re-entry via their markers.
type DisburseContractError struct {
	ContractID uuid.UUID
	Err        error
}

func (e *DisburseContractError) Error() string {
	return fmt.Sprintf("failed to mark fundings disbursed for contract %s: %v", e.ContractID.String(), e.Err)
}

func (e *DisburseContractError) Unwrap() error { return e.Err }

// UpdateContractError indicates the final contract status transition failed.
// Steps already completed are not reversed.
type UpdateContractError struct {
	ContractID uuid.UUID
	Err        error
}

func (e *UpdateContractError) Error() string {
	return fmt.Sprintf("failed to update contract %s status: %v", e.ContractID.String(), e.Err)
}

func (e *UpdateContractError) Unwrap() error { return e.Err }
