package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/funding"
)

// TxRunner executes a function inside one storage transaction.
// *persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// FundRequest is one investor contribution attempt. Reference is an optional
// caller-supplied idempotency key; repeating it returns the original funding.
type FundRequest struct {
	ContractID    uuid.UUID
	ProfileID     uuid.UUID
	Amount        int64
	Reference     string
	CorrelationID string
}

// FundingOrchestrator drives the contract funding path
type FundingOrchestrator interface {
	// Fund validates the contribution against remaining capacity, persists
	// the funding together with the derived contract status, and notifies
	// the request-for-funding service. When the notification fails the
	// persisted funding is returned alongside an *UpdateRequestError.
	Fund(ctx context.Context, req *FundRequest) (*funding.Funding, error)
}

// DisburseResult is the saga outcome: the contract in its final state with
// fundings refreshed.
type DisburseResult struct {
	Contract *contract.Contract
	Fundings []*funding.Funding
}

// DisbursementOrchestrator drives the multi-investor disbursement saga
type DisbursementOrchestrator interface {
	// Disburse pays out each investor's repayment share. Idempotent: a
	// contract already disbursed returns its current state without issuing
	// transfers; a partially-failed run can be re-issued and skips fundings
	// whose transfer already completed.
	Disburse(ctx context.Context, contractID uuid.UUID) (*DisburseResult, error)
}

// ContractSummary aggregates the calculator-derived figures for one contract
type ContractSummary struct {
	RaisedAmount      int64 `json:"raised_amount"`
	OutstandingAmount int64 `json:"outstanding_amount"`
	Yield             int64 `json:"yield"`
	PercentFunded     int64 `json:"percent_funded"`
}

// CreateContractInput carries the fields needed to open a contract for an
// approved request-for-funding
type CreateContractInput struct {
	RequestID       uuid.UUID
	WalletID        string
	TargetAmount    int64
	RepaymentAmount int64
}

// ContractQueries serves contract reads for the HTTP surface
type ContractQueries interface {
	CreateContract(ctx context.Context, in *CreateContractInput) (*contract.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*contract.Contract, *ContractSummary, error)
	ListFundings(ctx context.Context, contractID uuid.UUID, page, perPage int) ([]*funding.Funding, int64, error)
	Quote(ctx context.Context, contractID uuid.UUID, amount int64) (*FundingQuote, error)
}

// FundingQuote answers "what would amount buy me" for a prospective investor
type FundingQuote struct {
	Amount            int64 `json:"amount"`
	FundingPercentage int64 `json:"funding_percentage"`
	FundingReturns    int64 `json:"funding_returns"`
	OutstandingAmount int64 `json:"outstanding_amount"`
}
