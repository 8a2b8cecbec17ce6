package orchestrator

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/funding"
	"github.com/peerfund-funding-orchestrator/internal/finance"
)

// ContractService implements ContractQueries
type ContractService struct {
	contracts contract.Store
	fundings  funding.Ledger
	logger    *slog.Logger
}

func NewContractService(contracts contract.Store, fundings funding.Ledger, logger *slog.Logger) *ContractService {
	return &ContractService{
		contracts: contracts,
		fundings:  fundings,
		logger:    logger,
	}
}

// CreateContract opens a contract for an approved request-for-funding.
// One contract per request; a duplicate request is rejected.
func (s *ContractService) CreateContract(ctx context.Context, in *CreateContractInput) (*contract.Contract, error) {
	existing, err := s.contracts.GetByRequestID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, contract.ErrDuplicateRequest{RequestID: in.RequestID}
	}

	c, err := contract.NewContract(in.RequestID, in.WalletID, in.TargetAmount, in.RepaymentAmount)
	if err != nil {
		return nil, err
	}

	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Contract created",
		"contract_id", c.ID.String(),
		"request_id", c.RequestID.String(),
		"target_amount", c.TargetAmount,
	)
	return c, nil
}

// GetContract returns the contract plus its calculator-derived summary
func (s *ContractService) GetContract(ctx context.Context, id uuid.UUID) (*contract.Contract, *ContractSummary, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	fundings, err := s.fundings.ListByContract(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	raised := finance.RaisedAmount(fundings)
	yield, err := finance.Yield(c)
	if err != nil {
		return nil, nil, err
	}
	percent, err := finance.FundingPercentage(c, raised)
	if err != nil {
		return nil, nil, err
	}

	return c, &ContractSummary{
		RaisedAmount:      raised,
		OutstandingAmount: finance.OutstandingAmount(c, fundings),
		Yield:             yield,
		PercentFunded:     percent,
	}, nil
}

// ListFundings returns a page of fundings plus the total count
func (s *ContractService) ListFundings(ctx context.Context, contractID uuid.UUID, page, perPage int) ([]*funding.Funding, int64, error) {
	if _, err := s.contracts.GetByID(ctx, contractID); err != nil {
		return nil, 0, err
	}

	all, err := s.fundings.ListByContract(ctx, contractID)
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(all))
	start := (page - 1) * perPage
	if start >= len(all) {
		return []*funding.Funding{}, total, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// Quote answers what a prospective contribution would return
func (s *ContractService) Quote(ctx context.Context, contractID uuid.UUID, amount int64) (*FundingQuote, error) {
	if amount <= 0 {
		return nil, finance.ErrInvalidAmount
	}

	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	fundings, err := s.fundings.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	percentage, err := finance.FundingPercentage(c, amount)
	if err != nil {
		return nil, err
	}
	returns, err := finance.FundingReturns(c, amount)
	if err != nil {
		return nil, err
	}

	return &FundingQuote{
		Amount:            amount,
		FundingPercentage: percentage,
		FundingReturns:    returns,
		OutstandingAmount: finance.OutstandingAmount(c, fundings),
	}, nil
}
