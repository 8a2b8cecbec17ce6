package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/funding"
	"github.com/peerfund-funding-orchestrator/internal/domain/movement"
	"github.com/peerfund-funding-orchestrator/internal/domain/profile"
	"github.com/peerfund-funding-orchestrator/internal/domain/wallet"
)

// DisbursementService implements DisbursementOrchestrator. The fan-out over
// investor fundings runs on a bounded worker pool; each completed transfer
// persists a per-funding marker before anything else, so a re-issued saga
// never moves the same value twice.
type DisbursementService struct {
	contracts       contract.Store
	fundings        funding.Ledger
	profiles        profile.Lookup
	wallets         wallet.TransferGateway
	recorder        movement.Recorder
	pool            *ants.Pool
	transferTimeout time.Duration
	logger          *slog.Logger
}

type DisbursementConfig struct {
	Workers         int
	TransferTimeout time.Duration
}

func NewDisbursementService(
	contracts contract.Store,
	fundings funding.Ledger,
	profiles profile.Lookup,
	wallets wallet.TransferGateway,
	recorder movement.Recorder,
	cfg DisbursementConfig,
	logger *slog.Logger,
) (*DisbursementService, error) {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}

	return &DisbursementService{
		contracts:       contracts,
		fundings:        fundings,
		profiles:        profiles,
		wallets:         wallets,
		recorder:        recorder,
		pool:            pool,
		transferTimeout: cfg.TransferTimeout,
		logger:          logger,
	}, nil
}

// Release shuts down the transfer worker pool
func (s *DisbursementService) Release() {
	s.pool.Release()
}

// transferOutcome is the per-funding result of the fan-out
type transferOutcome struct {
	fundingID   uuid.UUID
	transferred bool // Value moved (now or on a previous attempt)
	err         error
}

// Disburse runs the disbursement saga for a repaid contract
func (s *DisbursementService) Disburse(ctx context.Context, contractID uuid.UUID) (*DisburseResult, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	// Re-invoking on a disbursed contract is a no-op returning current state
	if c.Status == contract.StatusFundsDisbursed {
		s.logger.Info("Contract already disbursed", "contract_id", contractID.String())
		fundings, err := s.fundings.ListByContract(ctx, contractID)
		if err != nil {
			return nil, err
		}
		return &DisburseResult{Contract: c, Fundings: fundings}, nil
	}

	if c.Status != contract.StatusFundsRepaid {
		return nil, ErrInvalidContractState{
			ContractID: c.ID,
			Current:    c.Status,
			Required:   contract.StatusFundsRepaid,
		}
	}

	fundings, err := s.fundings.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	candidates := make([]*funding.Funding, 0, len(fundings))
	for _, f := range fundings {
		if f.Status.CountsTowardRaised() {
			candidates = append(candidates, f)
		}
	}

	// Step 1: fan out one transfer per funding
	if err := s.transferAll(ctx, c, candidates); err != nil {
		return nil, err
	}

	// Step 2: settle the funding ledger. Retry-safe: step 1 skips fundings
	// whose transfer marker is already set.
	ids := make([]uuid.UUID, len(candidates))
	for i, f := range candidates {
		ids[i] = f.ID
	}
	if err := s.fundings.UpdateStatusBatch(ctx, ids, funding.StatusFundsDisbursed); err != nil {
		s.logger.Error("Failed to mark fundings disbursed",
			"contract_id", contractID.String(),
			"funding_count", len(ids),
			"error", err,
		)
		return nil, &DisburseContractError{ContractID: contractID, Err: err}
	}

	// Step 3: terminal contract transition. Not reversed on failure; a retry
	// re-enters with every funding already transferred and settled.
	if err := s.contracts.UpdateStatus(ctx, c.ID, contract.StatusFundsDisbursed, c.Version); err != nil {
		s.logger.Error("Failed to transition contract to disbursed",
			"contract_id", contractID.String(),
			"error", err,
		)
		return nil, &UpdateContractError{ContractID: contractID, Err: err}
	}

	c.Status = contract.StatusFundsDisbursed
	c.Version++

	refreshed, err := s.fundings.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Contract disbursed",
		"contract_id", contractID.String(),
		"funding_count", len(candidates),
	)

	return &DisburseResult{Contract: c, Fundings: refreshed}, nil
}

// transferAll issues the wallet transfers concurrently and aggregates every
// outcome before deciding. The first failure in funding order aborts the
// saga; fundings that moved value keep their persisted markers for the next
// attempt.
func (s *DisbursementService) transferAll(ctx context.Context, c *contract.Contract, candidates []*funding.Funding) error {
	outcomes := make([]transferOutcome, len(candidates))

	var wg sync.WaitGroup
	for i, f := range candidates {
		i, f := i, f
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = s.transferOne(ctx, c, f)
		}); err != nil {
			wg.Done()
			outcomes[i] = transferOutcome{fundingID: f.ID, err: err}
		}
	}
	wg.Wait()

	var firstFailed *transferOutcome
	var transferred, remaining []uuid.UUID
	for i := range outcomes {
		o := &outcomes[i]
		if o.transferred {
			transferred = append(transferred, o.fundingID)
		} else {
			remaining = append(remaining, o.fundingID)
		}
		if o.err != nil && firstFailed == nil {
			firstFailed = o
		}
	}

	if firstFailed != nil {
		return &TransferFundsError{
			ContractID:  c.ID,
			FundingID:   firstFailed.fundingID,
			Transferred: transferred,
			Remaining:   remaining,
			Err:         firstFailed.err,
		}
	}
	return nil
}

// transferOne moves one investor's repayment share out of the contract
// wallet and records the movement. Order matters: the transfer marker is
// persisted immediately after the transfer confirms, before the ledger
// record, so a crash between the two can only cost a ledger entry, never a
// double payout.
func (s *DisbursementService) transferOne(ctx context.Context, c *contract.Contract, f *funding.Funding) transferOutcome {
	if f.Transferred() {
		s.logger.Info("Skipping already-transferred funding",
			"funding_id", f.ID.String(),
			"contract_id", c.ID.String(),
		)
		return transferOutcome{fundingID: f.ID, transferred: true}
	}

	// Cancellation is honored only before the transfer is issued; aborting a
	// transfer in flight leaves wallet state ambiguous
	if err := ctx.Err(); err != nil {
		return transferOutcome{fundingID: f.ID, err: err}
	}

	walletID, err := s.profiles.GetWalletID(ctx, f.ProfileID)
	if err != nil {
		s.logger.Error("Failed to resolve investor wallet",
			"funding_id", f.ID.String(),
			"profile_id", f.ProfileID.String(),
			"error", err,
		)
		return transferOutcome{fundingID: f.ID, err: err}
	}

	transferCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.transferTimeout)
	defer cancel()

	conf, err := s.wallets.Transfer(transferCtx, c.WalletID, walletID, f.RepaymentAmount)
	if err != nil {
		s.logger.Error("Wallet transfer failed",
			"funding_id", f.ID.String(),
			"from_wallet", c.WalletID,
			"to_wallet", walletID,
			"amount", f.RepaymentAmount,
			"error", err,
		)
		return transferOutcome{fundingID: f.ID, err: err}
	}

	if err := s.fundings.MarkTransferred(ctx, f.ID); err != nil {
		// Value moved but the marker write failed. Surface it so an operator
		// reconciles before any retry; the transfer id is in the log.
		s.logger.Error("Transfer completed but marker write failed",
			"funding_id", f.ID.String(),
			"transfer_id", conf.TransferID,
			"error", err,
		)
		return transferOutcome{fundingID: f.ID, transferred: true, err: err}
	}

	rec := movement.NewDisbursement(c.ID, f.ID, f.ProfileID, movement.Confirmation{
		TransferID: conf.TransferID,
		FromWallet: conf.FromWallet,
		ToWallet:   conf.ToWallet,
		Amount:     conf.Amount,
	}, "")
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.Error("Failed to record disbursement movement",
			"funding_id", f.ID.String(),
			"transfer_id", conf.TransferID,
			"error", err,
		)
		return transferOutcome{fundingID: f.ID, transferred: true, err: err}
	}

	s.logger.Info("Investor share transferred",
		"funding_id", f.ID.String(),
		"transfer_id", conf.TransferID,
		"amount", conf.Amount,
	)
	return transferOutcome{fundingID: f.ID, transferred: true}
}
