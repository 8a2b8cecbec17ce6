package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/funding"
	"github.com/peerfund-funding-orchestrator/internal/domain/outbox"
	"github.com/peerfund-funding-orchestrator/internal/domain/request"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
	"github.com/peerfund-funding-orchestrator/internal/finance"
)

// FundingService implements FundingOrchestrator. Contributions to the same
// contract serialize on a row lock held for the duration of the
// read-capacity-then-write sequence, so two investors racing for the last
// slice of capacity can never both succeed.
type FundingService struct {
	txRunner       TxRunner
	contracts      contract.Store
	fundings       funding.Ledger
	outboxRepo     outbox.Repository
	requestUpdater request.StatusUpdater
	logger         *slog.Logger
}

func NewFundingService(
	txRunner TxRunner,
	contracts contract.Store,
	fundings funding.Ledger,
	outboxRepo outbox.Repository,
	requestUpdater request.StatusUpdater,
	logger *slog.Logger,
) *FundingService {
	return &FundingService{
		txRunner:       txRunner,
		contracts:      contracts,
		fundings:       fundings,
		outboxRepo:     outboxRepo,
		requestUpdater: requestUpdater,
		logger:         logger,
	}
}

// Fund validates and persists one investor contribution
func (s *FundingService) Fund(ctx context.Context, req *FundRequest) (*funding.Funding, error) {
	logger := s.logger
	if req.CorrelationID != "" {
		logger = s.logger.With("correlation_id", req.CorrelationID)
	}

	if req.Amount <= 0 {
		return nil, funding.ErrInvalidFundingAmount
	}

	// Idempotency: a repeated reference returns the original funding
	if req.Reference != "" {
		existing, err := s.fundings.GetByReference(ctx, req.Reference)
		if err != nil {
			logger.Error("Failed to check funding reference", "reference", req.Reference, "error", err)
			return nil, fmt.Errorf("failed to check funding reference %s: %w", req.Reference, err)
		}
		if existing != nil {
			logger.Info("Found existing funding for reference",
				"reference", req.Reference,
				"funding_id", existing.ID.String(),
			)
			return existing, nil
		}
	}

	var (
		created   *funding.Funding
		outboxMsg *outbox.Message
	)

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		contractsTx := s.contracts.WithTx(tx)
		fundingsTx := s.fundings.WithTx(tx)

		// Row lock closes the read-then-decide race window
		c, err := contractsTx.LockForUpdate(ctx, req.ContractID)
		if err != nil {
			return err
		}

		if !c.Status.AcceptsFunding() {
			return ErrInvalidContractState{
				ContractID: c.ID,
				Current:    c.Status,
				Required:   contract.StatusOpen,
			}
		}

		existing, err := fundingsTx.ListByContract(ctx, req.ContractID)
		if err != nil {
			return err
		}

		outstanding := finance.OutstandingAmount(c, existing)
		if req.Amount > outstanding {
			return ErrFundingExceedsOutstanding{
				ContractID:  c.ID,
				Requested:   req.Amount,
				Outstanding: outstanding,
			}
		}

		repayment, err := finance.InvestorRepayment(c, req.Amount)
		if err != nil {
			return err
		}

		f, err := funding.New(c.ID, req.ProfileID, req.Amount, repayment, req.Reference)
		if err != nil {
			return err
		}
		if err := fundingsTx.Create(ctx, f); err != nil {
			return err
		}

		// Status is derived from ledger state and persisted in the same
		// transaction as the funding write
		raised := finance.RaisedAmount(existing) + req.Amount
		newStatus := c.DeriveStatus(raised)
		if newStatus != c.Status {
			if err := contractsTx.UpdateStatus(ctx, c.ID, newStatus, c.Version); err != nil {
				return err
			}
		}

		event := &shared.RequestStatusEvent{
			RequestID:     c.RequestID,
			ContractID:    c.ID,
			Status:        requestStatusFor(newStatus),
			CorrelationID: req.CorrelationID,
			Timestamp:     time.Now(),
		}
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return fmt.Errorf("failed to build request status outbox message: %w", err)
		}
		if err := s.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
			return err
		}

		created = f
		outboxMsg = msg
		return nil
	})
	if err != nil {
		logger.Warn("Funding rejected",
			"contract_id", req.ContractID.String(),
			"profile_id", req.ProfileID.String(),
			"amount", req.Amount,
			"error", err,
		)
		return nil, err
	}

	logger.Info("Funding persisted",
		"funding_id", created.ID.String(),
		"contract_id", created.ContractID.String(),
		"amount", created.FundingAmount,
		"repayment_amount", created.RepaymentAmount,
	)

	// Notify the request-for-funding service. The outbox entry written above
	// guarantees delivery eventually; a synchronous failure here is still
	// surfaced so the caller knows the request view may lag.
	if err := s.publishStatus(ctx, logger, outboxMsg); err != nil {
		return created, err
	}

	return created, nil
}

func (s *FundingService) publishStatus(ctx context.Context, logger *slog.Logger, msg *outbox.Message) error {
	event, err := msg.GetStatusEvent()
	if err != nil {
		return &UpdateRequestError{RequestID: msg.RequestID, Err: err}
	}

	if err := s.requestUpdater.UpdateStatus(ctx, event); err != nil {
		logger.Error("Failed to publish request status update, outbox will retry",
			"request_id", event.RequestID.String(),
			"status", event.Status,
			"error", err,
		)
		if incErr := s.outboxRepo.IncrementAttempts(ctx, msg.ID); incErr != nil {
			logger.Error("Failed to increment outbox attempts", "outbox_id", msg.ID, "error", incErr)
		}
		return &UpdateRequestError{RequestID: event.RequestID, Err: err}
	}

	if err := s.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusProcessed); err != nil {
		// The event went out; a stale PENDING row only risks a duplicate
		// publish by the poller, which the request service tolerates
		logger.Warn("Failed to mark outbox message processed", "outbox_id", msg.ID, "error", err)
	}
	return nil
}

// requestStatusFor maps a contract funding state to the status code the
// request-for-funding service understands
func requestStatusFor(s contract.Status) string {
	switch s {
	case contract.StatusFullyFunded:
		return request.StatusFullyFunded
	case contract.StatusFundsDisbursed:
		return request.StatusFundsDisbursed
	default:
		return request.StatusPartiallyFunded
	}
}
