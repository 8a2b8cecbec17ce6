package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/funding"
	"github.com/peerfund-funding-orchestrator/internal/funding_api/middleware"
	"github.com/peerfund-funding-orchestrator/internal/orchestrator"
)

// FundingHandler handles HTTP requests for funding and disbursement operations
type FundingHandler struct {
	fundingOrch      orchestrator.FundingOrchestrator
	disbursementOrch orchestrator.DisbursementOrchestrator
	logger           *slog.Logger
}

// NewFundingHandler creates a new funding handler
func NewFundingHandler(
	logger *slog.Logger,
	fundingOrch orchestrator.FundingOrchestrator,
	disbursementOrch orchestrator.DisbursementOrchestrator,
) *FundingHandler {
	return &FundingHandler{
		fundingOrch:      fundingOrch,
		disbursementOrch: disbursementOrch,
		logger:           logger,
	}
}

// Fund records an investor contribution against a contract
func (h *FundingHandler) Fund(c *gin.Context) {
	contractID, ok := parseContractID(c, h.logger)
	if !ok {
		return
	}

	var req CreateFundingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	profileID, err := uuid.Parse(req.ProfileID)
	if err != nil {
		h.logger.Error("Invalid profile ID", "profile_id", req.ProfileID, "error", err)
		RespondBadRequest(c, "Invalid profile ID")
		return
	}

	created, err := h.fundingOrch.Fund(c.Request.Context(), &orchestrator.FundRequest{
		ContractID:    contractID,
		ProfileID:     profileID,
		Amount:        req.Amount,
		Reference:     req.Reference,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondFundError(c, contractID, created, err)
		return
	}

	RespondCreated(c, mapFundingToResponse(created))
}

// respondFundError maps funding path errors onto HTTP statuses. A funding
// returned alongside an UpdateRequestError was persisted; the response carries
// both the record and the notification failure.
func (h *FundingHandler) respondFundError(c *gin.Context, contractID uuid.UUID, created *funding.Funding, err error) {
	var updateErr *orchestrator.UpdateRequestError
	var exceedsErr orchestrator.ErrFundingExceedsOutstanding

	switch {
	case errors.As(err, &updateErr):
		h.logger.Warn("Funding persisted but request status update failed",
			"contract_id", contractID.String(),
			"request_id", updateErr.RequestID.String(),
			"error", updateErr.Err,
		)
		response := NewResponse(mapFundingToResponse(created))
		response.Error = &ErrorInfo{
			Code:    "REQUEST_UPDATE_FAILED",
			Message: "Funding recorded, but the request-for-funding service was not notified; delivery will be retried",
		}
		response.CorrelationID = middleware.GetCorrelationID(c)
		c.JSON(http.StatusCreated, response)

	case errors.Is(err, contract.ErrContractNotFound{}):
		RespondNotFound(c, "Contract not found")

	case errors.Is(err, orchestrator.ErrInvalidContractState{}):
		RespondConflict(c, "INVALID_CONTRACT_STATE", err.Error())

	case errors.As(err, &exceedsErr):
		RespondWithErrorDetails(c, http.StatusUnprocessableEntity,
			"FUNDING_EXCEEDS_OUTSTANDING", exceedsErr.Error(), gin.H{
				"requested":   exceedsErr.Requested,
				"outstanding": exceedsErr.Outstanding,
			})

	case errors.Is(err, funding.ErrInvalidFundingAmount),
		errors.Is(err, funding.ErrMissingProfileID):
		RespondBadRequest(c, err.Error())

	default:
		h.logger.Error("Failed to fund contract", "contract_id", contractID.String(), "error", err)
		RespondInternalError(c)
	}
}

// Disburse runs the multi-investor disbursement saga for a repaid contract
func (h *FundingHandler) Disburse(c *gin.Context) {
	contractID, ok := parseContractID(c, h.logger)
	if !ok {
		return
	}

	result, err := h.disbursementOrch.Disburse(c.Request.Context(), contractID)
	if err != nil {
		h.respondDisburseError(c, contractID, err)
		return
	}

	var fundings []FundingResponse
	for _, f := range result.Fundings {
		fundings = append(fundings, mapFundingToResponse(f))
	}

	RespondOK(c, DisburseResponse{
		Contract: mapContractToResponse(result.Contract, nil),
		Fundings: fundings,
	})
}

// respondDisburseError maps saga failures onto HTTP statuses. Partial
// outcomes carry the transferred/remaining split so operators can see exactly
// where the run stopped before re-issuing it.
func (h *FundingHandler) respondDisburseError(c *gin.Context, contractID uuid.UUID, err error) {
	var transferErr *orchestrator.TransferFundsError
	var disburseErr *orchestrator.DisburseContractError
	var contractErr *orchestrator.UpdateContractError

	switch {
	case errors.Is(err, contract.ErrContractNotFound{}):
		RespondNotFound(c, "Contract not found")

	case errors.Is(err, orchestrator.ErrInvalidContractState{}):
		RespondConflict(c, "INVALID_CONTRACT_STATE", err.Error())

	case errors.As(err, &transferErr):
		h.logger.Error("Disbursement transfer failed",
			"contract_id", contractID.String(),
			"funding_id", transferErr.FundingID.String(),
			"transferred", len(transferErr.Transferred),
			"remaining", len(transferErr.Remaining),
			"error", transferErr.Err,
		)
		RespondWithErrorDetails(c, http.StatusBadGateway,
			"TRANSFER_FAILED",
			"Disbursement stopped on a failed transfer; re-issue to resume",
			gin.H{
				"failed_funding_id": transferErr.FundingID.String(),
				"transferred":       uuidStrings(transferErr.Transferred),
				"remaining":         uuidStrings(transferErr.Remaining),
			})

	case errors.As(err, &disburseErr), errors.As(err, &contractErr):
		h.logger.Error("Disbursement settlement failed",
			"contract_id", contractID.String(),
			"error", err,
		)
		RespondWithErrorDetails(c, http.StatusInternalServerError,
			"DISBURSEMENT_SETTLEMENT_FAILED",
			"Transfers completed but settlement did not; re-issue to finish",
			gin.H{"contract_id": contractID.String()})

	default:
		h.logger.Error("Failed to disburse contract", "contract_id", contractID.String(), "error", err)
		RespondInternalError(c)
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
