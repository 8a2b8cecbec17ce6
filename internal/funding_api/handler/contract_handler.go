package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/orchestrator"
)

// ContractHandler handles HTTP requests for contract operations
type ContractHandler struct {
	contracts orchestrator.ContractQueries
	logger    *slog.Logger
}

// NewContractHandler creates a new contract handler
func NewContractHandler(logger *slog.Logger, contracts orchestrator.ContractQueries) *ContractHandler {
	return &ContractHandler{
		contracts: contracts,
		logger:    logger,
	}
}

// Create opens a contract for an approved request-for-funding
func (h *ContractHandler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		h.logger.Error("Invalid request ID", "request_id", req.RequestID, "error", err)
		RespondBadRequest(c, "Invalid request ID")
		return
	}

	created, err := h.contracts.CreateContract(c.Request.Context(), &orchestrator.CreateContractInput{
		RequestID:       requestID,
		WalletID:        req.WalletID,
		TargetAmount:    req.TargetAmount,
		RepaymentAmount: req.RepaymentAmount,
	})
	if err != nil {
		var dup contract.ErrDuplicateRequest
		switch {
		case errors.As(err, &dup):
			RespondConflict(c, "DUPLICATE_REQUEST", dup.Error())
		case errors.Is(err, contract.ErrInvalidTargetAmount),
			errors.Is(err, contract.ErrInvalidRepaymentAmount),
			errors.Is(err, contract.ErrEmptyWalletID),
			errors.Is(err, contract.ErrMissingRequestID):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to create contract", "request_id", req.RequestID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapContractToResponse(created, nil))
}

// GetByID retrieves a contract with its calculator-derived summary figures
func (h *ContractHandler) GetByID(c *gin.Context) {
	id, ok := parseContractID(c, h.logger)
	if !ok {
		return
	}

	contractRes, summary, err := h.contracts.GetContract(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, contract.ErrContractNotFound{}) {
			RespondNotFound(c, "Contract not found")
			return
		}
		h.logger.Error("Failed to get contract", "contract_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapContractToResponse(contractRes, summary))
}

// ListFundings retrieves paginated investor contributions for a contract
func (h *ContractHandler) ListFundings(c *gin.Context) {
	id, ok := parseContractID(c, h.logger)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	fundings, total, err := h.contracts.ListFundings(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		if errors.Is(err, contract.ErrContractNotFound{}) {
			RespondNotFound(c, "Contract not found")
			return
		}
		h.logger.Error("Failed to list fundings", "contract_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	var responses []FundingResponse
	for _, f := range fundings {
		responses = append(responses, mapFundingToResponse(f))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Quote answers what a prospective amount would buy an investor
func (h *ContractHandler) Quote(c *gin.Context) {
	id, ok := parseContractID(c, h.logger)
	if !ok {
		return
	}

	var params QuoteParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid quote parameters", "error", err)
		RespondBadRequest(c, "Invalid quote parameters: amount must be a positive integer")
		return
	}

	quote, err := h.contracts.Quote(c.Request.Context(), id, params.Amount)
	if err != nil {
		if errors.Is(err, contract.ErrContractNotFound{}) {
			RespondNotFound(c, "Contract not found")
			return
		}
		h.logger.Error("Failed to quote funding", "contract_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, quote)
}

// parseContractID extracts and validates the :id path parameter
func parseContractID(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Error("Invalid contract ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid contract ID")
		return uuid.Nil, false
	}
	return id, true
}
