package handler

import (
	"time"

	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/funding"
	"github.com/peerfund-funding-orchestrator/internal/orchestrator"
)

// CreateContractRequest opens a contract for an approved request-for-funding
type CreateContractRequest struct {
	RequestID       string `json:"request_id" binding:"required,uuid"`
	WalletID        string `json:"wallet_id" binding:"required"`
	TargetAmount    int64  `json:"target_amount" binding:"required,gt=0"`
	RepaymentAmount int64  `json:"repayment_amount" binding:"required,gt=0"`
}

// ContractResponse represents a contract in API responses
type ContractResponse struct {
	ID              string `json:"id"`
	RequestID       string `json:"request_id"`
	WalletID        string `json:"wallet_id"`
	TargetAmount    int64  `json:"target_amount"`
	RepaymentAmount int64  `json:"repayment_amount"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`

	RaisedAmount      int64 `json:"raised_amount,omitempty"`
	OutstandingAmount int64 `json:"outstanding_amount,omitempty"`
	Yield             int64 `json:"yield,omitempty"`
	PercentFunded     int64 `json:"percent_funded,omitempty"`
}

// CreateFundingRequest is one investor contribution attempt. Reference is an
// optional idempotency key; repeating it returns the original funding.
type CreateFundingRequest struct {
	ProfileID string `json:"profile_id" binding:"required,uuid"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reference string `json:"reference,omitempty"`
}

// FundingResponse represents an investor contribution in API responses
type FundingResponse struct {
	ID              string `json:"id"`
	ContractID      string `json:"contract_id"`
	ProfileID       string `json:"profile_id"`
	Status          string `json:"status"`
	FundingAmount   int64  `json:"funding_amount"`
	RepaymentAmount int64  `json:"repayment_amount"`
	DisbursedAmount int64  `json:"disbursed_amount"`
	Reference       string `json:"reference,omitempty"`
	TransferredAt   string `json:"transferred_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// QuoteParams carries the prospective amount for a funding quote
type QuoteParams struct {
	Amount int64 `form:"amount" binding:"required,gt=0"`
}

// DisburseResponse is the saga outcome returned on success
type DisburseResponse struct {
	Contract ContractResponse  `json:"contract"`
	Fundings []FundingResponse `json:"fundings"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapContractToResponse(c *contract.Contract, summary *orchestrator.ContractSummary) ContractResponse {
	response := ContractResponse{
		ID:              c.ID.String(),
		RequestID:       c.RequestID.String(),
		WalletID:        c.WalletID,
		TargetAmount:    c.TargetAmount,
		RepaymentAmount: c.RepaymentAmount,
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       c.UpdatedAt.Format(time.RFC3339),
	}

	if summary != nil {
		response.RaisedAmount = summary.RaisedAmount
		response.OutstandingAmount = summary.OutstandingAmount
		response.Yield = summary.Yield
		response.PercentFunded = summary.PercentFunded
	}

	return response
}

func mapFundingToResponse(f *funding.Funding) FundingResponse {
	response := FundingResponse{
		ID:              f.ID.String(),
		ContractID:      f.ContractID.String(),
		ProfileID:       f.ProfileID.String(),
		Status:          string(f.Status),
		FundingAmount:   f.FundingAmount,
		RepaymentAmount: f.RepaymentAmount,
		DisbursedAmount: f.DisbursedAmount,
		Reference:       f.Reference,
		CreatedAt:       f.CreatedAt.Format(time.RFC3339),
	}

	if f.TransferredAt != nil {
		response.TransferredAt = f.TransferredAt.Format(time.RFC3339)
	}

	return response
}
