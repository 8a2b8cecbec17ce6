package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/funding"
	"github.com/peerfund-funding-orchestrator/internal/domain/wallet"
	"github.com/peerfund-funding-orchestrator/internal/orchestrator"
)

type MockFundingOrchestrator struct {
	mock.Mock
}

func (m *MockFundingOrchestrator) Fund(ctx context.Context, req *orchestrator.FundRequest) (*funding.Funding, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.Funding), args.Error(1)
}

type MockDisbursementOrchestrator struct {
	mock.Mock
}

func (m *MockDisbursementOrchestrator) Disburse(ctx context.Context, contractID uuid.UUID) (*orchestrator.DisburseResult, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orchestrator.DisburseResult), args.Error(1)
}

func sampleFunding(contractID uuid.UUID) *funding.Funding {
	return &funding.Funding{
		ID:              uuid.New(),
		ContractID:      contractID,
		ProfileID:       uuid.New(),
		Status:          funding.StatusInCommitment,
		FundingAmount:   400_000,
		RepaymentAmount: 480_000,
		Reference:       "commit-1",
		CreatedAt:       time.Now(),
	}
}

func TestFundingHandler_Fund(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	newRouter := func(handler *FundingHandler) *gin.Engine {
		router := gin.Default()
		router.POST("/contracts/:id/fundings", handler.Fund)
		return router
	}

	t.Run("Success", func(t *testing.T) {
		mockFunding := new(MockFundingOrchestrator)
		mockDisbursement := new(MockDisbursementOrchestrator)
		handler := NewFundingHandler(logger, mockFunding, mockDisbursement)
		router := newRouter(handler)

		contractID := uuid.New()
		created := sampleFunding(contractID)

		mockFunding.On("Fund", mock.Anything, mock.MatchedBy(func(req *orchestrator.FundRequest) bool {
			return req.ContractID == contractID && req.ProfileID == created.ProfileID && req.Amount == 400_000
		})).Return(created, nil)

		reqBody := CreateFundingRequest{
			ProfileID: created.ProfileID.String(),
			Amount:    400_000,
			Reference: "commit-1",
		}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+contractID.String()+"/fundings", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var response struct {
			Data FundingResponse `json:"data"`
		}
		err := json.Unmarshal(rr.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, created.ID.String(), response.Data.ID)
		assert.Equal(t, "IN_COMMITMENT", response.Data.Status)
		assert.Equal(t, int64(480_000), response.Data.RepaymentAmount)

		mockFunding.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockFunding := new(MockFundingOrchestrator)
		handler := NewFundingHandler(logger, mockFunding, new(MockDisbursementOrchestrator))
		router := newRouter(handler)

		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+uuid.New().String()+"/fundings", bytes.NewBufferString(`{"invalid`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockFunding.AssertExpectations(t)
	})

	t.Run("ContractNotFound", func(t *testing.T) {
		mockFunding := new(MockFundingOrchestrator)
		handler := NewFundingHandler(logger, mockFunding, new(MockDisbursementOrchestrator))
		router := newRouter(handler)

		contractID := uuid.New()
		mockFunding.On("Fund", mock.Anything, mock.Anything).
			Return(nil, contract.ErrContractNotFound{ContractID: contractID})

		reqBody := CreateFundingRequest{ProfileID: uuid.New().String(), Amount: 400_000}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+contractID.String()+"/fundings", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("ContractNotAcceptingFundings", func(t *testing.T) {
		mockFunding := new(MockFundingOrchestrator)
		handler := NewFundingHandler(logger, mockFunding, new(MockDisbursementOrchestrator))
		router := newRouter(handler)

		contractID := uuid.New()
		mockFunding.On("Fund", mock.Anything, mock.Anything).
			Return(nil, orchestrator.ErrInvalidContractState{
				ContractID: contractID,
				Current:    contract.StatusFullyFunded,
				Required:   contract.StatusOpen,
			})

		reqBody := CreateFundingRequest{ProfileID: uuid.New().String(), Amount: 400_000}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+contractID.String()+"/fundings", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)

		var response Response
		err := json.Unmarshal(rr.Body.Bytes(), &response)
		require.NoError(t, err)
		require.NotNil(t, response.Error)
		assert.Equal(t, "INVALID_CONTRACT_STATE", response.Error.Code)
	})

	t.Run("FundingExceedsOutstanding", func(t *testing.T) {
		mockFunding := new(MockFundingOrchestrator)
		handler := NewFundingHandler(logger, mockFunding, new(MockDisbursementOrchestrator))
		router := newRouter(handler)

		contractID := uuid.New()
		mockFunding.On("Fund", mock.Anything, mock.Anything).
			Return(nil, orchestrator.ErrFundingExceedsOutstanding{
				ContractID:  contractID,
				Requested:   700_000,
				Outstanding: 600_000,
			})

		reqBody := CreateFundingRequest{ProfileID: uuid.New().String(), Amount: 700_000}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+contractID.String()+"/fundings", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		var response Response
		err := json.Unmarshal(rr.Body.Bytes(), &response)
		require.NoError(t, err)
		require.NotNil(t, response.Error)
		assert.Equal(t, "FUNDING_EXCEEDS_OUTSTANDING", response.Error.Code)
	})

	t.Run("FundingPersistedButNotificationFailed", func(t *testing.T) {
		mockFunding := new(MockFundingOrchestrator)
		handler := NewFundingHandler(logger, mockFunding, new(MockDisbursementOrchestrator))
		router := newRouter(handler)

		contractID := uuid.New()
		created := sampleFunding(contractID)
		mockFunding.On("Fund", mock.Anything, mock.Anything).
			Return(created, &orchestrator.UpdateRequestError{
				RequestID: uuid.New(),
				Err:       errors.New("kafka down"),
			})

		reqBody := CreateFundingRequest{ProfileID: created.ProfileID.String(), Amount: 400_000}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+contractID.String()+"/fundings", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		// Funding was persisted; the response carries both the record and the
		// notification failure
		assert.Equal(t, http.StatusCreated, rr.Code)

		var response struct {
			Data  FundingResponse `json:"data"`
			Error *ErrorInfo      `json:"error"`
		}
		err := json.Unmarshal(rr.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, created.ID.String(), response.Data.ID)
		require.NotNil(t, response.Error)
		assert.Equal(t, "REQUEST_UPDATE_FAILED", response.Error.Code)
	})

	t.Run("InternalError", func(t *testing.T) {
		mockFunding := new(MockFundingOrchestrator)
		handler := NewFundingHandler(logger, mockFunding, new(MockDisbursementOrchestrator))
		router := newRouter(handler)

		mockFunding.On("Fund", mock.Anything, mock.Anything).Return(nil, errors.New("db error"))

		reqBody := CreateFundingRequest{ProfileID: uuid.New().String(), Amount: 400_000}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+uuid.New().String()+"/fundings", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestFundingHandler_Disburse(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	newRouter := func(handler *FundingHandler) *gin.Engine {
		router := gin.Default()
		router.POST("/contracts/:id/disburse", handler.Disburse)
		return router
	}

	t.Run("Success", func(t *testing.T) {
		mockDisbursement := new(MockDisbursementOrchestrator)
		handler := NewFundingHandler(logger, new(MockFundingOrchestrator), mockDisbursement)
		router := newRouter(handler)

		c := sampleContract()
		c.Status = contract.StatusFundsDisbursed
		f := sampleFunding(c.ID)
		f.Status = funding.StatusFundsDisbursed
		f.DisbursedAmount = 480_000

		mockDisbursement.On("Disburse", mock.Anything, c.ID).
			Return(&orchestrator.DisburseResult{
				Contract: c,
				Fundings: []*funding.Funding{f},
			}, nil)

		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+c.ID.String()+"/disburse", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response struct {
			Data DisburseResponse `json:"data"`
		}
		err := json.Unmarshal(rr.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, "FUNDS_DISBURSED", response.Data.Contract.Status)
		require.Len(t, response.Data.Fundings, 1)
		assert.Equal(t, int64(480_000), response.Data.Fundings[0].DisbursedAmount)

		mockDisbursement.AssertExpectations(t)
	})

	t.Run("InvalidContractID", func(t *testing.T) {
		handler := NewFundingHandler(logger, new(MockFundingOrchestrator), new(MockDisbursementOrchestrator))
		router := newRouter(handler)

		req, _ := http.NewRequest(http.MethodPost, "/contracts/not-a-uuid/disburse", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockDisbursement := new(MockDisbursementOrchestrator)
		handler := NewFundingHandler(logger, new(MockFundingOrchestrator), mockDisbursement)
		router := newRouter(handler)

		contractID := uuid.New()
		mockDisbursement.On("Disburse", mock.Anything, contractID).
			Return(nil, contract.ErrContractNotFound{ContractID: contractID})

		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+contractID.String()+"/disburse", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("NotRepaid", func(t *testing.T) {
		mockDisbursement := new(MockDisbursementOrchestrator)
		handler := NewFundingHandler(logger, new(MockFundingOrchestrator), mockDisbursement)
		router := newRouter(handler)

		contractID := uuid.New()
		mockDisbursement.On("Disburse", mock.Anything, contractID).
			Return(nil, orchestrator.ErrInvalidContractState{
				ContractID: contractID,
				Current:    contract.StatusOpen,
				Required:   contract.StatusFundsRepaid,
			})

		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+contractID.String()+"/disburse", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("TransferFailed", func(t *testing.T) {
		mockDisbursement := new(MockDisbursementOrchestrator)
		handler := NewFundingHandler(logger, new(MockFundingOrchestrator), mockDisbursement)
		router := newRouter(handler)

		contractID := uuid.New()
		failedFundingID := uuid.New()
		transferredID := uuid.New()
		remainingID := uuid.New()
		mockDisbursement.On("Disburse", mock.Anything, contractID).
			Return(nil, &orchestrator.TransferFundsError{
				ContractID:  contractID,
				FundingID:   failedFundingID,
				Transferred: []uuid.UUID{transferredID},
				Remaining:   []uuid.UUID{remainingID},
				Err:         wallet.ErrTransferRejected{FromWallet: "wallet-escrow-1", ToWallet: "wallet-investor-1", Reason: "insufficient balance"},
			})

		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+contractID.String()+"/disburse", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadGateway, rr.Code)

		var response Response
		err := json.Unmarshal(rr.Body.Bytes(), &response)
		require.NoError(t, err)
		require.NotNil(t, response.Error)
		assert.Equal(t, "TRANSFER_FAILED", response.Error.Code)

		details, ok := response.Error.Details.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, failedFundingID.String(), details["failed_funding_id"])
	})

	t.Run("SettlementFailed", func(t *testing.T) {
		mockDisbursement := new(MockDisbursementOrchestrator)
		handler := NewFundingHandler(logger, new(MockFundingOrchestrator), mockDisbursement)
		router := newRouter(handler)

		contractID := uuid.New()
		mockDisbursement.On("Disburse", mock.Anything, contractID).
			Return(nil, &orchestrator.DisburseContractError{
				ContractID: contractID,
				Err:        errors.New("db error"),
			})

		req, _ := http.NewRequest(http.MethodPost, "/contracts/"+contractID.String()+"/disburse", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)

		var response Response
		err := json.Unmarshal(rr.Body.Bytes(), &response)
		require.NoError(t, err)
		require.NotNil(t, response.Error)
		assert.Equal(t, "DISBURSEMENT_SETTLEMENT_FAILED", response.Error.Code)
	})
}
