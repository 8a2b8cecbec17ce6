package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testContractRow(c *contract.Contract) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "request_id", "wallet_id", "target_amount", "repayment_amount", "status", "version", "created_at", "updated_at"}).
		AddRow(c.ID, c.RequestID, c.WalletID, c.TargetAmount, c.RepaymentAmount, c.Status, c.Version, c.CreatedAt, c.UpdatedAt)
}

func TestContractRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContractRepository{querier: mock, logger: logger}

	now := time.Now()
	c := &contract.Contract{
		ID:              uuid.New(),
		RequestID:       uuid.New(),
		WalletID:        "wallet-borrower-1",
		TargetAmount:    1_000_000,
		RepaymentAmount: 1_200_000,
		Status:          contract.StatusOpen,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `
		INSERT INTO contracts \(id, request_id, wallet_id, target_amount, repayment_amount, status, version, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.ID, c.RequestID, c.WalletID, c.TargetAmount, c.RepaymentAmount, c.Status, c.Version, c.CreatedAt, c.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, c)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(c.ID, c.RequestID, c.WalletID, c.TargetAmount, c.RepaymentAmount, c.Status, c.Version, c.CreatedAt, c.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, c)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create contract")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContractRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContractRepository{querier: mock, logger: logger}
	contractID := uuid.New()
	now := time.Now()

	expectedContract := &contract.Contract{
		ID:              contractID,
		RequestID:       uuid.New(),
		WalletID:        "wallet-borrower-1",
		TargetAmount:    1_000_000,
		RepaymentAmount: 1_200_000,
		Status:          contract.StatusPartiallyFunded,
		Version:         2,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `
		SELECT id, request_id, wallet_id, target_amount, repayment_amount, status, version, created_at, updated_at
		FROM contracts
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(contractID).WillReturnRows(testContractRow(expectedContract))

		c, err := repo.GetByID(ctx, contractID)
		assert.NoError(t, err)
		assert.Equal(t, expectedContract, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(contractID).WillReturnError(pgx.ErrNoRows)

		c, err := repo.GetByID(ctx, contractID)
		assert.Error(t, err)
		assert.Nil(t, c)
		var notFoundErr contract.ErrContractNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, contractID, notFoundErr.ContractID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(contractID).WillReturnError(dbErr)

		c, err := repo.GetByID(ctx, contractID)
		assert.Error(t, err)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "failed to get contract")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContractRepository_GetByRequestID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContractRepository{querier: mock, logger: logger}
	requestID := uuid.New()
	now := time.Now()

	expectedContract := &contract.Contract{
		ID:              uuid.New(),
		RequestID:       requestID,
		WalletID:        "wallet-borrower-1",
		TargetAmount:    1_000_000,
		RepaymentAmount: 1_200_000,
		Status:          contract.StatusOpen,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `
		SELECT id, request_id, wallet_id, target_amount, repayment_amount, status, version, created_at, updated_at
		FROM contracts
		WHERE request_id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(requestID).WillReturnRows(testContractRow(expectedContract))

		c, err := repo.GetByRequestID(ctx, requestID)
		assert.NoError(t, err)
		assert.Equal(t, expectedContract, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(requestID).WillReturnError(pgx.ErrNoRows)

		c, err := repo.GetByRequestID(ctx, requestID)
		assert.NoError(t, err) // No error, just nil contract
		assert.Nil(t, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(requestID).WillReturnError(dbErr)

		c, err := repo.GetByRequestID(ctx, requestID)
		assert.Error(t, err)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "failed to get contract by request ID")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContractRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContractRepository{querier: mock, logger: logger}
	contractID := uuid.New()
	currentVersion := 2

	query := `
		UPDATE contracts
		SET status = \$1, version = version \+ 1, updated_at = NOW\(\)
		WHERE id = \$2 AND version = \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(contract.StatusFullyFunded, contractID, currentVersion).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, contractID, contract.StatusFullyFunded, currentVersion)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent modification", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(contract.StatusFullyFunded, contractID, currentVersion).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, contractID, contract.StatusFullyFunded, currentVersion)
		assert.Error(t, err)
		var concurrentModErr contract.ErrConcurrentModification
		assert.ErrorAs(t, err, &concurrentModErr)
		assert.Equal(t, contractID, concurrentModErr.ContractID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("update db error")
		mock.ExpectExec(query).
			WithArgs(contract.StatusFullyFunded, contractID, currentVersion).
			WillReturnError(dbErr)

		err := repo.UpdateStatus(ctx, contractID, contract.StatusFullyFunded, currentVersion)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update contract status")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContractRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContractRepository{querier: mock, logger: logger}
	contractID := uuid.New()
	now := time.Now()

	expectedContract := &contract.Contract{
		ID:              contractID,
		RequestID:       uuid.New(),
		WalletID:        "wallet-borrower-1",
		TargetAmount:    1_000_000,
		RepaymentAmount: 1_200_000,
		Status:          contract.StatusFullyFunded,
		Version:         3,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `
		SELECT id, request_id, wallet_id, target_amount, repayment_amount, status, version, created_at, updated_at
		FROM contracts
		WHERE id = \$1
		FOR UPDATE
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(contractID).WillReturnRows(testContractRow(expectedContract))

		c, err := repo.LockForUpdate(ctx, contractID)
		assert.NoError(t, err)
		assert.Equal(t, expectedContract, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(contractID).WillReturnError(pgx.ErrNoRows)

		c, err := repo.LockForUpdate(ctx, contractID)
		assert.Error(t, err)
		assert.Nil(t, c)
		var notFoundErr contract.ErrContractNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, contractID, notFoundErr.ContractID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("lock db error")
		mock.ExpectQuery(query).WithArgs(contractID).WillReturnError(dbErr)

		c, err := repo.LockForUpdate(ctx, contractID)
		assert.Error(t, err)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "failed to lock contract for update")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContractRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &ContractRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*ContractRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*ContractRepository).querier, "Querier in new repo should be the transaction")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
