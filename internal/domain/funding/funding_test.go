package funding

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		contractID := uuid.New()
		profileID := uuid.New()

		f, err := New(contractID, profileID, 400_000, 480_000, "ref-1")

		require.NoError(t, err)
		require.NotNil(t, f)
		assert.NotEqual(t, uuid.Nil, f.ID)
		assert.Equal(t, contractID, f.ContractID)
		assert.Equal(t, profileID, f.ProfileID)
		assert.Equal(t, StatusInCommitment, f.Status)
		assert.Equal(t, int64(400_000), f.FundingAmount)
		assert.Equal(t, int64(480_000), f.RepaymentAmount)
		assert.Equal(t, int64(0), f.DisbursedAmount)
		assert.Equal(t, "ref-1", f.Reference)
		assert.Nil(t, f.TransferredAt)
	})

	t.Run("MissingProfileID", func(t *testing.T) {
		_, err := New(uuid.New(), uuid.Nil, 1000, 1200, "")
		assert.ErrorIs(t, err, ErrMissingProfileID)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		_, err := New(uuid.New(), uuid.New(), 0, 0, "")
		assert.ErrorIs(t, err, ErrInvalidFundingAmount)
	})
}

func TestStatus_CountsTowardRaised(t *testing.T) {
	counting := []Status{StatusInCommitment, StatusFunded, StatusFundsDisbursed}
	for _, s := range counting {
		assert.True(t, s.CountsTowardRaised(), "%s should count toward raised", s)
	}
	assert.False(t, StatusRejected.CountsTowardRaised())
}

func TestFunding_Transferred(t *testing.T) {
	f := &Funding{}
	assert.False(t, f.Transferred())

	now := time.Now()
	f.TransferredAt = &now
	assert.True(t, f.Transferred())
}
