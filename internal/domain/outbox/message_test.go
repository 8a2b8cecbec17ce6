package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
)

func TestNewMessage(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		event := &shared.RequestStatusEvent{
			RequestID:     uuid.New(),
			ContractID:    uuid.New(),
			Status:        "PARTIALLY_FUNDED",
			CorrelationID: "corr-1",
			Timestamp:     time.Now().Add(-time.Minute),
		}

		beforeCreation := time.Now()
		msg, err := NewMessage(event)
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, msg)

		assert.Equal(t, event.RequestID, msg.RequestID)
		assert.Equal(t, event.ContractID, msg.ContractID)
		assert.Equal(t, shared.OutboxStatusPending, msg.Status)
		assert.Equal(t, 0, msg.Attempts)
		assert.Nil(t, msg.LastAttemptAt)
		assert.WithinDuration(t, beforeCreation, msg.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)

		// Check payload
		var decodedEvent shared.RequestStatusEvent
		err = json.Unmarshal(msg.Payload, &decodedEvent)
		require.NoError(t, err)
		assert.Equal(t, event.RequestID, decodedEvent.RequestID)
		assert.Equal(t, event.Status, decodedEvent.Status)
	})
}

func TestMessage_IncrementAttempts(t *testing.T) {
	t.Run("SuccessfulIncrement", func(t *testing.T) {
		initialTime := time.Now().Add(-time.Hour)
		msg := &Message{
			Attempts:      1,
			LastAttemptAt: &initialTime,
		}
		initialAttempts := msg.Attempts

		time.Sleep(10 * time.Millisecond) // Ensure time changes
		beforeUpdate := time.Now()
		msg.IncrementAttempts()
		afterUpdate := time.Now()

		assert.Equal(t, initialAttempts+1, msg.Attempts)
		require.NotNil(t, msg.LastAttemptAt)
		assert.True(t, msg.LastAttemptAt.After(initialTime))
		assert.WithinDuration(t, beforeUpdate, *msg.LastAttemptAt, afterUpdate.Sub(beforeUpdate)+time.Millisecond)
	})
}

func TestMessage_MarkAsProcessed(t *testing.T) {
	t.Run("SuccessfulMarkAsProcessed", func(t *testing.T) {
		initialTime := time.Now().Add(-time.Hour)
		msg := &Message{
			Status:        shared.OutboxStatusPending,
			LastAttemptAt: &initialTime,
		}
		time.Sleep(10 * time.Millisecond) // Ensure time changes
		beforeUpdate := time.Now()
		msg.MarkAsProcessed()
		afterUpdate := time.Now()

		assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)
		require.NotNil(t, msg.LastAttemptAt)
		assert.True(t, msg.LastAttemptAt.After(initialTime))
		assert.WithinDuration(t, beforeUpdate, *msg.LastAttemptAt, afterUpdate.Sub(beforeUpdate)+time.Millisecond)
	})
}

func TestMessage_MarkAsFailed(t *testing.T) {
	t.Run("SuccessfulMarkAsFailed", func(t *testing.T) {
		initialTime := time.Now().Add(-time.Hour)
		msg := &Message{
			Status:        shared.OutboxStatusPending,
			LastAttemptAt: &initialTime,
		}
		time.Sleep(10 * time.Millisecond) // Ensure time changes
		beforeUpdate := time.Now()
		msg.MarkAsFailed()
		afterUpdate := time.Now()

		assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
		require.NotNil(t, msg.LastAttemptAt)
		assert.True(t, msg.LastAttemptAt.After(initialTime))
		assert.WithinDuration(t, beforeUpdate, *msg.LastAttemptAt, afterUpdate.Sub(beforeUpdate)+time.Millisecond)
	})
}

func TestMessage_GetStatusEvent(t *testing.T) {
	t.Run("SuccessfulGetStatusEvent", func(t *testing.T) {
		originalEvent := &shared.RequestStatusEvent{
			RequestID:     uuid.New(),
			ContractID:    uuid.New(),
			Status:        "FULLY_FUNDED",
			CorrelationID: "corr-2",
			Timestamp:     time.Now().Truncate(time.Millisecond), // Truncate for consistent comparison
		}
		payload, err := json.Marshal(originalEvent)
		require.NoError(t, err)

		msg := &Message{Payload: payload}
		decodedEvent, err := msg.GetStatusEvent()

		require.NoError(t, err)
		require.NotNil(t, decodedEvent)
		assert.Equal(t, originalEvent.RequestID, decodedEvent.RequestID)
		assert.Equal(t, originalEvent.ContractID, decodedEvent.ContractID)
		assert.Equal(t, originalEvent.Status, decodedEvent.Status)
		assert.Equal(t, originalEvent.CorrelationID, decodedEvent.CorrelationID)
		assert.True(t, originalEvent.Timestamp.Equal(decodedEvent.Timestamp), "Timestamp should match")
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		msg := &Message{Payload: []byte("{invalid")}

		decodedEvent, err := msg.GetStatusEvent()

		require.Error(t, err)
		assert.Nil(t, decodedEvent)
	})
}
