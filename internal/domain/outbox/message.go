package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
)

// Message stores a request-status event for reliable publishing. The message
// is written in the same storage transaction as the funding it belongs to, so
// a status update is never lost even when the synchronous publish after
// commit fails.
type Message struct {
	ID            int64               `json:"id"`
	RequestID     uuid.UUID           `json:"request_id"`
	ContractID    uuid.UUID           `json:"contract_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *shared.RequestStatusEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		RequestID:  event.RequestID,
		ContractID: event.ContractID,
		Payload:    payload,
		Status:     shared.OutboxStatusPending,
		Attempts:   0,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetStatusEvent extracts the request-status event from the payload
func (m *Message) GetStatusEvent() (*shared.RequestStatusEvent, error) {
	var event shared.RequestStatusEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
