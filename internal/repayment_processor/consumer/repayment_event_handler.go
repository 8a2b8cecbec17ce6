package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
	"github.com/peerfund-funding-orchestrator/internal/platform/messaging/producers"
	"github.com/peerfund-funding-orchestrator/internal/repayment_processor/service"
)

// RepaymentEventHandler handles incoming repayment event messages from Kafka
type RepaymentEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewRepaymentEventHandler creates a new handler
func NewRepaymentEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *RepaymentEventHandler {
	return &RepaymentEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *RepaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.RepaymentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal repayment event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received repayment event for processing",
		"event_id", event.EventID.String(),
		"contract_id", event.ContractID.String(),
		"amount", event.Amount,
		"reference", event.Reference,
	)

	if err := h.processingService.ProcessRepayment(ctx, &event); err != nil {
		logger.Error("Failed to process repayment event",
			"event_id", event.EventID.String(),
			"contract_id", event.ContractID.String(),
			"error", err,
		)
		return fmt.Errorf("processing repayment %s failed: %w", event.EventID.String(), err)
	}

	logger.Info("Successfully processed repayment event", "event_id", event.EventID.String())
	return nil // Success, commit offset
}
