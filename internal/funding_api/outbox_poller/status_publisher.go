package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/peerfund-funding-orchestrator/internal/domain/outbox"
	"github.com/peerfund-funding-orchestrator/internal/domain/request"
	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
)

// StatusPublisher delivers a pending outbox message to the request service
type StatusPublisher interface {
	PublishStatus(ctx context.Context, message *outbox.Message) error
}

// StatusPublisherImpl implements StatusPublisher
type StatusPublisherImpl struct {
	outboxRepo     outbox.Repository
	requestUpdater request.StatusUpdater
	logger         *slog.Logger
}

// NewStatusPublisher creates a new publisher
func NewStatusPublisher(
	outboxRepo outbox.Repository,
	requestUpdater request.StatusUpdater,
	logger *slog.Logger,
) StatusPublisher {
	return &StatusPublisherImpl{
		outboxRepo:     outboxRepo,
		requestUpdater: requestUpdater,
		logger:         logger,
	}
}

// PublishStatus delivers the status event carried by an outbox message and
// marks the message processed. Messages with unreadable payloads are marked
// FAILED_TO_PUBLISH rather than retried forever.
func (p *StatusPublisherImpl) PublishStatus(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetStatusEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal status event from outbox payload",
			"outbox_id", message.ID, "request_id", message.RequestID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Attempting to publish outbox status update", "outbox_id", message.ID, "request_id", message.RequestID, "status", event.Status)

	if err := p.requestUpdater.UpdateStatus(ctx, event); err != nil {
		logger.Error("Failed to publish status update", "outbox_id", message.ID, "request_id", message.RequestID, "error", err)
		return fmt.Errorf("failed to publish status update for request %s: %w", message.RequestID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "request_id", message.RequestID, "error", err,
		)
		return fmt.Errorf("status update for %s published, but failed to mark outbox %d as PROCESSED: %w", message.RequestID, message.ID, err)
	}

	logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID, "request_id", message.RequestID)
	return nil
}
