// Package request defines the orchestrator's contract with the external
// request-for-funding service.
package request

import (
	"context"

	"github.com/peerfund-funding-orchestrator/internal/domain/shared"
)

// Statuses the orchestrator reports back to the request-for-funding service
const (
	StatusPartiallyFunded = "PARTIALLY_FUNDED"
	StatusFullyFunded     = "FULLY_FUNDED"
	StatusFundsDisbursed  = "FUNDS_DISBURSED"
)

// StatusUpdater pushes aggregate funding status changes back to the
// originating request-for-funding
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, event *shared.RequestStatusEvent) error
}
