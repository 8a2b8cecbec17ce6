package shared

// OutboxStatus defines request-status message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// FailureReason defines repayment-event failure categories recorded in the
// movement ledger
type FailureReason string

const (
	FailureReasonContractNotFound  FailureReason = "CONTRACT_NOT_FOUND"
	FailureReasonInvalidAmount     FailureReason = "INVALID_AMOUNT"
	FailureReasonAmountMismatch    FailureReason = "AMOUNT_MISMATCH"
	FailureReasonContractNotFunded FailureReason = "CONTRACT_NOT_FULLY_FUNDED"
	FailureReasonMissingReference  FailureReason = "MISSING_REFERENCE"
	FailureReasonUnknownError      FailureReason = "UNKNOWN_ERROR"
)
