// Package wallet defines the orchestrator's contract with the external
// wallet/transfer service. A transfer is atomic at the gateway's level; the
// orchestrator never splits or retries one internally.
package wallet

import (
	"context"
	"time"
)

// Confirmation is the gateway's receipt for a completed transfer
type Confirmation struct {
	TransferID  string    `json:"transfer_id"`
	FromWallet  string    `json:"from_wallet"`
	ToWallet    string    `json:"to_wallet"`
	Amount      int64     `json:"amount"`
	CompletedAt time.Time `json:"completed_at"`
}

// TransferGateway executes value transfers between wallet addresses
type TransferGateway interface {
	Transfer(ctx context.Context, fromWallet, toWallet string, amount int64) (*Confirmation, error)
}

// ErrTransferRejected is a definitive gateway rejection, as opposed to a
// timeout (context.DeadlineExceeded), which callers may retry
type ErrTransferRejected struct {
	FromWallet string
	ToWallet   string
	Reason     string
}

func (e ErrTransferRejected) Error() string {
	return "transfer rejected from " + e.FromWallet + " to " + e.ToWallet + ": " + e.Reason
}
