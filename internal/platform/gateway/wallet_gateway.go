// Package gateway holds HTTP clients for the external services the
// orchestrator collaborates with: the wallet/transfer service and the
// investor profile service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/peerfund-funding-orchestrator/internal/config"
	"github.com/peerfund-funding-orchestrator/internal/domain/wallet"
)

// WalletGateway implements wallet.TransferGateway over the wallet service's
// HTTP API
type WalletGateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewWalletGateway creates a wallet gateway client from configuration
func NewWalletGateway(logger *slog.Logger, cfg *config.WalletGatewayConfig) *WalletGateway {
	return &WalletGateway{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type transferRequest struct {
	FromWallet string `json:"from_wallet"`
	ToWallet   string `json:"to_wallet"`
	Amount     int64  `json:"amount"`
}

type transferErrorResponse struct {
	Error string `json:"error"`
}

// Transfer executes a single atomic transfer between two wallets. A 4xx
// response is a definitive rejection; timeouts and 5xx responses are returned
// as plain errors so callers can retry.
func (g *WalletGateway) Transfer(ctx context.Context, fromWallet, toWallet string, amount int64) (*wallet.Confirmation, error) {
	body, err := json.Marshal(transferRequest{
		FromWallet: fromWallet,
		ToWallet:   toWallet,
		Amount:     amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	url := g.baseURL + "/api/v1/transfers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("Wallet transfer request failed",
			"from_wallet", fromWallet,
			"to_wallet", toWallet,
			"error", err,
		)
		return nil, fmt.Errorf("wallet transfer request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var confirmation wallet.Confirmation
		if err := json.NewDecoder(resp.Body).Decode(&confirmation); err != nil {
			return nil, fmt.Errorf("failed to decode transfer confirmation: %w", err)
		}
		g.logger.Debug("Wallet transfer completed",
			"transfer_id", confirmation.TransferID,
			"from_wallet", fromWallet,
			"to_wallet", toWallet,
			"amount", amount,
		)
		return &confirmation, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var errResp transferErrorResponse
		reason := fmt.Sprintf("status %d", resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			reason = errResp.Error
		}
		return nil, wallet.ErrTransferRejected{
			FromWallet: fromWallet,
			ToWallet:   toWallet,
			Reason:     reason,
		}

	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("wallet service returned status %d: %s", resp.StatusCode, string(respBody))
	}
}
