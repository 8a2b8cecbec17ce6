package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/peerfund-funding-orchestrator/internal/config"
	"github.com/peerfund-funding-orchestrator/internal/domain/profile"
)

// ProfileClient implements profile.Lookup over the profile service's HTTP API
type ProfileClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewProfileClient creates a profile service client from configuration
func NewProfileClient(logger *slog.Logger, cfg *config.ProfileServiceConfig) *ProfileClient {
	return &ProfileClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type profileResponse struct {
	ProfileID uuid.UUID `json:"profile_id"`
	WalletID  string    `json:"wallet_id"`
}

// GetWalletID resolves a profile id to its wallet address
func (c *ProfileClient) GetWalletID(ctx context.Context, profileID uuid.UUID) (string, error) {
	url := fmt.Sprintf("%s/api/v1/profiles/%s", c.baseURL, profileID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Profile lookup request failed",
			"profile_id", profileID.String(),
			"error", err,
		)
		return "", fmt.Errorf("profile lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var pr profileResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return "", fmt.Errorf("failed to decode profile response: %w", err)
		}
		if pr.WalletID == "" {
			return "", fmt.Errorf("profile %s has no wallet id", profileID)
		}
		return pr.WalletID, nil

	case resp.StatusCode == http.StatusNotFound:
		return "", profile.ErrProfileNotFound{ProfileID: profileID}

	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("profile service returned status %d: %s", resp.StatusCode, string(respBody))
	}
}
