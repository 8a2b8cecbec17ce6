package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerfund-funding-orchestrator/internal/config"
	"github.com/peerfund-funding-orchestrator/internal/domain/profile"
)

func newProfileClient(serverURL string) *ProfileClient {
	return NewProfileClient(slog.Default(), &config.ProfileServiceConfig{
		BaseURL: serverURL,
		Timeout: 5 * time.Second,
	})
}

func TestProfileClient_GetWalletID(t *testing.T) {
	ctx := context.Background()
	profileID := uuid.New()

	t.Run("successful lookup", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/v1/profiles/"+profileID.String(), r.URL.Path)

			_ = json.NewEncoder(w).Encode(profileResponse{
				ProfileID: profileID,
				WalletID:  "wallet-investor-1",
			})
		}))
		defer server.Close()

		client := newProfileClient(server.URL)

		walletID, err := client.GetWalletID(ctx, profileID)

		require.NoError(t, err)
		assert.Equal(t, "wallet-investor-1", walletID)
	})

	t.Run("profile not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newProfileClient(server.URL)

		walletID, err := client.GetWalletID(ctx, profileID)

		assert.Empty(t, walletID)
		assert.ErrorIs(t, err, profile.ErrProfileNotFound{})
	})

	t.Run("profile without wallet", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(profileResponse{ProfileID: profileID})
		}))
		defer server.Close()

		client := newProfileClient(server.URL)

		walletID, err := client.GetWalletID(ctx, profileID)

		assert.Empty(t, walletID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no wallet id")
	})

	t.Run("malformed response body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{invalid"))
		}))
		defer server.Close()

		client := newProfileClient(server.URL)

		_, err := client.GetWalletID(ctx, profileID)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode profile response")
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}))
		defer server.Close()

		client := newProfileClient(server.URL)

		_, err := client.GetWalletID(ctx, profileID)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("unreachable service", func(t *testing.T) {
		client := newProfileClient("http://127.0.0.1:1")

		_, err := client.GetWalletID(ctx, profileID)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "lookup request failed")
	})
}
