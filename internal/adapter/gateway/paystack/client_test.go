package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	cfg := config.GatewayConfig{
		BaseURL:   serverURL,
		SecretKey: "sk_test_secret",
	}
	return NewClient(cfg, http.DefaultClient, zerolog.Nop())
}

func TestClient_Initialize(t *testing.T) {
	var gotAuth string
	var gotBody initializeRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code": "abc123",
				"reference": "DEP_1700000000000_abcdef0123456789"
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	auth, err := client.Initialize(context.Background(), ports.GatewayInitRequest{
		Email:       "user_1@wallet.com",
		Amount:      500000,
		Reference:   "DEP_1700000000000_abcdef0123456789",
		CallbackURL: "http://localhost:8080/api/v1/wallet/deposit/callback",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_test_secret", gotAuth)
	assert.Equal(t, int64(500000), gotBody.Amount)
	assert.Equal(t, "DEP_1700000000000_abcdef0123456789", gotBody.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc123", auth.AuthorizationURL)
	assert.Equal(t, "abc123", auth.AccessCode)
}

func TestClient_Initialize_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": false, "message": "Invalid amount"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Initialize(context.Background(), ports.GatewayInitRequest{Amount: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid amount")
}

func TestClient_Verify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/transaction/verify/DEP_ref", r.URL.Path)

		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"status": "success",
				"reference": "DEP_ref",
				"amount": 500000,
				"paid_at": "2024-01-15T10:30:00.000Z"
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	v, err := client.Verify(context.Background(), "DEP_ref")
	require.NoError(t, err)
	assert.Equal(t, "success", v.Status)
	assert.Equal(t, int64(500000), v.Amount)
}

func TestClient_Verify_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Verify(context.Background(), "DEP_ref")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
