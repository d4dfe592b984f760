package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"wallet-ledger/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_AuthURL(t *testing.T) {
	p := NewProvider(config.GoogleConfig{
		ClientID:    "client-id",
		RedirectURI: "http://localhost:8080/api/v1/auth/google/callback",
	}, http.DefaultClient, zerolog.Nop())

	u := p.AuthURL("state-token")
	assert.Contains(t, u, "accounts.google.com")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "state=state-token")
	assert.Contains(t, u, "response_type=code")
}

func TestProvider_Exchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "auth-code", r.Form.Get("code"))
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token": "at-123", "token_type": "Bearer"}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id": "sub-1", "email": "ada@example.com", "name": "Ada"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p := NewProvider(config.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/api/v1/auth/google/callback",
	}, http.DefaultClient, zerolog.Nop())
	p.tokenURL = server.URL + "/token"
	p.userinfoURL = server.URL + "/userinfo"

	identity, err := p.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", identity.SubjectID)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "Ada", identity.Name)
}

func TestProvider_Exchange_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer server.Close()

	p := NewProvider(config.GoogleConfig{}, http.DefaultClient, zerolog.Nop())
	p.tokenURL = server.URL

	_, err := p.Exchange(context.Background(), "bad-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange code")
}
