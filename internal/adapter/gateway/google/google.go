package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	authEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint    = "https://oauth2.googleapis.com/token"
	userinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider implements ports.IdentityProvider using Google's OAuth 2.0
// authorization-code flow.
type Provider struct {
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string
	userinfoURL  string
	httpClient   HTTPClient
	log          zerolog.Logger
}

// NewProvider creates a Google identity provider.
func NewProvider(cfg config.GoogleConfig, httpClient HTTPClient, log zerolog.Logger) *Provider {
	return &Provider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		tokenURL:     tokenEndpoint,
		userinfoURL:  userinfoEndpoint,
		httpClient:   httpClient,
		log:          log,
	}
}

// AuthURL builds the consent URL the client is redirected to.
func (p *Provider) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", p.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return authEndpoint + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userinfoResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange trades an authorization code for the subject's profile.
func (p *Provider) Exchange(ctx context.Context, code string) (*ports.Identity, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("redirect_uri", p.redirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token tokenResponse
	if err := p.doJSON(req, &token); err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	infoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	infoReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var info userinfoResponse
	if err := p.doJSON(infoReq, &info); err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}

	return &ports.Identity{
		SubjectID: info.ID,
		Email:     info.Email,
		Name:      info.Name,
	}, nil
}

func (p *Provider) doJSON(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.Warn().Int("status", resp.StatusCode).Msg("identity provider returned non-2xx response")
		return fmt.Errorf("provider responded %d: %s", resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}
