package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.GatewayClient against the Paystack REST API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a Paystack API client.
func NewClient(cfg config.GatewayConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		secretKey:  cfg.SecretKey,
		httpClient: httpClient,
		log:        log,
	}
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}

// Initialize creates a hosted checkout session for a deposit.
func (c *Client) Initialize(ctx context.Context, req ports.GatewayInitRequest) (*ports.GatewayAuthorization, error) {
	body := initializeRequest{
		Email:       req.Email,
		Amount:      req.Amount,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	var out initializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("gateway initialize rejected: %s", out.Message)
	}

	return &ports.GatewayAuthorization{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		Reference:        out.Data.Reference,
	}, nil
}

// Verify fetches the gateway's authoritative view of a transaction.
func (c *Client) Verify(ctx context.Context, reference string) (*ports.GatewayVerification, error) {
	var out verifyResponse
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("gateway verify rejected: %s", out.Message)
	}

	return &ports.GatewayVerification{
		Status:    out.Data.Status,
		Reference: out.Data.Reference,
		Amount:    out.Data.Amount,
		PaidAt:    out.Data.PaidAt,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("gateway returned non-2xx response")
		return fmt.Errorf("gateway responded %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
