package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"wallet-ledger/config"
	paystackGateway "wallet-ledger/internal/adapter/gateway/paystack"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gatewaySecret = "test-gateway-secret"

// stubProvider satisfies ports.IdentityProvider without talking to Google.
// The code passed to Exchange becomes the stable subject id, so each distinct
// code provisions a distinct user.
type stubProvider struct{}

func (stubProvider) AuthURL(state string) string {
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state
}

func (stubProvider) Exchange(ctx context.Context, code string) (*ports.Identity, error) {
	return &ports.Identity{
		SubjectID: "google-" + code,
		Email:     code + "@example.com",
		Name:      "User " + code,
	}, nil
}

// fakePaystack mimics the gateway REST API: initialize echoes the reference,
// verify serves whatever state the test configured for it.
type fakePaystack struct {
	mu       sync.Mutex
	verifies map[string]struct {
		status string
		amount int64
	}
}

func newFakePaystack() *fakePaystack {
	return &fakePaystack{verifies: make(map[string]struct {
		status string
		amount int64
	})}
}

func (f *fakePaystack) setVerify(reference, status string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifies[reference] = struct {
		status string
		amount int64
	}{status, amount}
}

func (f *fakePaystack) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/transaction/initialize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reference string `json:"reference"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/" + req.Reference,
				"access_code":       "ac_" + req.Reference,
				"reference":         req.Reference,
			},
		})
	})
	mux.HandleFunc("/transaction/verify/", func(w http.ResponseWriter, r *http.Request) {
		reference := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
		f.mu.Lock()
		v, ok := f.verifies[reference]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Transaction reference not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    v.status,
				"reference": reference,
				"amount":    v.amount,
				"paid_at":   "2026-01-02T15:04:05.000Z",
			},
		})
	})
	return mux
}

// testApp wires the real HTTP layer, services, and Redis stores over
// in-memory repositories, a miniredis instance, and a fake gateway.
type testApp struct {
	server     *httptest.Server
	redis      *miniredis.Miniredis
	gatewaySrv *httptest.Server
	gateway    *fakePaystack
	walletRepo *inMemoryWalletRepo
	txRepo     *inMemoryTransactionRepo
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	fake := newFakePaystack()
	gatewaySrv := httptest.NewServer(fake.handler())

	log := logger.New("debug", false)

	userRepo := newInMemoryUserRepo()
	walletRepo := newInMemoryWalletRepo()
	txRepo := newInMemoryTransactionRepo()
	apiKeyRepo := newInMemoryAPIKeyRepo()
	transactor := newInMemoryTransactor()

	settlementCache := redisStorage.NewSettlementCache(rdb)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")
	verifier := service.NewHMACSignatureService(gatewaySecret)
	gateway := paystackGateway.NewClient(config.GatewayConfig{
		BaseURL:   gatewaySrv.URL,
		SecretKey: gatewaySecret,
		Timeout:   5 * time.Second,
	}, http.DefaultClient, log)

	authSvc := service.NewAuthService(userRepo, walletRepo, apiKeyRepo, transactor, tokenSvc, stubProvider{}, log)
	walletSvc := service.NewWalletService(walletRepo, txRepo, transactor, log)
	depositSvc := service.NewDepositService(txRepo, walletRepo, transactor, gateway, verifier, settlementCache,
		"http://localhost", log)
	apiKeySvc := service.NewAPIKeyService(apiKeyRepo, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		DepositSvc:     depositSvc,
		APIKeySvc:      apiKeySvc,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server:     server,
		redis:      mr,
		gatewaySrv: gatewaySrv,
		gateway:    fake,
		walletRepo: walletRepo,
		txRepo:     txRepo,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.gatewaySrv.Close()
	a.redis.Close()
}

type session struct {
	token        string
	walletID     uuid.UUID
	walletNumber string
}

// signIn completes the OAuth callback with the given code, provisioning the
// user and wallet on first use.
func (a *testApp) signIn(t *testing.T, code string) session {
	t.Helper()
	resp, err := http.Get(a.server.URL + "/api/v1/auth/google/callback?code=" + code)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Token  string `json:"token"`
			Wallet struct {
				ID           uuid.UUID `json:"id"`
				WalletNumber string    `json:"walletNumber"`
			} `json:"wallet"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Data.Token)
	return session{
		token:        body.Data.Token,
		walletID:     body.Data.Wallet.ID,
		walletNumber: body.Data.Wallet.WalletNumber,
	}
}

func (a *testApp) do(t *testing.T, method, path, token string, payload any, headers map[string]string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Data
}

// seedBalance credits a wallet directly in the store, bypassing the deposit
// flow, to set up preconditions.
func (a *testApp) seedBalance(t *testing.T, walletID uuid.UUID, amount int64) {
	t.Helper()
	_, err := a.walletRepo.AdjustBalance(context.Background(), &noopTx{}, walletID, amount)
	require.NoError(t, err)
}

func (a *testApp) balance(t *testing.T, walletID uuid.UUID) int64 {
	t.Helper()
	w, err := a.walletRepo.GetByID(context.Background(), walletID)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w.Balance
}

func signWebhook(body []byte) string {
	mac := hmac.New(sha512.New, []byte(gatewaySecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func chargeSuccessBody(reference string, amountMinor int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"charge.success","data":{"reference":"%s","amount":%d,"status":"success"}}`,
		reference, amountMinor,
	))
}

// postWebhook delivers a gateway event with the given signature.
func (a *testApp) postWebhook(t *testing.T, body []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/v1/wallet/paystack/webhook", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("x-paystack-signature", signature)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_SignInProvisionsWalletOnce(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	first := app.signIn(t, "alice")
	again := app.signIn(t, "alice")

	assert.Equal(t, first.walletNumber, again.walletNumber)
	assert.True(t, strings.HasPrefix(first.walletNumber, "456"))
	assert.Len(t, first.walletNumber, 13)
	assert.Equal(t, int64(0), app.balance(t, first.walletID))
}

func TestIntegration_TransferMovesFunds(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")
	bob := app.signIn(t, "bob")
	app.seedBalance(t, alice.walletID, 10000)
	app.seedBalance(t, bob.walletID, 500)

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/transfer", alice.token,
		map[string]any{"wallet_number": bob.walletNumber, "amount": 3000}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, float64(7000), data["balance"])

	assert.Equal(t, int64(7000), app.balance(t, alice.walletID))
	assert.Equal(t, int64(3500), app.balance(t, bob.walletID))
}

func TestIntegration_TransferInsufficientFundsIsNoOp(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")
	bob := app.signIn(t, "bob")
	app.seedBalance(t, alice.walletID, 2000)

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/transfer", alice.token,
		map[string]any{"wallet_number": bob.walletNumber, "amount": 5000}, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, int64(2000), app.balance(t, alice.walletID))
	assert.Equal(t, int64(0), app.balance(t, bob.walletID))
}

func TestIntegration_SelfTransferRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")
	app.seedBalance(t, alice.walletID, 1000)

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/transfer", alice.token,
		map[string]any{"wallet_number": alice.walletNumber, "amount": 100}, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int64(1000), app.balance(t, alice.walletID))
}

func TestIntegration_DepositSettlesThroughWebhook(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/deposit", alice.token,
		map[string]any{"amount": 5000}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	reference := data["reference"].(string)
	assert.Contains(t, data["authorizationUrl"], reference)

	// Ledger entry is pending, wallet untouched.
	assert.Equal(t, int64(0), app.balance(t, alice.walletID))

	body := chargeSuccessBody(reference, 5000*100)
	wresp := app.postWebhook(t, body, signWebhook(body))
	wresp.Body.Close()
	require.Equal(t, http.StatusOK, wresp.StatusCode)

	assert.Equal(t, int64(5000), app.balance(t, alice.walletID))

	// Redelivery of the same event is acknowledged but credits nothing.
	wresp = app.postWebhook(t, body, signWebhook(body))
	wresp.Body.Close()
	require.Equal(t, http.StatusOK, wresp.StatusCode)
	assert.Equal(t, int64(5000), app.balance(t, alice.walletID))
}

func TestIntegration_WebhookSignaturePolicy(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	body := chargeSuccessBody("DEP_unknown", 1000)

	resp := app.postWebhook(t, body, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.postWebhook(t, body, "deadbeef")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Valid signature over an unknown reference is absorbed and acked.
	resp = app.postWebhook(t, body, signWebhook(body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_WebhookAmountMismatchNeverCredits(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/deposit", alice.token,
		map[string]any{"amount": 5000}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reference := decodeData(t, resp)["reference"].(string)

	// Gateway reports 50 minor units more than the pending entry: even a
	// sub-unit discrepancy fails the deposit instead of crediting.
	body := chargeSuccessBody(reference, 500050)
	wresp := app.postWebhook(t, body, signWebhook(body))
	wresp.Body.Close()
	require.Equal(t, http.StatusOK, wresp.StatusCode)

	assert.Equal(t, int64(0), app.balance(t, alice.walletID))

	txn, err := app.txRepo.GetByReference(context.Background(), reference)
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, "failed", string(txn.Status))
}

func TestIntegration_DepositStatusNeverCredits(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/deposit", alice.token,
		map[string]any{"amount": 2500}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reference := decodeData(t, resp)["reference"].(string)

	// Gateway already sees the charge as successful.
	app.gateway.setVerify(reference, "success", 2500*100)

	sresp := app.do(t, http.MethodGet, "/api/v1/wallet/deposit/"+reference+"/status", alice.token, nil, nil)
	require.Equal(t, http.StatusOK, sresp.StatusCode)
	data := decodeData(t, sresp)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "success", data["gatewayStatus"])

	// Only the webhook settles.
	assert.Equal(t, int64(0), app.balance(t, alice.walletID))
}

func TestIntegration_CallbackMarksFailedCharge(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/deposit", alice.token,
		map[string]any{"amount": 2500}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reference := decodeData(t, resp)["reference"].(string)

	app.gateway.setVerify(reference, "abandoned", 2500*100)

	cresp, err := http.Get(app.server.URL + "/api/v1/wallet/deposit/callback?reference=" + reference)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, cresp.StatusCode)
	data := decodeData(t, cresp)
	assert.Equal(t, "failed", data["status"])

	assert.Equal(t, int64(0), app.balance(t, alice.walletID))
}

func TestIntegration_CallbackLeavesProcessingChargePending(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")

	resp := app.do(t, http.MethodPost, "/api/v1/wallet/deposit", alice.token,
		map[string]any{"amount": 2500}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reference := decodeData(t, resp)["reference"].(string)

	// The charge is still processing when the browser comes back.
	app.gateway.setVerify(reference, "pending", 2500*100)

	cresp, err := http.Get(app.server.URL + "/api/v1/wallet/deposit/callback?reference=" + reference)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, cresp.StatusCode)
	data := decodeData(t, cresp)
	assert.Equal(t, "pending", data["status"])

	// The webhook that arrives after the redirect still settles the deposit.
	body := chargeSuccessBody(reference, 2500*100)
	wresp := app.postWebhook(t, body, signWebhook(body))
	wresp.Body.Close()
	require.Equal(t, http.StatusOK, wresp.StatusCode)

	assert.Equal(t, int64(2500), app.balance(t, alice.walletID))
}

func TestIntegration_APIKeyLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")
	bob := app.signIn(t, "bob")
	app.seedBalance(t, alice.walletID, 1000)

	resp := app.do(t, http.MethodPost, "/api/v1/keys", alice.token, map[string]any{
		"name":        "read only bot",
		"permissions": []string{"read"},
		"expires_in":  "1M",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	secret := decodeData(t, resp)["secret"].(string)
	require.True(t, strings.HasPrefix(secret, "sk_live_"))

	// The key can read the owner's balance.
	bresp := app.do(t, http.MethodGet, "/api/v1/wallet/balance", "", nil, map[string]string{"X-API-Key": secret})
	require.Equal(t, http.StatusOK, bresp.StatusCode)
	assert.Equal(t, float64(1000), decodeData(t, bresp)["balance"])

	// But it cannot transfer without the transfer grant.
	tresp := app.do(t, http.MethodPost, "/api/v1/wallet/transfer", "",
		map[string]any{"wallet_number": bob.walletNumber, "amount": 100},
		map[string]string{"X-API-Key": secret})
	tresp.Body.Close()
	assert.Equal(t, http.StatusForbidden, tresp.StatusCode)

	// And it cannot mint more keys.
	kresp := app.do(t, http.MethodPost, "/api/v1/keys", "", map[string]any{
		"name":        "escalation attempt",
		"permissions": []string{"read"},
		"expires_in":  "1D",
	}, map[string]string{"X-API-Key": secret})
	kresp.Body.Close()
	assert.Equal(t, http.StatusForbidden, kresp.StatusCode)
}

func TestIntegration_APIKeyLimit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")

	for i := 0; i < 5; i++ {
		resp := app.do(t, http.MethodPost, "/api/v1/keys", alice.token, map[string]any{
			"name":        fmt.Sprintf("bot %d", i),
			"permissions": []string{"read"},
			"expires_in":  "1D",
		}, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := app.do(t, http.MethodPost, "/api/v1/keys", alice.token, map[string]any{
		"name":        "one too many",
		"permissions": []string{"read"},
		"expires_in":  "1D",
	}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_UnauthenticatedRequestsRejected(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/api/v1/wallet/balance")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	r := app.do(t, http.MethodGet, "/api/v1/wallet/balance", "not-a-jwt", nil, nil)
	r.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, r.StatusCode)
}

func TestIntegration_TransactionHistory(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := app.signIn(t, "alice")
	bob := app.signIn(t, "bob")
	app.seedBalance(t, alice.walletID, 10000)

	for i := 0; i < 3; i++ {
		resp := app.do(t, http.MethodPost, "/api/v1/wallet/transfer", alice.token,
			map[string]any{"wallet_number": bob.walletNumber, "amount": 100}, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := app.do(t, http.MethodGet, "/api/v1/wallet/transactions?page=1&limit=2", alice.token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var body struct {
		Data struct {
			Transactions []map[string]any `json:"transactions"`
			Total        int64            `json:"total"`
			Page         int              `json:"page"`
			PageSize     int              `json:"pageSize"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(3), body.Data.Total)
	assert.Len(t, body.Data.Transactions, 2)

	// Bob sees the mirrored credit entries only.
	bresp := app.do(t, http.MethodGet, "/api/v1/wallet/transactions", bob.token, nil, nil)
	require.Equal(t, http.StatusOK, bresp.StatusCode)
	defer bresp.Body.Close()
	var bobBody struct {
		Data struct {
			Transactions []map[string]any `json:"transactions"`
			Total        int64            `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(bresp.Body).Decode(&bobBody))
	assert.Equal(t, int64(3), bobBody.Data.Total)
	for _, txn := range bobBody.Data.Transactions {
		assert.Equal(t, "credit", txn["type"])
		assert.Equal(t, float64(100), txn["amount"])
	}
}
