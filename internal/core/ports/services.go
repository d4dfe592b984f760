package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// TokenClaims carries the identity embedded in a session token.
type TokenClaims struct {
	UserID       uuid.UUID
	WalletID     uuid.UUID
	WalletNumber string
}

// TokenService issues and validates session tokens.
type TokenService interface {
	Generate(userID, walletID uuid.UUID, walletNumber string) (string, time.Time, error)
	Validate(token string) (*TokenClaims, error)
}

// Identity is the profile returned by an external identity provider.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
}

// IdentityProvider handles the OAuth authorization-code flow.
type IdentityProvider interface {
	// AuthURL builds the provider consent URL for the given state token.
	AuthURL(state string) string
	// Exchange trades an authorization code for the subject's profile.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// SignatureVerifier authenticates raw webhook payloads.
type SignatureVerifier interface {
	Verify(payload []byte, signature string) bool
}

// GatewayInitRequest describes a charge to initialize with the payment gateway.
type GatewayInitRequest struct {
	Email       string
	Amount      int64 // minor units
	Reference   string
	CallbackURL string
	Metadata    map[string]string
}

// GatewayAuthorization is the gateway's response to a charge initialization.
type GatewayAuthorization struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// GatewayVerification is the gateway's view of a transaction.
type GatewayVerification struct {
	Status    string
	Reference string
	Amount    int64 // minor units
	PaidAt    string
}

// GatewayClient talks to the external payment gateway.
type GatewayClient interface {
	Initialize(ctx context.Context, req GatewayInitRequest) (*GatewayAuthorization, error)
	Verify(ctx context.Context, reference string) (*GatewayVerification, error)
}

// SettlementCache records settled deposit references for fast webhook
// replay detection. Get returns ("", nil) on a cache miss.
type SettlementCache interface {
	Get(ctx context.Context, reference string) (string, error)
	Set(ctx context.Context, reference, status string, ttl time.Duration) error
}

// AuthService resolves credentials into a caller and runs the sign-in flow.
type AuthService interface {
	// Authenticate resolves a bearer token or API key into a caller.
	// Exactly one of the credentials is expected; bearer wins if both are set.
	Authenticate(ctx context.Context, bearer, apiKey string) (*domain.Caller, error)
	// SignInURL builds the identity provider consent URL.
	SignInURL(state string) string
	// CompleteSignIn exchanges the provider code, provisions the user and
	// wallet on first sign-in, and issues a session token.
	CompleteSignIn(ctx context.Context, code string) (*SignInResult, error)
}

// SignInResult is the outcome of a completed sign-in.
type SignInResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
	Wallet    *WalletView  `json:"wallet"`
}

// WalletView is the external representation of a wallet.
type WalletView struct {
	ID           uuid.UUID `json:"id"`
	WalletNumber string    `json:"walletNumber"`
	Balance      int64     `json:"balance"`
}

// TransferResult summarizes a completed wallet-to-wallet transfer.
type TransferResult struct {
	TransactionID uuid.UUID `json:"transactionId"`
	Amount        int64     `json:"amount"`
	Recipient     string    `json:"recipient"`
	Balance       int64     `json:"balance"`
}

// TransactionPage is one page of a wallet's ledger history.
type TransactionPage struct {
	Transactions []domain.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"pageSize"`
}

// WalletService covers balance reads, history, and transfers.
type WalletService interface {
	GetBalance(ctx context.Context, caller *domain.Caller) (*WalletView, error)
	ListTransactions(ctx context.Context, caller *domain.Caller, page, pageSize int) (*TransactionPage, error)
	Transfer(ctx context.Context, caller *domain.Caller, recipientWalletNumber string, amount int64) (*TransferResult, error)
}

// DepositInitResult is the outcome of initializing a deposit.
type DepositInitResult struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

// DepositStatusResult reports a deposit's ledger state and, when reachable,
// the gateway's view of it.
type DepositStatusResult struct {
	Reference     string                   `json:"reference"`
	Status        domain.TransactionStatus `json:"status"`
	Amount        int64                    `json:"amount"`
	GatewayStatus string                   `json:"gatewayStatus,omitempty"`
}

// DepositService covers deposit initialization, verification, and settlement.
type DepositService interface {
	Initiate(ctx context.Context, caller *domain.Caller, amount int64, origin string) (*DepositInitResult, error)
	Status(ctx context.Context, caller *domain.Caller, reference string) (*DepositStatusResult, error)
	// HandleWebhook authenticates and settles a raw gateway event. Only
	// signature failures surface as errors; processing failures are absorbed
	// so the gateway does not retry a delivered event.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) error
	// ConfirmCallback marks a deposit failed when the gateway redirect
	// reports an unsuccessful charge. It never credits.
	ConfirmCallback(ctx context.Context, reference string) (*DepositStatusResult, error)
}

// CreatedKey is a freshly issued API key. Secret is shown exactly once.
type CreatedKey struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Secret      string              `json:"secret"`
	Permissions []domain.Permission `json:"permissions"`
	ExpiresAt   time.Time           `json:"expiresAt"`
}

// APIKeyService manages programmatic credentials.
type APIKeyService interface {
	Create(ctx context.Context, caller *domain.Caller, name string, permissions []domain.Permission, expiry string) (*CreatedKey, error)
	Rollover(ctx context.Context, caller *domain.Caller, keyID uuid.UUID, expiry string) (*CreatedKey, error)
}
