package ports

import (
	"context"
	"errors"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Sentinel errors returned by repository balance operations so services can
// distinguish a missing wallet from an overdraw without re-querying.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx participate in an outer transaction.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByWalletNumber(ctx context.Context, walletNumber string) (*domain.Wallet, error)
	// AdjustBalance applies delta to the wallet balance atomically, rejecting
	// any adjustment that would take the balance below zero. Returns the new
	// balance, ErrWalletNotFound, or ErrInsufficientBalance.
	AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) (int64, error)
}

// TransactionRepository defines persistence operations for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	CreatePending(ctx context.Context, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	ListByUser(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	// TransitionStatus moves a transaction from one status to another only if
	// it is still in the expected status. Returns false when the row was not
	// in the expected status (already transitioned by a concurrent caller).
	TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error)
}

// TransactionListParams holds filter + pagination for listing a user's transactions.
type TransactionListParams struct {
	UserID   uuid.UUID
	Status   *domain.TransactionStatus
	Type     *domain.TransactionType
	Page     int
	PageSize int
}

// APIKeyRepository defines persistence operations for API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error)
	GetByDigest(ctx context.Context, digest string) (*domain.APIKey, error)
	// CountActive counts non-revoked, non-expired keys owned by the user.
	CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
