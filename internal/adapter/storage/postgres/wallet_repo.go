package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet within a database transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, wallet_number, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.UserID, w.WalletNumber, w.Balance, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID.
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, user_id, wallet_number, balance, created_at, updated_at
		FROM wallets WHERE id = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByUserID fetches a user's wallet.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, user_id, wallet_number, balance, created_at, updated_at
		FROM wallets WHERE user_id = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, userID))
}

// GetByWalletNumber fetches a wallet by its public wallet number.
func (r *WalletRepo) GetByWalletNumber(ctx context.Context, walletNumber string) (*domain.Wallet, error) {
	query := `SELECT id, user_id, wallet_number, balance, created_at, updated_at
		FROM wallets WHERE wallet_number = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, walletNumber))
}

// AdjustBalance applies delta to the wallet balance in a single guarded
// UPDATE. The balance check and the write happen in one statement, so
// concurrent adjustments serialize on the row lock and the balance can
// never go negative.
func (r *WalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) (int64, error) {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance`

	var balance int64
	err := tx.QueryRow(ctx, query, delta, walletID).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("adjust wallet balance: %w", err)
	}

	// No row updated: either the wallet is missing or the guard rejected
	// an overdraw. Probe existence to tell the two apart.
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, walletID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check wallet exists: %w", err)
	}
	if !exists {
		return 0, ports.ErrWalletNotFound
	}
	return 0, ports.ErrInsufficientBalance
}

func (r *WalletRepo) scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.UserID, &w.WalletNumber, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
