package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultPageSize = 20

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		log:        log,
	}
}

// GetBalance returns the caller's wallet.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, caller *domain.Caller) (*ports.WalletView, error) {
	if !caller.Can(domain.PermissionRead) {
		return nil, apperror.ErrForbidden(string(domain.PermissionRead))
	}

	wallet, err := s.walletRepo.GetByID(ctx, caller.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	return &ports.WalletView{
		ID:           wallet.ID,
		WalletNumber: wallet.WalletNumber,
		Balance:      wallet.Balance,
	}, nil
}

// ListTransactions returns one page of the caller's ledger history.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, caller *domain.Caller, page, pageSize int) (*ports.TransactionPage, error) {
	if !caller.Can(domain.PermissionRead) {
		return nil, apperror.ErrForbidden(string(domain.PermissionRead))
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultPageSize
	}

	txns, total, err := s.txRepo.ListByUser(ctx, ports.TransactionListParams{
		UserID:   caller.UserID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}

	return &ports.TransactionPage{
		Transactions: txns,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
	}, nil
}

// Transfer moves amount from the caller's wallet to the recipient's wallet
// atomically, recording a double-entry pair: a debit on the sender and a
// credit on the recipient. On any failure the whole operation is a no-op.
func (s *WalletServiceImpl) Transfer(ctx context.Context, caller *domain.Caller, recipientWalletNumber string, amount int64) (*ports.TransferResult, error) {
	if !caller.Can(domain.PermissionTransfer) {
		return nil, apperror.ErrForbidden(string(domain.PermissionTransfer))
	}
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if recipientWalletNumber == caller.WalletNumber {
		return nil, apperror.ErrSelfTransfer()
	}

	recipient, err := s.walletRepo.GetByWalletNumber(ctx, recipientWalletNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find recipient: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrRecipientNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	senderBalance, err := s.walletRepo.AdjustBalance(ctx, dbTx, caller.WalletID, -amount)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrInsufficientBalance):
			return nil, apperror.ErrInsufficientFunds()
		case errors.Is(err, ports.ErrWalletNotFound):
			return nil, apperror.ErrWalletNotFound()
		default:
			return nil, apperror.InternalError(fmt.Errorf("debit sender: %w", err))
		}
	}

	if _, err := s.walletRepo.AdjustBalance(ctx, dbTx, recipient.ID, amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit recipient: %w", err))
	}

	now := time.Now().UTC()
	senderNumber := caller.WalletNumber

	debit := &domain.Transaction{
		ID:                    uuid.New(),
		UserID:                caller.UserID,
		WalletID:              caller.WalletID,
		Type:                  domain.TransactionTypeTransfer,
		Amount:                -amount,
		Status:                domain.TransactionStatusSuccess,
		RecipientWalletNumber: recipient.WalletNumber,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	credit := &domain.Transaction{
		ID:                    uuid.New(),
		UserID:                recipient.UserID,
		WalletID:              recipient.ID,
		Type:                  domain.TransactionTypeCredit,
		Amount:                amount,
		Status:                domain.TransactionStatusSuccess,
		RecipientWalletNumber: recipient.WalletNumber,
		SenderWalletNumber:    &senderNumber,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.txRepo.Create(ctx, dbTx, debit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record debit: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, credit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record credit: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("transaction_id", debit.ID.String()).
		Str("recipient", recipient.WalletNumber).
		Int64("amount", amount).
		Msg("transfer completed")

	return &ports.TransferResult{
		TransactionID: debit.ID,
		Amount:        amount,
		Recipient:     recipient.WalletNumber,
		Balance:       senderBalance,
	}, nil
}
