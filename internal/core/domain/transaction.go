package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of balance-affecting event.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeTransfer TransactionType = "transfer"
	TransactionTypeCredit   TransactionType = "credit"
)

// TransactionStatus represents the lifecycle state of a ledger entry.
// A deposit starts pending and moves to exactly one terminal state.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Transaction is an immutable ledger entry. Amount is signed: negative for
// debits, positive for credits. Reference, when present, is the external
// correlation id for a deposit and doubles as its idempotency key.
//
// The counterparty wallet numbers are structural references for display only;
// they never grant access to the counterparty wallet.
type Transaction struct {
	ID                    uuid.UUID         `json:"id"`
	UserID                uuid.UUID         `json:"user_id"`
	WalletID              uuid.UUID         `json:"wallet_id"`
	Type                  TransactionType   `json:"type"`
	Amount                int64             `json:"amount"`
	Status                TransactionStatus `json:"status"`
	Reference             *string           `json:"reference,omitempty"`
	RecipientWalletNumber string            `json:"recipient_wallet_number"`
	SenderWalletNumber    *string           `json:"sender_wallet_number,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// IsTerminal returns true if the entry has reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}
