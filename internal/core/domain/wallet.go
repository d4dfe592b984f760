package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's balance. Exactly one wallet exists per user, created
// lazily the first time the identity is resolved without one.
//
// Balance is a non-negative integer in base currency units; the store-level
// guarded adjustment keeps it from ever being observed negative.
// WalletNumber is globally unique, assigned once at creation and never
// derived from the owning identity.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	WalletNumber string    `json:"wallet_number"`
	Balance      int64     `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewWallet constructs a fully initialized wallet for the given owner.
// The caller supplies a wallet number from the collision-checked generator;
// no field is left for a persistence hook to fill in later.
func NewWallet(userID uuid.UUID, walletNumber string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:           uuid.New(),
		UserID:       userID,
		WalletNumber: walletNumber,
		Balance:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
