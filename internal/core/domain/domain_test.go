package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status TransactionStatus
		want   bool
	}{
		{"pending", TransactionStatusPending, false},
		{"success", TransactionStatusSuccess, true},
		{"failed", TransactionStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Status: tt.status}
			assert.Equal(t, tt.want, tx.IsTerminal())
		})
	}
}

func TestAPIKey_IsUsable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		revoked   bool
		expiresAt time.Time
		want      bool
	}{
		{"valid key", false, now.Add(time.Hour), true},
		{"revoked key", true, now.Add(time.Hour), false},
		{"expired key", false, now.Add(-time.Hour), false},
		{"revoked and expired", true, now.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := &APIKey{Revoked: tt.revoked, ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, k.IsUsable(now))
		})
	}
}

func TestCaller_Can(t *testing.T) {
	tests := []struct {
		name        string
		kind        CallerKind
		permissions []Permission
		check       Permission
		want        bool
	}{
		{"user holds every permission", CallerKindUser, nil, PermissionTransfer, true},
		{"service with grant", CallerKindService, []Permission{PermissionRead, PermissionDeposit}, PermissionDeposit, true},
		{"service without grant", CallerKindService, []Permission{PermissionRead}, PermissionTransfer, false},
		{"service with empty set", CallerKindService, nil, PermissionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Caller{Kind: tt.kind, Permissions: tt.permissions}
			assert.Equal(t, tt.want, c.Can(tt.check))
		})
	}
}

func TestValidPermission(t *testing.T) {
	assert.True(t, ValidPermission(PermissionRead))
	assert.True(t, ValidPermission(PermissionDeposit))
	assert.True(t, ValidPermission(PermissionTransfer))
	assert.False(t, ValidPermission(Permission("admin")))
}

func TestNewWallet(t *testing.T) {
	userID := uuid.New()
	w := NewWallet(userID, "4561234567890")

	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.Equal(t, userID, w.UserID)
	assert.Equal(t, "4561234567890", w.WalletNumber)
	assert.Zero(t, w.Balance)
	assert.False(t, w.CreatedAt.IsZero())
}
