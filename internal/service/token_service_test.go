package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "wallet-ledger")
	userID := uuid.New()
	walletID := uuid.New()

	token, expiresAt, err := svc.Generate(userID, walletID, "4561234567890")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, walletID, claims.WalletID)
	assert.Equal(t, "4561234567890", claims.WalletNumber)
}

func TestJWTTokenService_Validate_WrongSecret(t *testing.T) {
	svc := NewJWTTokenService("secret-a", time.Hour, "wallet-ledger")
	other := NewJWTTokenService("secret-b", time.Hour, "wallet-ledger")

	token, _, err := svc.Generate(uuid.New(), uuid.New(), "4561234567890")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_Validate_Expired(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", -time.Minute, "wallet-ledger")

	token, _, err := svc.Generate(uuid.New(), uuid.New(), "4561234567890")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_Validate_Garbage(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "wallet-ledger")

	_, err := svc.Validate("not.a.jwt")
	assert.Error(t, err)
}
