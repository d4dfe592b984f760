package domain

import (
	"time"

	"github.com/google/uuid"
)

// Permission is a coarse-grained capability attached to a service credential.
type Permission string

const (
	PermissionRead     Permission = "read"
	PermissionDeposit  Permission = "deposit"
	PermissionTransfer Permission = "transfer"
)

// ValidPermission reports whether p is one of the known permissions.
func ValidPermission(p Permission) bool {
	return p == PermissionRead || p == PermissionDeposit || p == PermissionTransfer
}

// APIKey is a scoped, expiring, revocable service credential. Only the SHA-256
// digest of the secret is stored; the raw secret is shown once at issuance.
// The record is immutable after creation except for the Revoked flag.
type APIKey struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	Name        string       `json:"name"`
	KeyDigest   string       `json:"-"`
	Permissions []Permission `json:"permissions"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Revoked     bool         `json:"revoked"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsExpired returns true if the key's expiry is in the past.
func (k *APIKey) IsExpired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}

// IsUsable returns true if the key may authenticate a request right now.
func (k *APIKey) IsUsable(now time.Time) bool {
	return !k.Revoked && !k.IsExpired(now)
}
