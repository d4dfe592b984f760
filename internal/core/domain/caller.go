package domain

import "github.com/google/uuid"

// CallerKind distinguishes a human identity from a service credential.
type CallerKind string

const (
	CallerKindUser    CallerKind = "user"
	CallerKindService CallerKind = "service"
)

// Caller is a resolved request identity with its wallet binding. For service
// callers, Permissions carries the credential's explicit grant set.
type Caller struct {
	UserID       uuid.UUID
	WalletID     uuid.UUID
	WalletNumber string
	Kind         CallerKind
	Permissions  []Permission
}

// Can reports whether the caller may perform the action guarded by p.
// Users own their wallet outright and implicitly hold every permission.
func (c *Caller) Can(p Permission) bool {
	if c.Kind == CallerKindUser {
		return true
	}
	for _, granted := range c.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}
