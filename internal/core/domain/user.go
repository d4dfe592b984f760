package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an identity federated from the external provider.
// Users never hold a password; GoogleID is the stable federation key.
type User struct {
	ID        uuid.UUID `json:"id"`
	GoogleID  string    `json:"-"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
