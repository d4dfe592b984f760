package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// APIKeyRepo implements ports.APIKeyRepository. Permissions are stored
// as a text[] column.
type APIKeyRepo struct {
	pool Pool
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(pool Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

// Create inserts a new API key.
func (r *APIKeyRepo) Create(ctx context.Context, k *domain.APIKey) error {
	query := `INSERT INTO api_keys (id, user_id, name, key_digest, permissions, expires_at, revoked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		k.ID, k.UserID, k.Name, k.KeyDigest, permissionsToText(k.Permissions),
		k.ExpiresAt, k.Revoked, k.CreatedAt, k.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetByID fetches an API key by its UUID.
func (r *APIKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error) {
	query := `SELECT id, user_id, name, key_digest, permissions, expires_at, revoked, created_at, updated_at
		FROM api_keys WHERE id = $1`

	return r.scanKey(r.pool.QueryRow(ctx, query, id))
}

// GetByDigest fetches an API key by the SHA-256 digest of its secret.
func (r *APIKeyRepo) GetByDigest(ctx context.Context, digest string) (*domain.APIKey, error) {
	query := `SELECT id, user_id, name, key_digest, permissions, expires_at, revoked, created_at, updated_at
		FROM api_keys WHERE key_digest = $1`

	return r.scanKey(r.pool.QueryRow(ctx, query, digest))
}

// CountActive counts keys owned by the user that are neither revoked nor
// expired as of now.
func (r *APIKeyRepo) CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM api_keys
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2`

	var count int64
	err := r.pool.QueryRow(ctx, query, userID, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active api keys: %w", err)
	}
	return count, nil
}

// Revoke marks an API key as revoked.
func (r *APIKeyRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE api_keys SET revoked = TRUE, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key not found: %s", id)
	}
	return nil
}

func (r *APIKeyRepo) scanKey(row pgx.Row) (*domain.APIKey, error) {
	k := &domain.APIKey{}
	var perms []string
	err := row.Scan(
		&k.ID, &k.UserID, &k.Name, &k.KeyDigest, &perms,
		&k.ExpiresAt, &k.Revoked, &k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	k.Permissions = permissionsFromText(perms)
	return k, nil
}

func permissionsToText(perms []domain.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func permissionsFromText(raw []string) []domain.Permission {
	out := make([]domain.Permission, len(raw))
	for i, s := range raw {
		out[i] = domain.Permission(s)
	}
	return out
}
