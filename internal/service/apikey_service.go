package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	apiKeyPrefix    = "sk_live_"
	maxActiveKeys   = 5
	apiKeySecretLen = 32 // 64 hex chars
)

// APIKeyServiceImpl implements ports.APIKeyService.
type APIKeyServiceImpl struct {
	keyRepo ports.APIKeyRepository
	log     zerolog.Logger
}

// NewAPIKeyService creates a new APIKeyServiceImpl.
func NewAPIKeyService(keyRepo ports.APIKeyRepository, log zerolog.Logger) *APIKeyServiceImpl {
	return &APIKeyServiceImpl{keyRepo: keyRepo, log: log}
}

// Create issues a new API key for the caller. The plaintext secret is
// returned exactly once; only its digest is stored.
func (s *APIKeyServiceImpl) Create(ctx context.Context, caller *domain.Caller, name string, permissions []domain.Permission, expiry string) (*ports.CreatedKey, error) {
	if caller.Kind != domain.CallerKindUser {
		return nil, apperror.ErrUserOnly("manage API keys")
	}
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if len(permissions) == 0 {
		return nil, apperror.Validation("at least one permission is required")
	}
	for _, p := range permissions {
		if !domain.ValidPermission(p) {
			return nil, apperror.Validation(fmt.Sprintf("unknown permission: %s", p))
		}
	}

	now := time.Now().UTC()
	expiresAt, err := resolveExpiry(now, expiry)
	if err != nil {
		return nil, err
	}

	active, err := s.keyRepo.CountActive(ctx, caller.UserID, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count active keys: %w", err))
	}
	if active >= maxActiveKeys {
		return nil, apperror.ErrKeyLimitExceeded()
	}

	return s.issue(ctx, caller.UserID, name, permissions, expiresAt, now)
}

// Rollover replaces an expired key with a fresh one carrying the same name
// and permissions. Only expired keys are eligible.
func (s *APIKeyServiceImpl) Rollover(ctx context.Context, caller *domain.Caller, keyID uuid.UUID, expiry string) (*ports.CreatedKey, error) {
	if caller.Kind != domain.CallerKindUser {
		return nil, apperror.ErrUserOnly("manage API keys")
	}

	key, err := s.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find key: %w", err))
	}
	if key == nil || key.UserID != caller.UserID || key.Revoked {
		return nil, apperror.ErrKeyNotFound()
	}

	now := time.Now().UTC()
	if !key.IsExpired(now) {
		return nil, apperror.ErrKeyNotExpired()
	}

	expiresAt, err := resolveExpiry(now, expiry)
	if err != nil {
		return nil, err
	}

	active, err := s.keyRepo.CountActive(ctx, caller.UserID, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count active keys: %w", err))
	}
	if active >= maxActiveKeys {
		return nil, apperror.ErrKeyLimitExceeded()
	}

	created, err := s.issue(ctx, caller.UserID, key.Name, key.Permissions, expiresAt, now)
	if err != nil {
		return nil, err
	}

	if err := s.keyRepo.Revoke(ctx, key.ID); err != nil {
		s.log.Warn().Err(err).Str("key_id", key.ID.String()).Msg("failed to revoke rolled-over key")
	}
	return created, nil
}

func (s *APIKeyServiceImpl) issue(ctx context.Context, userID uuid.UUID, name string, permissions []domain.Permission, expiresAt, now time.Time) (*ports.CreatedKey, error) {
	raw := make([]byte, apiKeySecretLen)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate key: %w", err))
	}
	secret := apiKeyPrefix + hex.EncodeToString(raw)
	digest := sha256.Sum256([]byte(secret))

	key := &domain.APIKey{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		KeyDigest:   hex.EncodeToString(digest[:]),
		Permissions: permissions,
		ExpiresAt:   expiresAt,
		Revoked:     false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.keyRepo.Create(ctx, key); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create key: %w", err))
	}

	s.log.Info().
		Str("key_id", key.ID.String()).
		Str("user_id", userID.String()).
		Time("expires_at", expiresAt).
		Msg("api key issued")

	return &ports.CreatedKey{
		ID:          key.ID,
		Name:        key.Name,
		Secret:      secret,
		Permissions: key.Permissions,
		ExpiresAt:   key.ExpiresAt,
	}, nil
}

// resolveExpiry maps an expiry code to an absolute time.
func resolveExpiry(now time.Time, expiry string) (time.Time, error) {
	switch expiry {
	case "1H":
		return now.Add(time.Hour), nil
	case "1D":
		return now.AddDate(0, 0, 1), nil
	case "1M":
		return now.AddDate(0, 1, 0), nil
	case "1Y":
		return now.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, apperror.Validation("expiry must be one of 1H, 1D, 1M, 1Y")
	}
}
