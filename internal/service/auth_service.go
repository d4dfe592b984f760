package service

import (
	"context"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	walletNumberPrefix   = "456"
	walletNumberAttempts = 10
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	apiKeyRepo ports.APIKeyRepository
	transactor ports.DBTransactor
	tokenSvc   ports.TokenService
	provider   ports.IdentityProvider
	log        zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	apiKeyRepo ports.APIKeyRepository,
	transactor ports.DBTransactor,
	tokenSvc ports.TokenService,
	provider ports.IdentityProvider,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		apiKeyRepo: apiKeyRepo,
		transactor: transactor,
		tokenSvc:   tokenSvc,
		provider:   provider,
		log:        log,
	}
}

// Authenticate resolves a bearer token or API key into a caller.
// Bearer wins when both credentials are present.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, bearer, apiKey string) (*domain.Caller, error) {
	switch {
	case bearer != "":
		return s.authenticateBearer(ctx, bearer)
	case apiKey != "":
		return s.authenticateAPIKey(ctx, apiKey)
	default:
		return nil, apperror.ErrUnauthenticated("")
	}
}

func (s *AuthServiceImpl) authenticateBearer(ctx context.Context, bearer string) (*domain.Caller, error) {
	claims, err := s.tokenSvc.Validate(bearer)
	if err != nil {
		return nil, apperror.ErrUnauthenticated("Invalid or expired token")
	}

	// The token binds the wallet, but both sides must still exist.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrUnauthenticated("User no longer exists")
	}

	wallet, err := s.walletRepo.GetByID(ctx, claims.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	return &domain.Caller{
		UserID:       user.ID,
		WalletID:     wallet.ID,
		WalletNumber: wallet.WalletNumber,
		Kind:         domain.CallerKindUser,
	}, nil
}

func (s *AuthServiceImpl) authenticateAPIKey(ctx context.Context, apiKey string) (*domain.Caller, error) {
	digest := sha256.Sum256([]byte(apiKey))
	key, err := s.apiKeyRepo.GetByDigest(ctx, hex.EncodeToString(digest[:]))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find api key: %w", err))
	}
	if key == nil || !key.IsUsable(time.Now()) {
		return nil, apperror.ErrUnauthenticated("Invalid or expired API key")
	}

	wallet, err := s.walletRepo.GetByUserID(ctx, key.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	return &domain.Caller{
		UserID:       key.UserID,
		WalletID:     wallet.ID,
		WalletNumber: wallet.WalletNumber,
		Kind:         domain.CallerKindService,
		Permissions:  key.Permissions,
	}, nil
}

// SignInURL builds the identity provider consent URL.
func (s *AuthServiceImpl) SignInURL(state string) string {
	return s.provider.AuthURL(state)
}

// CompleteSignIn exchanges the provider code, provisions the user and wallet
// on first sign-in, and issues a session token.
func (s *AuthServiceImpl) CompleteSignIn(ctx context.Context, code string) (*ports.SignInResult, error) {
	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.ErrUnauthenticated("Sign-in could not be completed")
	}

	user, err := s.userRepo.GetByGoogleID(ctx, identity.SubjectID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}

	var wallet *domain.Wallet
	if user == nil {
		user, wallet, err = s.provision(ctx, identity)
		if err != nil {
			return nil, err
		}
	} else {
		wallet, err = s.walletRepo.GetByUserID(ctx, user.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("find wallet: %w", err))
		}
		if wallet == nil {
			return nil, apperror.ErrWalletNotFound()
		}
	}

	token, expiresAt, err := s.tokenSvc.Generate(user.ID, wallet.ID, wallet.WalletNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return &ports.SignInResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		Wallet: &ports.WalletView{
			ID:           wallet.ID,
			WalletNumber: wallet.WalletNumber,
			Balance:      wallet.Balance,
		},
	}, nil
}

// provision creates the user and its wallet atomically.
func (s *AuthServiceImpl) provision(ctx context.Context, identity *ports.Identity) (*domain.User, *domain.Wallet, error) {
	walletNumber, err := s.nextWalletNumber(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("generate wallet number: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.New(),
		GoogleID:  identity.SubjectID,
		Email:     identity.Email,
		Name:      identity.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	wallet := domain.NewWallet(user.ID, walletNumber)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.userRepo.Create(ctx, dbTx, user); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}
	if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("wallet_number", wallet.WalletNumber).
		Msg("provisioned new user and wallet")

	return user, wallet, nil
}

// nextWalletNumber draws candidate numbers until one is unused. After the
// attempt budget it falls back to a timestamp-derived number.
func (s *AuthServiceImpl) nextWalletNumber(ctx context.Context) (string, error) {
	for i := 0; i < walletNumberAttempts; i++ {
		candidate, err := randomWalletNumber()
		if err != nil {
			return "", err
		}
		existing, err := s.walletRepo.GetByWalletNumber(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	suffix := fmt.Sprintf("%04d", rand.IntN(10000))
	return walletNumberPrefix + ts[len(ts)-6:] + suffix, nil
}

// randomWalletNumber derives 10 digits from 5 random bytes.
func randomWalletNumber() (string, error) {
	b := make([]byte, 5)
	if _, err := crand.Read(b); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(hex.EncodeToString(b), 16, 64)
	if err != nil {
		return "", err
	}
	digits := strconv.FormatUint(n, 10)
	if len(digits) < 10 {
		digits = strings.Repeat("0", 10-len(digits)) + digits
	}
	return walletNumberPrefix + digits[:10], nil
}
