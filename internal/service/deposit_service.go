package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	settlementTTL   = 24 * time.Hour
	minorUnitFactor = 100

	eventChargeSuccess = "charge.success"

	gatewayStatusSuccess   = "success"
	gatewayStatusFailed    = "failed"
	gatewayStatusAbandoned = "abandoned"

	depositCallbackPath = "/api/v1/wallet/deposit/callback"
	defaultAppURL       = "http://localhost:8080"
)

// DepositServiceImpl implements ports.DepositService.
type DepositServiceImpl struct {
	txRepo      ports.TransactionRepository
	walletRepo  ports.WalletRepository
	transactor  ports.DBTransactor
	gateway    ports.GatewayClient
	verifier   ports.SignatureVerifier
	cache      ports.SettlementCache
	appURL     string
	log        zerolog.Logger
}

// NewDepositService creates a new DepositServiceImpl.
func NewDepositService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	gateway ports.GatewayClient,
	verifier ports.SignatureVerifier,
	cache ports.SettlementCache,
	appURL string,
	log zerolog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		transactor: transactor,
		gateway:    gateway,
		verifier:   verifier,
		cache:      cache,
		appURL:     appURL,
		log:        log,
	}
}

// Initiate records a pending deposit and opens a checkout session with the
// payment gateway. The wallet is not touched until settlement. origin is the
// requesting client's origin, used for the redirect URL when no app URL is
// configured.
func (s *DepositServiceImpl) Initiate(ctx context.Context, caller *domain.Caller, amount int64, origin string) (*ports.DepositInitResult, error) {
	if !caller.Can(domain.PermissionDeposit) {
		return nil, apperror.ErrForbidden(string(domain.PermissionDeposit))
	}
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	reference, err := newDepositReference()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate reference: %w", err))
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:                    uuid.New(),
		UserID:                caller.UserID,
		WalletID:              caller.WalletID,
		Type:                  domain.TransactionTypeDeposit,
		Amount:                amount,
		Status:                domain.TransactionStatusPending,
		Reference:             &reference,
		RecipientWalletNumber: caller.WalletNumber,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.txRepo.CreatePending(ctx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record pending deposit: %w", err))
	}

	auth, err := s.gateway.Initialize(ctx, ports.GatewayInitRequest{
		Email:       fmt.Sprintf("user_%s@wallet.com", caller.UserID),
		Amount:      amount * minorUnitFactor,
		Reference:   reference,
		CallbackURL: s.resolveCallbackURL(origin),
		Metadata: map[string]string{
			"user_id":   caller.UserID.String(),
			"wallet_id": caller.WalletID.String(),
		},
	})
	if err != nil {
		s.log.Error().Err(err).Str("reference", reference).Msg("gateway initialize failed")
		return nil, apperror.GatewayError(err)
	}

	s.log.Info().
		Str("reference", reference).
		Int64("amount", amount).
		Msg("deposit initiated")

	return &ports.DepositInitResult{
		AuthorizationURL: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
		Reference:        reference,
	}, nil
}

// resolveCallbackURL picks the redirect base: configured app URL, then the
// request origin, then a localhost default.
func (s *DepositServiceImpl) resolveCallbackURL(origin string) string {
	base := s.appURL
	if base == "" {
		base = origin
	}
	if base == "" {
		base = defaultAppURL
	}
	return base + depositCallbackPath
}

// webhookEvent is the gateway's webhook envelope.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
}

// HandleWebhook authenticates a raw gateway event and settles it. Only
// signature failures surface as errors; everything past authentication is
// acknowledged so the gateway does not redeliver a processed event.
func (s *DepositServiceImpl) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if signature == "" {
		return apperror.ErrMissingSignature()
	}
	if !s.verifier.Verify(rawBody, signature) {
		return apperror.ErrInvalidSignature()
	}

	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		s.log.Warn().Err(err).Msg("webhook payload is not valid JSON, acknowledging")
		return nil
	}
	if event.Event != eventChargeSuccess {
		s.log.Debug().Str("event", event.Event).Msg("ignoring webhook event")
		return nil
	}

	if err := s.settle(ctx, event.Data.Reference, event.Data.Amount, event.Data.Status); err != nil {
		s.log.Error().Err(err).Str("reference", event.Data.Reference).Msg("settlement failed, acknowledging anyway")
	}
	return nil
}

// settle credits a confirmed deposit exactly once. The conditional
// pending->success transition is the serialization point: of any number of
// concurrent deliveries, exactly one wins and credits the wallet.
func (s *DepositServiceImpl) settle(ctx context.Context, reference string, amountMinor int64, chargeStatus string) error {
	// Fast path: already-settled references short-circuit on Redis.
	if status, err := s.cache.Get(ctx, reference); err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("settlement cache check failed, falling through to DB")
	} else if status != "" {
		s.log.Debug().Str("reference", reference).Msg("webhook replay, already settled")
		return nil
	}

	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return fmt.Errorf("find deposit: %w", err)
	}
	if txn == nil {
		s.log.Warn().Str("reference", reference).Msg("webhook for unknown reference")
		return nil
	}
	if txn.IsTerminal() {
		s.recordSettled(ctx, reference, txn.Status)
		return nil
	}

	// Exact comparison in minor units: a report off by even one kobo fails
	// the deposit rather than crediting a rounded amount.
	if amountMinor != txn.Amount*minorUnitFactor {
		s.log.Error().
			Str("reference", reference).
			Int64("expected_minor", txn.Amount*minorUnitFactor).
			Int64("reported_minor", amountMinor).
			Msg("webhook amount mismatch, failing deposit")
		return s.failPending(ctx, txn.ID)
	}

	// The event name alone is not trusted: the charge payload must also
	// carry a success status before any credit.
	if chargeStatus != gatewayStatusSuccess {
		s.log.Warn().
			Str("reference", reference).
			Str("charge_status", chargeStatus).
			Msg("charge event without success status, failing deposit")
		return s.failPending(ctx, txn.ID)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	won, err := s.txRepo.TransitionStatus(ctx, dbTx, txn.ID,
		domain.TransactionStatusPending, domain.TransactionStatusSuccess)
	if err != nil {
		return fmt.Errorf("transition deposit: %w", err)
	}
	if !won {
		// A concurrent delivery settled first.
		s.recordSettled(ctx, reference, domain.TransactionStatusSuccess)
		return nil
	}

	if _, err := s.walletRepo.AdjustBalance(ctx, dbTx, txn.WalletID, txn.Amount); err != nil {
		if errors.Is(err, ports.ErrWalletNotFound) {
			// Drop the credit transition and mark the deposit failed so a
			// retry cannot credit a missing wallet.
			_ = dbTx.Rollback(ctx)
			return s.failPending(ctx, txn.ID)
		}
		return fmt.Errorf("credit wallet: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.recordSettled(ctx, reference, domain.TransactionStatusSuccess)

	s.log.Info().
		Str("reference", reference).
		Int64("amount", txn.Amount).
		Msg("deposit settled")
	return nil
}

// failPending moves a deposit from pending to failed in its own transaction.
func (s *DepositServiceImpl) failPending(ctx context.Context, id uuid.UUID) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.txRepo.TransitionStatus(ctx, dbTx, id,
		domain.TransactionStatusPending, domain.TransactionStatusFailed); err != nil {
		return fmt.Errorf("fail deposit: %w", err)
	}
	return dbTx.Commit(ctx)
}

func (s *DepositServiceImpl) recordSettled(ctx context.Context, reference string, status domain.TransactionStatus) {
	if err := s.cache.Set(ctx, reference, string(status), settlementTTL); err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("failed to record settlement in redis")
	}
}

// Status reports a deposit's ledger state, enriched with the gateway's view
// when the gateway is reachable. It never mutates the ledger: crediting is
// the webhook path's job alone.
func (s *DepositServiceImpl) Status(ctx context.Context, caller *domain.Caller, reference string) (*ports.DepositStatusResult, error) {
	if !caller.Can(domain.PermissionRead) {
		return nil, apperror.ErrForbidden(string(domain.PermissionRead))
	}

	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find deposit: %w", err))
	}
	if txn == nil || txn.UserID != caller.UserID {
		return nil, apperror.ErrNotFound("deposit")
	}

	result := &ports.DepositStatusResult{
		Reference: reference,
		Status:    txn.Status,
		Amount:    txn.Amount,
	}
	// Settled and failed deposits are final; no reason to poll the gateway.
	if txn.IsTerminal() {
		return result, nil
	}

	verification, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("gateway verify unavailable, returning ledger state")
		return result, nil
	}
	result.GatewayStatus = verification.Status
	return result, nil
}

// ConfirmCallback handles the browser redirect after checkout. A pending
// deposit is marked failed only when the gateway reports the charge as
// terminally dead (failed or abandoned); a charge still processing stays
// pending so the webhook can settle it. The callback never credits.
func (s *DepositServiceImpl) ConfirmCallback(ctx context.Context, reference string) (*ports.DepositStatusResult, error) {
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find deposit: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("deposit")
	}

	result := &ports.DepositStatusResult{
		Reference: reference,
		Status:    txn.Status,
		Amount:    txn.Amount,
	}

	verification, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("gateway verify unavailable during callback")
		return result, nil
	}
	result.GatewayStatus = verification.Status

	chargeDead := verification.Status == gatewayStatusFailed || verification.Status == gatewayStatusAbandoned
	if chargeDead && txn.Status == domain.TransactionStatusPending {
		if err := s.failPending(ctx, txn.ID); err != nil {
			s.log.Error().Err(err).Str("reference", reference).Msg("failed to mark deposit failed")
			return result, nil
		}
		result.Status = domain.TransactionStatusFailed
	}
	return result, nil
}

// newDepositReference builds a DEP_<millis>_<16 hex> reference.
func newDepositReference() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("DEP_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b)), nil
}
