package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/models"
	"github.com/ayo6706/multicurrency-wallet/internal/notify"
	"github.com/ayo6706/multicurrency-wallet/internal/observability"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const unlockCodeDigits = 6

// ClaimNotifier delivers a claim link to its recipient.
type ClaimNotifier interface {
	NotifyClaim(ctx context.Context, msg notify.ClaimMessage) error
}

// ClaimConfig controls claim-link issuance.
type ClaimConfig struct {
	TTL         time.Duration
	MaxAttempts int
	BaseURL     string
	HashCost    int
}

// DefaultClaimConfig expires links after 48h and locks them after 5 wrong codes.
func DefaultClaimConfig() ClaimConfig {
	return ClaimConfig{
		TTL:         48 * time.Hour,
		MaxAttempts: 5,
		BaseURL:     "http://localhost:8080",
		HashCost:    bcrypt.DefaultCost,
	}
}

// ClaimService issues and redeems claim links.
type ClaimService struct {
	store    QueryStore
	ledger   *Ledger
	audit    *AuditService
	notifier ClaimNotifier
	cfg      ClaimConfig
	now      func() time.Time
}

func NewClaimService(store QueryStore, notifier ClaimNotifier, cfg ClaimConfig) *ClaimService {
	def := DefaultClaimConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = def.HashCost
	}
	return &ClaimService{
		store:    store,
		ledger:   NewLedger(),
		audit:    NewAuditService(),
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *ClaimService) WithClock(now func() time.Time) *ClaimService {
	s.now = now
	return s
}

// IssuedClaim is a newly issued claim link. UnlockCode is only available here.
type IssuedClaim struct {
	Instrument *models.Instrument
	UnlockCode string
}

// Issue creates a LOCKED claim instrument for a debited CLAIM_LINK transfer and
// notifies the recipient. A delivery failure cancels the instrument and
// returns an error wrapping domain.ErrExternalProvider.
func (s *ClaimService) Issue(ctx context.Context, t repository.Transfer, senderName string) (*IssuedClaim, error) {
	transferID := repository.FromPgUUID(t.ID)
	code, err := generateUnlockCode()
	if err != nil {
		return nil, fmt.Errorf("generate unlock code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash unlock code: %w", err)
	}
	hashText := string(hash)
	lockState := domain.LockStateLocked
	expiresAt := s.now().Add(s.cfg.TTL)

	var inst repository.IssuedInstrument
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		inst, err = qtx.CreateIssuedInstrument(ctx, repository.CreateIssuedInstrumentParams{
			ID:            repository.ToPgUUID(uuid.New()),
			TransferID:    t.ID,
			Kind:          domain.InstrumentKindClaimLink,
			SpendingLimit: t.AmountReceived,
			Currency:      t.TargetCurrency,
			Status:        domain.InstrumentStatusActive,
			LockState:     &lockState,
			CodeHash:      &hashText,
			ExpiresAt:     repository.Timestamptz(&expiresAt),
		})
		if err != nil {
			return fmt.Errorf("create claim instrument: %w", err)
		}
		return s.audit.Write(ctx, qtx, entityInstrument, repository.FromPgUUID(inst.ID), nil, "claim_issued", "", domain.LockStateLocked,
			auditMetadata(map[string]any{"transfer_id": transferID.String(), "expires_at": expiresAt.UTC()}))
	})
	if err != nil {
		return nil, err
	}

	msg := notify.ClaimMessage{
		TransferID:     transferID.String(),
		SenderName:     senderName,
		Amount:         repository.Decimal(t.AmountReceived).String(),
		Currency:       t.TargetCurrency,
		ClaimURL:       strings.TrimRight(s.cfg.BaseURL, "/") + "/claims/" + transferID.String(),
		RecipientEmail: deref(t.RecipientEmail),
		RecipientPhone: deref(t.RecipientPhone),
		UnlockCode:     code,
		ExpiresAt:      expiresAt,
	}
	if notifyErr := s.notifier.NotifyClaim(ctx, msg); notifyErr != nil {
		cancelErr := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
			if _, err := qtx.UpdateInstrumentStatus(ctx, repository.UpdateInstrumentStatusParams{
				Status: domain.InstrumentStatusCanceled,
				ID:     inst.ID,
			}); err != nil {
				return fmt.Errorf("cancel undelivered claim: %w", err)
			}
			return s.audit.Write(ctx, qtx, entityInstrument, repository.FromPgUUID(inst.ID), nil, "claim_canceled", domain.InstrumentStatusActive, domain.InstrumentStatusCanceled,
				auditMetadata(map[string]any{"reason": "notification_failed"}))
		})
		if cancelErr != nil {
			zap.L().Error("failed to cancel undelivered claim", zap.Error(cancelErr), zap.String("transfer_id", transferID.String()))
		}
		return nil, fmt.Errorf("%w: claim notification: %v", domain.ErrExternalProvider, notifyErr)
	}

	return &IssuedClaim{Instrument: instrumentView(inst), UnlockCode: code}, nil
}

// UnlockRequest redeems a claim link into the claimant's account.
type UnlockRequest struct {
	TransferID uuid.UUID
	Code       string
	ClaimantID uuid.UUID
}

// Unlock verifies code and credits the claimant. A wrong code is counted even
// though the call fails; after MaxAttempts wrong codes the claim is locked out.
// An expired claim is rejected even with the right code.
func (s *ClaimService) Unlock(ctx context.Context, req UnlockRequest) (*models.Instrument, error) {
	code := strings.TrimSpace(req.Code)
	if len(code) != unlockCodeDigits {
		return nil, domain.NewValidationError("code", "must be %d digits", unlockCodeDigits)
	}

	var (
		result    repository.IssuedInstrument
		rejection error
	)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		rejection = nil

		claimant, err := qtx.GetAccount(ctx, repository.ToPgUUID(req.ClaimantID))
		if err != nil {
			if isNoRows(err) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("load claimant: %w", err)
		}
		if !claimant.Active {
			return domain.ErrAccountInactive
		}

		inst, err := qtx.GetInstrumentByTransferForUpdate(ctx, repository.ToPgUUID(req.TransferID))
		if err != nil {
			if isNoRows(err) {
				return domain.ErrClaimNotFound
			}
			return fmt.Errorf("lock claim: %w", err)
		}
		if inst.Kind != domain.InstrumentKindClaimLink || inst.CodeHash == nil {
			return domain.ErrClaimNotFound
		}

		switch {
		case deref(inst.LockState) == domain.LockStateUnlocked:
			return domain.ErrClaimAlreadyRedeemed
		case !inst.ExpiresAt.Valid || !s.now().Before(inst.ExpiresAt.Time):
			return domain.ErrClaimExpired
		case inst.Status == domain.InstrumentStatusCanceled:
			return domain.ErrClaimCanceled
		case int(inst.FailedAttempts) >= s.cfg.MaxAttempts:
			return domain.ErrClaimLockedOut
		}

		if bcrypt.CompareHashAndPassword([]byte(*inst.CodeHash), []byte(code)) != nil {
			attempts, err := qtx.RecordFailedUnlockAttempt(ctx, inst.ID)
			if err != nil {
				return fmt.Errorf("record failed unlock attempt: %w", err)
			}
			if err := s.audit.Write(ctx, qtx, entityInstrument, repository.FromPgUUID(inst.ID), &req.ClaimantID, "claim_unlock_failed", "", "",
				auditMetadata(map[string]any{"failed_attempts": attempts})); err != nil {
				return err
			}
			rejection = domain.ErrInvalidClaimCode
			return nil
		}

		rows, err := qtx.UnlockInstrument(ctx, repository.UnlockInstrumentParams{
			ClaimedBy: repository.ToPgUUID(req.ClaimantID),
			ID:        inst.ID,
		})
		if err != nil {
			return fmt.Errorf("unlock claim: %w", err)
		}
		if err := requireExactlyOne(rows, "unlock claim"); err != nil {
			return err
		}

		if err := s.ledger.Credit(ctx, qtx, req.ClaimantID, inst.Currency, repository.Decimal(inst.SpendingLimit), MutationInput{
			Description:    "claim link redeemed",
			CorrelationID:  req.TransferID.String(),
			IdempotencyKey: "claim:" + req.TransferID.String(),
		}); err != nil {
			if errors.Is(err, domain.ErrDuplicateMutation) {
				return domain.ErrClaimAlreadyRedeemed
			}
			return err
		}

		if err := s.audit.Write(ctx, qtx, entityInstrument, repository.FromPgUUID(inst.ID), &req.ClaimantID, "claim_unlocked", domain.LockStateLocked, domain.LockStateUnlocked, nil); err != nil {
			return err
		}

		result, err = qtx.GetInstrumentByTransfer(ctx, inst.TransferID)
		if err != nil {
			return fmt.Errorf("reload claim: %w", err)
		}
		return nil
	})
	if err != nil {
		observability.IncrementClaimUnlock(unlockResult(err))
		return nil, err
	}
	if rejection != nil {
		observability.IncrementClaimUnlock(unlockResult(rejection))
		return nil, rejection
	}

	observability.IncrementClaimUnlock("unlocked")
	return instrumentView(result), nil
}

// SweepExpired cancels LOCKED claims past their expiry. Their transfers enter
// the manual review queue; nothing is refunded automatically.
func (s *ClaimService) SweepExpired(ctx context.Context, batchSize int32) (int, error) {
	var expired []repository.CancelExpiredClaimsRow
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		expired, err = qtx.CancelExpiredClaims(ctx, repository.CancelExpiredClaimsParams{
			Now:   s.now(),
			Limit: batchSize,
		})
		if err != nil {
			return fmt.Errorf("cancel expired claims: %w", err)
		}
		for _, row := range expired {
			meta := auditMetadata(map[string]any{"transfer_id": repository.FromPgUUID(row.TransferID).String()})
			if err := s.audit.Write(ctx, qtx, entityInstrument, repository.FromPgUUID(row.ID), nil, "claim_expired", domain.InstrumentStatusActive, domain.InstrumentStatusCanceled, meta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, row := range expired {
		zap.L().Warn("claim link expired unredeemed; transfer queued for manual review",
			zap.String("transfer_id", repository.FromPgUUID(row.TransferID).String()),
			zap.String("instrument_id", repository.FromPgUUID(row.ID).String()),
		)
	}
	return len(expired), nil
}

func unlockResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidClaimCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrClaimExpired):
		return "expired"
	case errors.Is(err, domain.ErrClaimLockedOut):
		return "locked_out"
	case errors.Is(err, domain.ErrClaimAlreadyRedeemed):
		return "already_redeemed"
	default:
		return "error"
	}
}

func generateUnlockCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
