package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/events"
	"github.com/ayo6706/multicurrency-wallet/internal/observability"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultConfirmationThreshold is the number of confirmations after which a
// chain deposit is considered final.
const DefaultConfirmationThreshold = 12

// SignatureVerifier checks the HMAC-SHA256 signature of a webhook body.
type SignatureVerifier struct {
	key  []byte
	skip bool
}

func NewSignatureVerifier(key string, skip bool) *SignatureVerifier {
	return &SignatureVerifier{key: []byte(key), skip: skip}
}

// Verify accepts signatures of the form "sha256=<hex>" or a bare hex digest.
func (v *SignatureVerifier) Verify(body []byte, signature string) error {
	if v.skip {
		return nil
	}
	if len(v.key) == 0 {
		return domain.ErrInvalidSignature
	}
	sig := strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(sig)
	if err != nil || len(got) == 0 {
		return domain.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.key)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign returns the signature header value for body.
func (v *SignatureVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// IngestionService absorbs provider events exactly once.
type IngestionService struct {
	store     QueryStore
	ledger    *Ledger
	audit     *AuditService
	threshold int
}

func NewIngestionService(store QueryStore, confirmationThreshold int) *IngestionService {
	if confirmationThreshold <= 0 {
		confirmationThreshold = DefaultConfirmationThreshold
	}
	return &IngestionService{
		store:     store,
		ledger:    NewLedger(),
		audit:     NewAuditService(),
		threshold: confirmationThreshold,
	}
}

// Ingest records ev and applies its effect in one unit. Redelivery of an
// event id is a no-op reported as IngestAlreadyProcessed.
func (s *IngestionService) Ingest(ctx context.Context, ev events.Event) (domain.IngestOutcome, error) {
	var outcome domain.IngestOutcome
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		rows, err := qtx.InsertExternalEvent(ctx, repository.InsertExternalEventParams{
			EventID:   ev.EventID(),
			Source:    ev.Source(),
			EventType: ev.Type(),
			Payload:   ev.Payload(),
		})
		if err != nil {
			return fmt.Errorf("record external event: %w", err)
		}
		if rows == 0 {
			outcome = domain.IngestAlreadyProcessed
			return nil
		}

		switch e := ev.(type) {
		case *events.ChainTransfer:
			outcome, err = s.applyChainTransfer(ctx, qtx, e)
		case *events.CardTopUp:
			outcome, err = s.applyTopUp(ctx, qtx, e)
		case *events.CardAuthorization:
			outcome, err = s.applyAuthorization(ctx, qtx, e)
		case *events.CardStatusChanged:
			outcome, err = s.applyCardStatus(ctx, qtx, e)
		default:
			err = fmt.Errorf("unsupported event %T", ev)
		}
		return err
	})
	if err != nil {
		observability.IncrementIngestion(ev.Source(), "error")
		return "", err
	}

	observability.IncrementIngestion(ev.Source(), strings.ToLower(string(outcome)))
	zap.L().Debug("external event ingested",
		zap.String("event_id", ev.EventID()),
		zap.String("type", ev.Type()),
		zap.String("outcome", string(outcome)),
	)
	return outcome, nil
}

type depositObservation struct {
	externalID    string
	source        string
	accountID     uuid.UUID
	currency      string
	amount        decimal.Decimal
	confirmations int
	failed        bool
	confirmed     bool
}

func (s *IngestionService) applyChainTransfer(ctx context.Context, qtx *repository.Queries, e *events.ChainTransfer) (domain.IngestOutcome, error) {
	addr, err := qtx.GetDepositAddressByAddress(ctx, repository.GetDepositAddressByAddressParams{
		Network: e.Network,
		Address: e.ToAddress,
	})
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("%w: %s on %s", domain.ErrUnknownDepositAddress, e.ToAddress, e.Network)
		}
		return "", fmt.Errorf("resolve deposit address: %w", err)
	}
	if !domain.IsSupportedCurrency(e.Token) {
		return "", domain.NewValidationError("token", "unsupported token %q", e.Token)
	}

	return s.mergeDeposit(ctx, qtx, depositObservation{
		externalID:    e.TxHash,
		source:        domain.DepositSourceChain,
		accountID:     repository.FromPgUUID(addr.AccountID),
		currency:      e.Token,
		amount:        e.Amount,
		confirmations: e.Confirmations,
		failed:        e.State == events.ChainStateFailed,
		confirmed:     e.State != events.ChainStateFailed && e.Confirmations >= s.threshold,
	})
}

func (s *IngestionService) applyTopUp(ctx context.Context, qtx *repository.Queries, e *events.CardTopUp) (domain.IngestOutcome, error) {
	if _, err := qtx.GetAccount(ctx, repository.ToPgUUID(e.AccountID)); err != nil {
		if isNoRows(err) {
			return "", domain.ErrAccountNotFound
		}
		return "", fmt.Errorf("load top-up account: %w", err)
	}
	return s.mergeDeposit(ctx, qtx, depositObservation{
		externalID: "topup:" + e.TopUpID,
		source:     domain.DepositSourceCard,
		accountID:  e.AccountID,
		currency:   e.Currency,
		amount:     e.Amount,
		failed:     !e.Succeeded,
		confirmed:  e.Succeeded,
	})
}

// mergeDeposit folds one observation into the stored deposit. Confirmations
// only grow, status never moves backwards, and FAILED never credits.
func (s *IngestionService) mergeDeposit(ctx context.Context, qtx *repository.Queries, obs depositObservation) (domain.IngestOutcome, error) {
	if _, err := qtx.InsertExternalDeposit(ctx, repository.InsertExternalDepositParams{
		ExternalID: obs.externalID,
		Source:     obs.source,
		AccountID:  repository.ToPgUUID(obs.accountID),
		Currency:   obs.currency,
		Amount:     repository.Numeric(obs.amount),
	}); err != nil {
		return "", fmt.Errorf("insert external deposit: %w", err)
	}

	dep, err := qtx.GetExternalDepositForUpdate(ctx, obs.externalID)
	if err != nil {
		return "", fmt.Errorf("lock external deposit: %w", err)
	}
	if repository.FromPgUUID(dep.AccountID) != obs.accountID ||
		dep.Currency != obs.currency ||
		!repository.Decimal(dep.Amount).Equal(obs.amount) {
		return "", fmt.Errorf("%w: %s", domain.ErrDepositPayloadMismatch, obs.externalID)
	}

	switch dep.Status {
	case domain.DepositStatusCredited:
		if obs.failed {
			zap.L().Error("failure reported for an already credited deposit; needs manual review",
				zap.String("external_id", obs.externalID),
				zap.String("account_id", obs.accountID.String()),
				zap.String("amount", obs.amount.String()),
				zap.String("currency", obs.currency),
			)
			observability.IncrementLedgerDrift(obs.currency)
			if err := s.audit.Write(ctx, qtx, entityDeposit, obs.accountID, nil, "failure_after_credit",
				dep.Status, dep.Status, auditMetadata(map[string]any{"external_id": obs.externalID})); err != nil {
				return "", err
			}
		}
		return domain.IngestAlreadyProcessed, nil
	case domain.DepositStatusFailed:
		return domain.IngestFailed, nil
	}

	confirmations := max(int(dep.Confirmations), obs.confirmations)
	next := dep.Status
	switch {
	case obs.failed:
		next = domain.DepositStatusFailed
	case obs.confirmed || (obs.source == domain.DepositSourceChain && confirmations >= s.threshold):
		next = domain.DepositStatusConfirmed
	}
	if domain.DepositStatusRank(next) < domain.DepositStatusRank(dep.Status) {
		next = dep.Status
	}

	if _, err := qtx.UpdateExternalDepositProgress(ctx, repository.UpdateExternalDepositProgressParams{
		Confirmations: int32(confirmations),
		Status:        next,
		ExternalID:    obs.externalID,
	}); err != nil {
		return "", fmt.Errorf("update external deposit: %w", err)
	}

	switch next {
	case domain.DepositStatusFailed:
		if err := s.audit.Write(ctx, qtx, entityDeposit, obs.accountID, nil, "deposit_failed", dep.Status, next,
			auditMetadata(map[string]any{"external_id": obs.externalID})); err != nil {
			return "", err
		}
		return domain.IngestFailed, nil
	case domain.DepositStatusPending:
		return domain.IngestPending, nil
	}

	rows, err := qtx.MarkExternalDepositCredited(ctx, obs.externalID)
	if err != nil {
		return "", fmt.Errorf("mark deposit credited: %w", err)
	}
	if rows == 0 {
		return domain.IngestAlreadyProcessed, nil
	}
	if err := s.ledger.Credit(ctx, qtx, obs.accountID, obs.currency, obs.amount, MutationInput{
		Description:    "deposit " + strings.ToLower(obs.source),
		CorrelationID:  obs.externalID,
		IdempotencyKey: "deposit:" + obs.externalID,
	}); err != nil {
		return "", err
	}
	if err := s.audit.Write(ctx, qtx, entityDeposit, obs.accountID, nil, "deposit_credited", domain.DepositStatusConfirmed, domain.DepositStatusCredited,
		auditMetadata(map[string]any{"external_id": obs.externalID, "amount": obs.amount.String(), "currency": obs.currency})); err != nil {
		return "", err
	}
	return domain.IngestCredited, nil
}

func (s *IngestionService) applyAuthorization(ctx context.Context, qtx *repository.Queries, e *events.CardAuthorization) (domain.IngestOutcome, error) {
	inst, err := qtx.GetInstrumentByProviderCardForUpdate(ctx, e.CardID)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("%w: card %s", domain.ErrInstrumentNotFound, e.CardID)
		}
		return "", fmt.Errorf("lock card instrument: %w", err)
	}

	approved := e.Approved
	if approved && e.Currency != inst.Currency {
		approved = false
	}
	if approved {
		rows, err := qtx.ConsumeInstrument(ctx, repository.ConsumeInstrumentParams{
			Amount: repository.Numeric(e.Amount),
			ID:     inst.ID,
		})
		if err != nil {
			return "", fmt.Errorf("consume card instrument: %w", err)
		}
		if rows == 0 {
			approved = false
			zap.L().Warn("card authorization exceeds remaining limit",
				zap.String("card_id", e.CardID),
				zap.String("amount", e.Amount.String()),
			)
		}
	}

	if _, err := qtx.InsertCardAuthorization(ctx, repository.InsertCardAuthorizationParams{
		ID:           repository.ToPgUUID(uuid.New()),
		InstrumentID: inst.ID,
		ExternalID:   e.EventID(),
		Amount:       repository.Numeric(e.Amount),
		Currency:     e.Currency,
		Merchant:     e.Merchant,
		Approved:     approved,
	}); err != nil {
		return "", fmt.Errorf("record card authorization: %w", err)
	}
	return domain.IngestApplied, nil
}

func (s *IngestionService) applyCardStatus(ctx context.Context, qtx *repository.Queries, e *events.CardStatusChanged) (domain.IngestOutcome, error) {
	inst, err := qtx.GetInstrumentByProviderCardForUpdate(ctx, e.CardID)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("%w: card %s", domain.ErrInstrumentNotFound, e.CardID)
		}
		return "", fmt.Errorf("lock card instrument: %w", err)
	}

	if !canTransitionInstrument(inst.Status, e.Status) {
		zap.L().Info("ignoring card status change",
			zap.String("card_id", e.CardID),
			zap.String("from", inst.Status),
			zap.String("to", e.Status),
		)
		return domain.IngestApplied, nil
	}
	if _, err := qtx.UpdateInstrumentStatus(ctx, repository.UpdateInstrumentStatusParams{Status: e.Status, ID: inst.ID}); err != nil {
		return "", fmt.Errorf("update card status: %w", err)
	}
	if err := s.audit.Write(ctx, qtx, entityInstrument, repository.FromPgUUID(inst.ID), nil, "card_status_changed", inst.Status, e.Status, nil); err != nil {
		return "", err
	}
	return domain.IngestApplied, nil
}

// canTransitionInstrument allows INACTIVE -> ACTIVE and any -> CANCELED. CANCELED is final.
func canTransitionInstrument(current, next string) bool {
	switch {
	case current == next, current == domain.InstrumentStatusCanceled:
		return false
	case next == domain.InstrumentStatusCanceled:
		return true
	default:
		return current == domain.InstrumentStatusInactive && next == domain.InstrumentStatusActive
	}
}
