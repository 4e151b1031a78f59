package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/gateway"
	"github.com/ayo6706/multicurrency-wallet/internal/models"
	"github.com/ayo6706/multicurrency-wallet/internal/observability"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/ayo6706/multicurrency-wallet/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const transferReferenceConstraint = "transfers_sender_reference_key"

// TransferService orchestrates transfers: limit checks, the debit unit and
// any external provisioning that follows it.
type TransferService struct {
	store  QueryStore
	ledger *Ledger
	limits *LimitGuard
	conv   *Converter
	cards  gateway.CardIssuer
	chain  gateway.ChainNetwork
	claims *ClaimService
	audit  *AuditService
	retry  gateway.RetryPolicy
	now    func() time.Time
}

func NewTransferService(store QueryStore, conv *Converter, limits *LimitGuard, cards gateway.CardIssuer, chain gateway.ChainNetwork, claims *ClaimService) *TransferService {
	return &TransferService{
		store:  store,
		ledger: NewLedger(),
		limits: limits,
		conv:   conv,
		cards:  cards,
		chain:  chain,
		claims: claims,
		audit:  NewAuditService(),
		retry:  gateway.DefaultRetryPolicy(),
		now:    time.Now,
	}
}

// WithRetryPolicy replaces the provider retry policy.
func (s *TransferService) WithRetryPolicy(p gateway.RetryPolicy) *TransferService {
	s.retry = p
	return s
}

// TransferRequest is a request to move AmountSource out of the sender's
// SourceCurrency balance.
type TransferRequest struct {
	SenderID           uuid.UUID
	Kind               string `json:"kind" validate:"required,oneof=ACCOUNT CARD CLAIM_LINK WITHDRAWAL"`
	Amount             decimal.Decimal
	SourceCurrency     string `json:"source_currency" validate:"required,currency"`
	TargetCurrency     string `json:"target_currency" validate:"required,currency"`
	RecipientID        *uuid.UUID
	RecipientEmail     string `json:"recipient_email" validate:"omitempty,email"`
	RecipientPhone     string `json:"recipient_phone" validate:"omitempty,e164"`
	DestinationAddress string `json:"destination_address" validate:"omitempty,startswith=0x,len=42"`
	ReferenceID        string `json:"reference_id" validate:"required,max=128"`
}

// TransferResult is the outcome of CreateTransfer. Replayed is set when an
// earlier transfer with the same reference was returned unchanged.
type TransferResult struct {
	Transfer   *models.Transfer   `json:"transfer"`
	Instrument *models.Instrument `json:"instrument,omitempty"`
	UnlockCode string             `json:"unlock_code,omitempty"`
	Replayed   bool               `json:"replayed"`
}

func (r *TransferRequest) normalize() {
	r.Kind = strings.ToUpper(strings.TrimSpace(r.Kind))
	r.SourceCurrency = domain.NormalizeCurrency(r.SourceCurrency)
	r.TargetCurrency = domain.NormalizeCurrency(r.TargetCurrency)
	r.RecipientEmail = strings.ToLower(strings.TrimSpace(r.RecipientEmail))
	r.RecipientPhone = strings.TrimSpace(r.RecipientPhone)
	r.DestinationAddress = strings.TrimSpace(r.DestinationAddress)
	r.ReferenceID = strings.TrimSpace(r.ReferenceID)
}

func (r *TransferRequest) validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.SenderID == uuid.Nil {
		return domain.NewValidationError("sender_id", "is required")
	}
	if !r.Amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than zero")
	}

	switch r.Kind {
	case domain.TransferKindAccount:
		if r.RecipientID == nil || *r.RecipientID == uuid.Nil {
			return domain.NewValidationError("recipient_id", "is required for ACCOUNT transfers")
		}
		if *r.RecipientID == r.SenderID {
			return domain.NewValidationError("recipient_id", "cannot transfer to the same account")
		}
	case domain.TransferKindClaimLink:
		if r.RecipientEmail == "" {
			return domain.NewValidationError("recipient_email", "is required for CLAIM_LINK transfers")
		}
	case domain.TransferKindWithdrawal:
		if r.DestinationAddress == "" {
			return domain.NewValidationError("destination_address", "is required for WITHDRAWAL transfers")
		}
		if r.TargetCurrency != domain.StablecoinCurrency {
			return domain.NewValidationError("target_currency", "withdrawals settle in %s", domain.StablecoinCurrency)
		}
	}
	return nil
}

// CreateTransfer debits the sender and runs the transfer to a final state.
// Rejections (validation, limits, insufficient funds) leave no trace. A
// provider failure after the debit is recorded as a FAILED transfer and the
// funds stay debited until an operator resolves it.
func (s *TransferService) CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	req.normalize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	queries := s.store.Queries()
	sender, err := s.loadActiveAccount(ctx, queries, req.SenderID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.replay(ctx, queries, req.SenderID, req.ReferenceID); err != nil || existing != nil {
		return existing, err
	}

	if req.Kind == domain.TransferKindAccount {
		if _, err := s.loadActiveAccount(ctx, queries, *req.RecipientID); err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return nil, domain.NewValidationError("recipient_id", "recipient account not found")
			}
			return nil, err
		}
	}

	quote, err := s.conv.Quote(ctx, req.Amount, req.SourceCurrency, req.TargetCurrency)
	if err != nil {
		return nil, err
	}
	amountRef, err := s.conv.ToReference(ctx, quote.AmountSource, quote.SourceCurrency)
	if err != nil {
		return nil, err
	}
	if err := s.checkLimits(ctx, queries, sender, amountRef); err != nil {
		return nil, err
	}

	transferID := uuid.New()
	var created repository.Transfer
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		// Daily totals are re-read under the sender lock; the check above ran on committed state only.
		locked, err := qtx.GetAccountForSpend(ctx, repository.ToPgUUID(req.SenderID))
		if err != nil {
			return fmt.Errorf("lock sender: %w", err)
		}
		if !locked.Active {
			return domain.ErrAccountInactive
		}
		if err := s.checkLimits(ctx, qtx, locked, amountRef); err != nil {
			return err
		}

		changes := []BalanceChange{{
			AccountID: req.SenderID,
			Currency:  quote.SourceCurrency,
			Amount:    quote.TotalDebit,
			Direction: domain.DirectionDebit,
			Mutation:  MutationInput{Description: "transfer " + strings.ToLower(req.Kind), CorrelationID: transferID.String()},
		}}
		if req.Kind == domain.TransferKindAccount {
			changes = append(changes, BalanceChange{
				AccountID: *req.RecipientID,
				Currency:  quote.TargetCurrency,
				Amount:    quote.AmountReceived,
				Direction: domain.DirectionCredit,
				Mutation:  MutationInput{Description: "transfer received", CorrelationID: transferID.String()},
			})
		}
		if err := s.ledger.Apply(ctx, qtx, changes); err != nil {
			return err
		}

		created, err = qtx.CreateTransfer(ctx, repository.CreateTransferParams{
			ID:                 repository.ToPgUUID(transferID),
			SenderID:           repository.ToPgUUID(req.SenderID),
			RecipientID:        repository.NullableUUID(req.RecipientID),
			RecipientEmail:     repository.TextParam(req.RecipientEmail),
			RecipientPhone:     repository.TextParam(req.RecipientPhone),
			DestinationAddress: repository.TextParam(req.DestinationAddress),
			Kind:               req.Kind,
			SourceCurrency:     quote.SourceCurrency,
			TargetCurrency:     quote.TargetCurrency,
			AmountSource:       repository.Numeric(quote.AmountSource),
			Fee:                repository.Numeric(quote.Fee),
			FeePercentage:      repository.Numeric(quote.FeePercentage),
			ExchangeRate:       repository.Numeric(quote.ExchangeRate),
			AmountReceived:     repository.Numeric(quote.AmountReceived),
			TotalDebit:         repository.Numeric(quote.TotalDebit),
			Status:             domain.TransferStatusPending,
			ReferenceID:        req.ReferenceID,
		})
		if err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}

		meta := auditMetadata(map[string]any{
			"kind":         req.Kind,
			"total_debit":  quote.TotalDebit.String(),
			"currency":     quote.SourceCurrency,
			"rate":         quote.ExchangeRate.String(),
			"rate_stale":   quote.RateStale,
			"reference_id": req.ReferenceID,
		})
		if err := s.audit.Write(ctx, qtx, entityTransfer, transferID, &req.SenderID, "created", "", domain.TransferStatusPending, meta); err != nil {
			return err
		}

		if req.Kind == domain.TransferKindAccount {
			if err := transitionTransferState(ctx, qtx, s.audit, transferID, transferTransition{
				next:    domain.TransferStatusCompleted,
				action:  "completed",
				actorID: &req.SenderID,
			}); err != nil {
				return err
			}
			created, err = qtx.GetTransfer(ctx, created.ID)
			if err != nil {
				return fmt.Errorf("reload transfer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if isReferenceConflict(err) {
			return s.replay(ctx, queries, req.SenderID, req.ReferenceID)
		}
		return nil, err
	}

	if req.Kind == domain.TransferKindAccount {
		observability.IncrementTransfer(req.Kind, domain.TransferStatusCompleted)
		return &TransferResult{Transfer: transferView(created)}, nil
	}

	// The debit is committed; provisioning must run to a final state even if the caller goes away.
	return s.provision(context.WithoutCancel(ctx), sender, created)
}

func (s *TransferService) provision(ctx context.Context, sender repository.Account, t repository.Transfer) (*TransferResult, error) {
	result := &TransferResult{}
	var (
		providerRef string
		provErr     error
	)

	switch t.Kind {
	case domain.TransferKindCard:
		var inst *models.Instrument
		inst, provErr = s.issueCard(ctx, sender, t)
		if provErr == nil {
			result.Instrument = inst
			providerRef = inst.ProviderCardID
		}
	case domain.TransferKindClaimLink:
		var claim *IssuedClaim
		claim, provErr = s.claims.Issue(ctx, t, sender.Username)
		if provErr == nil {
			result.Instrument = claim.Instrument
			result.UnlockCode = claim.UnlockCode
			providerRef = claim.Instrument.ID.String()
		}
	case domain.TransferKindWithdrawal:
		providerRef, provErr = s.sendWithdrawal(ctx, t)
	default:
		provErr = fmt.Errorf("unsupported transfer kind %q", t.Kind)
	}

	transferID := repository.FromPgUUID(t.ID)
	next := transferTransition{next: domain.TransferStatusCompleted, action: "completed", providerRef: providerRef}
	if provErr != nil {
		zap.L().Error("external provisioning failed after debit; transfer needs manual review",
			zap.Error(provErr),
			zap.String("transfer_id", transferID.String()),
			zap.String("account_id", repository.FromPgUUID(t.SenderID).String()),
			zap.String("amount", repository.Decimal(t.TotalDebit).String()),
			zap.String("currency", t.SourceCurrency),
			zap.String("kind", t.Kind),
		)
		next = transferTransition{
			next:          domain.TransferStatusFailed,
			action:        "provisioning_failed",
			failureReason: provErr.Error(),
			metadata:      auditMetadata(map[string]any{"reason": provErr.Error()}),
		}
	}

	var final repository.Transfer
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if err := transitionTransferState(ctx, qtx, s.audit, transferID, next); err != nil {
			return err
		}
		var err error
		final, err = qtx.GetTransfer(ctx, t.ID)
		return err
	})
	if err != nil {
		zap.L().Error("failed to record transfer outcome",
			zap.Error(err),
			zap.String("transfer_id", transferID.String()),
			zap.String("intended_status", next.next),
			zap.String("account_id", repository.FromPgUUID(t.SenderID).String()),
			zap.String("amount", repository.Decimal(t.TotalDebit).String()),
		)
		return nil, fmt.Errorf("record transfer outcome: %w", err)
	}

	observability.IncrementTransfer(t.Kind, next.next)
	result.Transfer = transferView(final)
	return result, nil
}

func (s *TransferService) issueCard(ctx context.Context, sender repository.Account, t repository.Transfer) (*models.Instrument, error) {
	if s.cards == nil {
		return nil, fmt.Errorf("%w: card issuer not configured", domain.ErrExternalProvider)
	}
	holderID, err := s.ensureCardholder(ctx, sender)
	if err != nil {
		return nil, err
	}

	var card *gateway.IssuedCard
	err = s.retry.Do(ctx, "card.create", func() error {
		var err error
		card, err = s.cards.CreateCard(ctx, gateway.CreateCardRequest{
			CardholderID:  holderID,
			SpendingLimit: repository.Decimal(t.AmountReceived),
			Currency:      t.TargetCurrency,
			Reference:     repository.FromPgUUID(t.ID).String(),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create card: %v", domain.ErrExternalProvider, err)
	}

	status := strings.ToUpper(card.Status)
	if status != domain.InstrumentStatusActive && status != domain.InstrumentStatusCanceled {
		status = domain.InstrumentStatusInactive
	}

	var inst repository.IssuedInstrument
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		inst, err = qtx.CreateIssuedInstrument(ctx, repository.CreateIssuedInstrumentParams{
			ID:             repository.ToPgUUID(uuid.New()),
			TransferID:     t.ID,
			Kind:           domain.InstrumentKindCard,
			ProviderCardID: &card.CardID,
			SpendingLimit:  t.AmountReceived,
			Currency:       t.TargetCurrency,
			Status:         status,
		})
		if err != nil {
			return fmt.Errorf("create card instrument: %w", err)
		}
		return s.audit.Write(ctx, qtx, entityInstrument, repository.FromPgUUID(inst.ID), nil, "card_issued", "", status,
			auditMetadata(map[string]any{"provider_card_id": card.CardID, "last4": card.Last4}))
	})
	if err != nil {
		return nil, err
	}
	return instrumentView(inst), nil
}

func (s *TransferService) ensureCardholder(ctx context.Context, sender repository.Account) (string, error) {
	if sender.CardholderID != nil && *sender.CardholderID != "" {
		return *sender.CardholderID, nil
	}

	var holderID string
	err := s.retry.Do(ctx, "card.cardholder", func() error {
		var err error
		holderID, err = s.cards.CreateCardholder(ctx, gateway.CardholderRequest{
			AccountID: repository.FromPgUUID(sender.ID),
			Name:      sender.Username,
			Email:     sender.Email,
			Phone:     deref(sender.Phone),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: create cardholder: %v", domain.ErrExternalProvider, err)
	}

	queries := s.store.Queries()
	rows, err := queries.SetCardholderID(ctx, repository.SetCardholderIDParams{CardholderID: &holderID, ID: sender.ID})
	if err != nil {
		return "", fmt.Errorf("store cardholder id: %w", err)
	}
	if rows == 0 {
		// Another transfer registered the cardholder first.
		acc, err := queries.GetAccount(ctx, sender.ID)
		if err != nil {
			return "", fmt.Errorf("reload account: %w", err)
		}
		if acc.CardholderID != nil {
			return *acc.CardholderID, nil
		}
	}
	return holderID, nil
}

func (s *TransferService) sendWithdrawal(ctx context.Context, t repository.Transfer) (string, error) {
	if s.chain == nil {
		return "", fmt.Errorf("%w: chain network not configured", domain.ErrExternalProvider)
	}
	var txHash string
	err := s.retry.Do(ctx, "chain.send", func() error {
		var err error
		txHash, err = s.chain.SendFromHotWallet(ctx, deref(t.DestinationAddress), repository.Decimal(t.AmountReceived), domain.StablecoinCurrency)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: hot wallet transfer: %v", domain.ErrExternalProvider, err)
	}
	return txHash, nil
}

func (s *TransferService) checkLimits(ctx context.Context, q *repository.Queries, sender repository.Account, amountRef decimal.Decimal) error {
	spent, err := s.limits.SpentToday(ctx, q, s.conv, repository.FromPgUUID(sender.ID), s.now)
	if err != nil {
		return err
	}
	return s.limits.Allow(int(sender.VerificationTier), amountRef, spent)
}

func (s *TransferService) loadActiveAccount(ctx context.Context, q *repository.Queries, id uuid.UUID) (repository.Account, error) {
	acc, err := q.GetAccount(ctx, repository.ToPgUUID(id))
	if err != nil {
		if isNoRows(err) {
			return repository.Account{}, domain.ErrAccountNotFound
		}
		return repository.Account{}, fmt.Errorf("load account: %w", err)
	}
	if !acc.Active {
		return repository.Account{}, domain.ErrAccountInactive
	}
	return acc, nil
}

func (s *TransferService) replay(ctx context.Context, q *repository.Queries, senderID uuid.UUID, referenceID string) (*TransferResult, error) {
	existing, err := q.GetTransferBySenderReference(ctx, repository.GetTransferBySenderReferenceParams{
		SenderID:    repository.ToPgUUID(senderID),
		ReferenceID: referenceID,
	})
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("check transfer reference: %w", err)
	}

	result := &TransferResult{Transfer: transferView(existing), Replayed: true}
	if inst, err := q.GetInstrumentByTransfer(ctx, existing.ID); err == nil {
		result.Instrument = instrumentView(inst)
	} else if !isNoRows(err) {
		return nil, fmt.Errorf("load transfer instrument: %w", err)
	}
	return result, nil
}

func isReferenceConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == transferReferenceConstraint
}

// TransferDetails is a transfer with the instrument it funded, if any.
type TransferDetails struct {
	Transfer   *models.Transfer   `json:"transfer"`
	Instrument *models.Instrument `json:"instrument,omitempty"`
}

// GetTransfer returns a transfer and its instrument.
func (s *TransferService) GetTransfer(ctx context.Context, id uuid.UUID) (*TransferDetails, error) {
	q := s.store.Queries()
	t, err := q.GetTransfer(ctx, repository.ToPgUUID(id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTransferNotFound
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	details := &TransferDetails{Transfer: transferView(t)}
	inst, err := q.GetInstrumentByTransfer(ctx, t.ID)
	switch {
	case err == nil:
		details.Instrument = instrumentView(inst)
	case !isNoRows(err):
		return nil, fmt.Errorf("get transfer instrument: %w", err)
	}
	return details, nil
}

// ListFailedTransfers returns the manual review queue: unresolved FAILED
// transfers and claim links canceled before redemption.
func (s *TransferService) ListFailedTransfers(ctx context.Context, limit, offset int) ([]*models.Transfer, error) {
	l, o := clampPage(limit, offset)
	rows, err := s.store.Queries().ListReviewQueue(ctx, repository.ListReviewQueueParams{Limit: l, Offset: o})
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	out := make([]*models.Transfer, 0, len(rows))
	for _, t := range rows {
		out = append(out, transferView(t))
	}
	return out, nil
}

// ResolveDecision is an operator's decision on a transfer in the review queue.
type ResolveDecision string

const (
	DecisionAcknowledge ResolveDecision = "acknowledge"
	DecisionRefund      ResolveDecision = "refund"
)

type ResolveRequest struct {
	TransferID uuid.UUID
	Decision   ResolveDecision
	Reason     string
	ActorID    uuid.UUID
}

// ResolveFailedTransfer closes a review queue entry. A refund credits the
// sender's total debit back exactly once; the transfer status is unchanged.
func (s *TransferService) ResolveFailedTransfer(ctx context.Context, req ResolveRequest) (*models.Transfer, error) {
	decision := ResolveDecision(strings.ToLower(strings.TrimSpace(string(req.Decision))))
	var resolution string
	switch decision {
	case DecisionAcknowledge:
		resolution = domain.ResolutionAcknowledged
	case DecisionRefund:
		resolution = domain.ResolutionRefunded
	default:
		return nil, domain.NewValidationError("decision", "must be acknowledge or refund")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}

	var final repository.Transfer
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		t, err := qtx.GetTransferForUpdate(ctx, repository.ToPgUUID(req.TransferID))
		if err != nil {
			if isNoRows(err) {
				return domain.ErrTransferNotFound
			}
			return fmt.Errorf("lock transfer: %w", err)
		}

		inst, err := qtx.GetInstrumentByTransferForUpdate(ctx, t.ID)
		hasInstrument := err == nil
		if err != nil && !isNoRows(err) {
			return fmt.Errorf("lock transfer instrument: %w", err)
		}
		if hasInstrument && deref(inst.LockState) == domain.LockStateUnlocked {
			return fmt.Errorf("%w: claim already redeemed", domain.ErrTransferNotResolvable)
		}

		rows, err := qtx.ResolveTransfer(ctx, repository.ResolveTransferParams{
			Resolution: &resolution,
			ResolvedBy: repository.ToPgUUID(req.ActorID),
			ID:         t.ID,
		})
		if err != nil {
			return fmt.Errorf("resolve transfer: %w", err)
		}
		if rows == 0 {
			return domain.ErrTransferNotResolvable
		}

		if decision == DecisionRefund && hasInstrument && inst.Status != domain.InstrumentStatusCanceled {
			if _, err := qtx.UpdateInstrumentStatus(ctx, repository.UpdateInstrumentStatusParams{
				Status: domain.InstrumentStatusCanceled,
				ID:     inst.ID,
			}); err != nil {
				return fmt.Errorf("cancel instrument: %w", err)
			}
		}

		if decision == DecisionRefund {
			if err := s.ledger.Credit(ctx, qtx, repository.FromPgUUID(t.SenderID), t.SourceCurrency, repository.Decimal(t.TotalDebit), MutationInput{
				Description:    "refund of failed transfer",
				CorrelationID:  req.TransferID.String(),
				IdempotencyKey: "refund:" + req.TransferID.String(),
			}); err != nil {
				if errors.Is(err, domain.ErrDuplicateMutation) {
					return domain.ErrTransferNotResolvable
				}
				return err
			}
		}

		meta := auditMetadata(map[string]any{"decision": string(decision), "reason": req.Reason})
		if err := s.audit.Write(ctx, qtx, entityTransfer, req.TransferID, &req.ActorID, "resolved_"+string(decision), t.Status, t.Status, meta); err != nil {
			return err
		}

		final, err = qtx.GetTransfer(ctx, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementResolution(string(decision))
	zap.L().Info("review queue transfer resolved",
		zap.String("transfer_id", req.TransferID.String()),
		zap.String("decision", string(decision)),
		zap.String("actor_id", req.ActorID.String()),
	)
	return transferView(final), nil
}
