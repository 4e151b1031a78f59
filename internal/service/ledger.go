package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MutationInput describes the mutation record written alongside a balance change.
type MutationInput struct {
	Description   string
	CorrelationID string
	// IdempotencyKey, when set, makes the change apply at most once.
	IdempotencyKey string
}

// BalanceChange is one debit or credit of a multi-row ledger unit.
type BalanceChange struct {
	AccountID uuid.UUID
	Currency  string
	Amount    decimal.Decimal
	Direction string
	Mutation  MutationInput
}

// Ledger is the only writer of the balances table. Every method runs inside
// the caller's transaction and records a mutation for each balance change.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Debit subtracts amount with a single conditional update. It returns
// domain.ErrInsufficientFunds when the balance does not cover amount.
func (l *Ledger) Debit(ctx context.Context, qtx *repository.Queries, accountID uuid.UUID, currency string, amount decimal.Decimal, m MutationInput) error {
	currency = domain.NormalizeCurrency(currency)
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "debit amount must be greater than zero")
	}

	rows, err := qtx.DebitBalance(ctx, repository.DebitBalanceParams{
		Amount:    repository.Numeric(amount),
		AccountID: repository.ToPgUUID(accountID),
		Currency:  currency,
	})
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if rows == 0 {
		return domain.ErrInsufficientFunds
	}
	return l.record(ctx, qtx, accountID, domain.DirectionDebit, currency, amount, m)
}

// Credit adds amount, creating the balance row when needed. A mutation whose
// idempotency key was already used returns domain.ErrDuplicateMutation before
// the balance is touched.
func (l *Ledger) Credit(ctx context.Context, qtx *repository.Queries, accountID uuid.UUID, currency string, amount decimal.Decimal, m MutationInput) error {
	currency = domain.NormalizeCurrency(currency)
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "credit amount must be greater than zero")
	}

	if err := l.record(ctx, qtx, accountID, domain.DirectionCredit, currency, amount, m); err != nil {
		return err
	}

	rows, err := qtx.CreditBalance(ctx, repository.CreditBalanceParams{
		AccountID: repository.ToPgUUID(accountID),
		Currency:  currency,
		Amount:    repository.Numeric(amount),
	})
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return requireExactlyOne(rows, "credit balance")
}

// Apply runs changes ordered by (account, currency) so concurrent units take
// row locks in the same order.
func (l *Ledger) Apply(ctx context.Context, qtx *repository.Queries, changes []BalanceChange) error {
	ordered := make([]BalanceChange, len(changes))
	copy(ordered, changes)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if c := bytes.Compare(a.AccountID[:], b.AccountID[:]); c != 0 {
			return c < 0
		}
		return domain.NormalizeCurrency(a.Currency) < domain.NormalizeCurrency(b.Currency)
	})

	for _, ch := range ordered {
		var err error
		switch ch.Direction {
		case domain.DirectionDebit:
			err = l.Debit(ctx, qtx, ch.AccountID, ch.Currency, ch.Amount, ch.Mutation)
		case domain.DirectionCredit:
			err = l.Credit(ctx, qtx, ch.AccountID, ch.Currency, ch.Amount, ch.Mutation)
		default:
			err = fmt.Errorf("unknown balance change direction %q", ch.Direction)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) record(ctx context.Context, qtx *repository.Queries, accountID uuid.UUID, direction, currency string, amount decimal.Decimal, m MutationInput) error {
	rows, err := qtx.InsertMutationRecord(ctx, repository.InsertMutationRecordParams{
		ID:             repository.ToPgUUID(uuid.New()),
		AccountID:      repository.ToPgUUID(accountID),
		Direction:      direction,
		Amount:         repository.Numeric(amount),
		Currency:       currency,
		Description:    m.Description,
		CorrelationID:  m.CorrelationID,
		IdempotencyKey: repository.TextParam(m.IdempotencyKey),
	})
	if err != nil {
		return fmt.Errorf("insert mutation record: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateMutation, m.IdempotencyKey)
	}
	return nil
}
