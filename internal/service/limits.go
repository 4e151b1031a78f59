package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TierLimits are the ceilings of one verification tier in the reference currency.
type TierLimits struct {
	PerTransaction decimal.Decimal
	Daily          decimal.Decimal
}

// DefaultTierLimits returns 100 / 500 / 10000 USD with daily ceilings equal to the single ones.
func DefaultTierLimits() map[int]TierLimits {
	return map[int]TierLimits{
		domain.Tier0: {PerTransaction: decimal.NewFromInt(100), Daily: decimal.NewFromInt(100)},
		domain.Tier1: {PerTransaction: decimal.NewFromInt(500), Daily: decimal.NewFromInt(500)},
		domain.Tier2: {PerTransaction: decimal.NewFromInt(10000), Daily: decimal.NewFromInt(10000)},
	}
}

// LimitGuard enforces verification-tier spending ceilings.
type LimitGuard struct {
	limits map[int]TierLimits
}

func NewLimitGuard(limits map[int]TierLimits) *LimitGuard {
	if len(limits) == 0 {
		limits = DefaultTierLimits()
	}
	return &LimitGuard{limits: limits}
}

// Allow checks a transfer of amountRef against the tier's single and daily
// ceilings given what the account already spent today. Amounts equal to a
// ceiling are allowed.
func (g *LimitGuard) Allow(tier int, amountRef, spentTodayRef decimal.Decimal) error {
	l, ok := g.limits[tier]
	if !ok {
		return fmt.Errorf("%w: unknown verification tier %d", domain.ErrLimitExceeded, tier)
	}
	if amountRef.GreaterThan(l.PerTransaction) {
		return fmt.Errorf("%w: %s %s exceeds the tier %d single transaction ceiling of %s",
			domain.ErrLimitExceeded, amountRef.StringFixed(2), domain.ReferenceCurrency, tier, l.PerTransaction.StringFixed(2))
	}
	if spentTodayRef.Add(amountRef).GreaterThan(l.Daily) {
		return fmt.Errorf("%w: tier %d daily ceiling of %s %s reached",
			domain.ErrLimitExceeded, tier, l.Daily.StringFixed(2), domain.ReferenceCurrency)
	}
	return nil
}

// Limits returns the ceilings of tier.
func (g *LimitGuard) Limits(tier int) (TierLimits, bool) {
	l, ok := g.limits[tier]
	return l, ok
}

// SpentToday sums the account's debits since the start of the current UTC day
// in the reference currency.
func (g *LimitGuard) SpentToday(ctx context.Context, q *repository.Queries, conv *Converter, accountID uuid.UUID, now func() time.Time) (decimal.Decimal, error) {
	rows, err := q.SumDebitsSince(ctx, repository.SumDebitsSinceParams{
		AccountID: repository.ToPgUUID(accountID),
		Since:     startOfUTCDay(now()),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum daily debits: %w", err)
	}

	total := decimal.Zero
	for _, row := range rows {
		ref, err := conv.ToReference(ctx, repository.Decimal(row.Total), row.Currency)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(ref)
	}
	return total, nil
}
