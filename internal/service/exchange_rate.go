package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/gateway"
	"github.com/ayo6706/multicurrency-wallet/internal/observability"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultRateTTL is how long a fetched rate is served without asking the price source.
const DefaultRateTTL = 60 * time.Second

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// RateCache holds the last rate seen per currency pair. Entries are fresh for
// the TTL and kept afterwards as a fallback for price source outages.
type RateCache struct {
	ttl   time.Duration
	items *cache.Cache
	now   func() time.Time
}

func NewRateCache(ttl time.Duration) *RateCache {
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	return &RateCache{
		ttl:   ttl,
		items: cache.New(cache.NoExpiration, 0),
		now:   time.Now,
	}
}

// WithClock replaces the time source.
func (c *RateCache) WithClock(now func() time.Time) *RateCache {
	c.now = now
	return c
}

// Get returns the cached rate for base/quote and whether it is still within the TTL.
func (c *RateCache) Get(base, quote string) (rate decimal.Decimal, fresh bool, ok bool) {
	v, found := c.items.Get(pairKey(base, quote))
	if !found {
		return decimal.Zero, false, false
	}
	entry := v.(cachedRate)
	return entry.rate, c.now().Sub(entry.fetchedAt) < c.ttl, true
}

// Put stores rate as the latest value for base/quote.
func (c *RateCache) Put(base, quote string, rate decimal.Decimal) {
	c.items.Set(pairKey(base, quote), cachedRate{rate: rate, fetchedAt: c.now()}, cache.NoExpiration)
}

func pairKey(base, quote string) string {
	return domain.NormalizeCurrency(base) + "/" + domain.NormalizeCurrency(quote)
}

type rateCacheKey struct{}

// ContextWithRateCache makes converters use cache for calls made with the returned context.
func ContextWithRateCache(ctx context.Context, c *RateCache) context.Context {
	return context.WithValue(ctx, rateCacheKey{}, c)
}

func rateCacheFrom(ctx context.Context) (*RateCache, bool) {
	c, ok := ctx.Value(rateCacheKey{}).(*RateCache)
	return c, ok && c != nil
}

// FeePolicy is the percentage of the source amount charged per transfer.
type FeePolicy struct {
	CrossCurrency decimal.Decimal
	SameCurrency  decimal.Decimal
}

// DefaultFeePolicy charges 1.8% on conversions and nothing on same-currency transfers.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		CrossCurrency: decimal.RequireFromString("0.018"),
		SameCurrency:  decimal.Zero,
	}
}

// Quote is a priced conversion of AmountSource into TargetCurrency.
type Quote struct {
	SourceCurrency string          `json:"source_currency"`
	TargetCurrency string          `json:"target_currency"`
	AmountSource   decimal.Decimal `json:"amount_source"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	FeePercentage  decimal.Decimal `json:"fee_percentage"`
	Fee            decimal.Decimal `json:"fee"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	RateStale      bool            `json:"rate_stale"`
}

// Converter prices conversions from a PriceSource through a RateCache.
type Converter struct {
	prices gateway.PriceSource
	cache  *RateCache
	fees   FeePolicy
}

func NewConverter(prices gateway.PriceSource, rateCache *RateCache, fees FeePolicy) *Converter {
	if rateCache == nil {
		rateCache = NewRateCache(DefaultRateTTL)
	}
	return &Converter{prices: prices, cache: rateCache, fees: fees}
}

// Cache returns the converter's own rate cache.
func (c *Converter) Cache() *RateCache {
	return c.cache
}

// Rate returns target units per source unit. A fresh cached rate is served
// directly; otherwise the price source is asked and, if it fails, the last
// cached rate is returned with stale=true.
func (c *Converter) Rate(ctx context.Context, source, target string) (rate decimal.Decimal, stale bool, err error) {
	source, target = domain.NormalizeCurrency(source), domain.NormalizeCurrency(target)
	if source == target {
		return decimal.NewFromInt(1), false, nil
	}

	rc := c.cache
	if override, ok := rateCacheFrom(ctx); ok {
		rc = override
	}

	cached, fresh, ok := rc.Get(source, target)
	if ok && fresh {
		observability.IncrementRateCache("hit")
		return cached, false, nil
	}

	fetched, fetchErr := c.prices.Rate(ctx, source, target)
	if fetchErr == nil && fetched.IsPositive() {
		observability.IncrementRateCache("miss")
		rc.Put(source, target, fetched)
		return fetched, false, nil
	}
	if fetchErr == nil {
		fetchErr = fmt.Errorf("non-positive rate %s", fetched)
	}

	if ok {
		observability.IncrementRateCache("stale")
		zap.L().Warn("price source unavailable, serving stale rate",
			zap.String("pair", pairKey(source, target)),
			zap.String("rate", cached.String()),
			zap.Error(fetchErr),
		)
		return cached, true, nil
	}
	observability.IncrementRateCache("unavailable")
	return decimal.Zero, false, fmt.Errorf("%w: %s/%s: %v", domain.ErrRateUnavailable, source, target, fetchErr)
}

// Quote prices amountSource of source into target. The fee is charged on top
// of amountSource, so the sender is debited TotalDebit.
func (c *Converter) Quote(ctx context.Context, amountSource decimal.Decimal, source, target string) (*Quote, error) {
	source, target = domain.NormalizeCurrency(source), domain.NormalizeCurrency(target)
	if !domain.IsSupportedCurrency(source) {
		return nil, domain.NewValidationError("source_currency", "unsupported currency %q", source)
	}
	if !domain.IsSupportedCurrency(target) {
		return nil, domain.NewValidationError("target_currency", "unsupported currency %q", target)
	}
	if !amountSource.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be greater than zero")
	}
	if rounded, _ := domain.RoundToMinor(amountSource, source); !rounded.Equal(amountSource) {
		return nil, domain.NewValidationError("amount", "too many decimal places for %s", source)
	}

	rate, stale, err := c.Rate(ctx, source, target)
	if err != nil {
		return nil, err
	}

	feePct := c.fees.SameCurrency
	if source != target {
		feePct = c.fees.CrossCurrency
	}
	fee, err := domain.RoundToMinor(amountSource.Mul(feePct), source)
	if err != nil {
		return nil, err
	}
	received, err := domain.NewMoney(amountSource, source).Convert(target, rate)
	if err != nil {
		return nil, err
	}

	return &Quote{
		SourceCurrency: source,
		TargetCurrency: target,
		AmountSource:   amountSource,
		ExchangeRate:   rate,
		FeePercentage:  feePct,
		Fee:            fee,
		AmountReceived: received.Amount,
		TotalDebit:     amountSource.Add(fee),
		RateStale:      stale,
	}, nil
}

// ToReference converts amount into the reference currency for limit checks.
func (c *Converter) ToReference(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	rate, _, err := c.Rate(ctx, currency, domain.ReferenceCurrency)
	if err != nil {
		return decimal.Zero, err
	}
	ref, err := domain.NewMoney(amount, currency).Convert(domain.ReferenceCurrency, rate)
	if err != nil {
		return decimal.Zero, err
	}
	return ref.Amount, nil
}
