package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnits lists supported currencies and the number of fractional digits they settle in.
var minorUnits = map[string]int32{
	"USD":  2,
	"EUR":  2,
	"GBP":  2,
	"NGN":  2,
	"JPY":  0,
	"USDC": 6,
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsSupportedCurrency reports whether code is a supported currency.
func IsSupportedCurrency(code string) bool {
	_, ok := minorUnits[NormalizeCurrency(code)]
	return ok
}

// SupportedCurrencies returns the supported currency codes in sorted order.
func SupportedCurrencies() []string {
	out := make([]string, 0, len(minorUnits))
	for code := range minorUnits {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// MinorUnits returns the settlement precision of currency.
func MinorUnits(currency string) (int32, error) {
	units, ok := minorUnits[NormalizeCurrency(currency)]
	if !ok {
		return 0, NewValidationError("currency", "unsupported currency %q", currency)
	}
	return units, nil
}

// RoundToMinor rounds half-up to the currency's minor unit.
func RoundToMinor(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	units, err := MinorUnits(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Round(units), nil
}

// Money is an exact decimal amount in a specific currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney creates a Money value without rounding.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}
}

// ParseMoney parses a positive amount and rejects precision finer than the currency's minor unit.
func ParseMoney(amount, currency string) (Money, error) {
	currency = NormalizeCurrency(currency)
	units, err := MinorUnits(currency)
	if err != nil {
		return Money{}, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, NewValidationError("amount", "invalid decimal %q", amount)
	}
	if !d.IsPositive() {
		return Money{}, NewValidationError("amount", "must be greater than zero")
	}
	if !d.Equal(d.Round(units)) {
		return Money{}, NewValidationError("amount", "%s supports at most %d decimal places", currency, units)
	}
	return Money{Amount: d, Currency: currency}, nil
}

// Convert applies rate (target per source unit) and rounds once to the target's minor unit.
func (m Money) Convert(targetCurrency string, rate decimal.Decimal) (Money, error) {
	targetCurrency = NormalizeCurrency(targetCurrency)
	converted, err := RoundToMinor(m.Amount.Mul(rate), targetCurrency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: converted, Currency: targetCurrency}, nil
}

// String returns the amount at the currency's precision followed by its code.
func (m Money) String() string {
	units, err := MinorUnits(m.Currency)
	if err != nil {
		return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
	}
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(units), m.Currency)
}
