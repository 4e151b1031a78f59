package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StaticPriceSource quotes from a fixed table of units per US dollar.
type StaticPriceSource struct {
	perUSD map[string]decimal.Decimal
}

// NewStaticPriceSource returns a source seeded with development rates.
func NewStaticPriceSource() *StaticPriceSource {
	return &StaticPriceSource{perUSD: map[string]decimal.Decimal{
		"USD":  decimal.NewFromInt(1),
		"USDC": decimal.NewFromInt(1),
		"EUR":  decimal.RequireFromString("0.92"),
		"GBP":  decimal.RequireFromString("0.79"),
		"NGN":  decimal.RequireFromString("1550"),
		"JPY":  decimal.RequireFromString("150"),
	}}
}

// NewStaticPriceSourceFrom builds a source from an explicit units-per-USD table.
func NewStaticPriceSourceFrom(perUSD map[string]decimal.Decimal) *StaticPriceSource {
	cp := make(map[string]decimal.Decimal, len(perUSD))
	for k, v := range perUSD {
		cp[strings.ToUpper(k)] = v
	}
	return &StaticPriceSource{perUSD: cp}
}

// Rate returns quote/base derived from the per-USD table.
func (s *StaticPriceSource) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	if base == quote {
		return decimal.NewFromInt(1), nil
	}
	b, ok1 := s.perUSD[base]
	q, ok2 := s.perUSD[quote]
	if !ok1 || !ok2 || b.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrUnknownPair, base, quote)
	}
	return q.DivRound(b, 12), nil
}

// HTTPPriceSource fetches rates from a JSON endpoint of the form
// GET {BaseURL}/latest?base=EUR&symbols=USD -> {"rates":{"USD":"1.1"}}.
type HTTPPriceSource struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Retry      RetryPolicy
}

// NewHTTPPriceSource creates a source with a 5s client timeout.
func NewHTTPPriceSource(baseURL, apiKey string) *HTTPPriceSource {
	return &HTTPPriceSource{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Retry:      DefaultRetryPolicy(),
	}
}

type latestRatesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (s *HTTPPriceSource) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	if base == quote {
		return decimal.NewFromInt(1), nil
	}

	var rate decimal.Decimal
	err := s.Retry.Do(ctx, "price.latest", func() error {
		r, err := s.fetch(ctx, base, quote)
		if err != nil {
			return err
		}
		rate = r
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

func (s *HTTPPriceSource) fetch(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("base", base)
	q.Set("symbols", quote)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/latest?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read price response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return decimal.Zero, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return decimal.Zero, fmt.Errorf("price provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed latestRatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("decode price response: %w", err)
	}
	rate, ok := parsed.Rates[quote]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrUnknownPair, base, quote)
	}
	return rate, nil
}
