package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPriceSourceCrossRate(t *testing.T) {
	src := NewStaticPriceSourceFrom(map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.8"),
	})

	rate, err := src.Rate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "1.25", rate.String())

	rate, err = src.Rate(context.Background(), "usd", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	_, err = src.Rate(context.Background(), "USD", "XYZ")
	require.ErrorIs(t, err, ErrUnknownPair)
}

func TestHTTPPriceSourceRetriesRateLimits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EUR", r.URL.Query().Get("base"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"USD":"1.1"}}`))
	}))
	defer srv.Close()

	src := NewHTTPPriceSource(srv.URL, "")
	src.Retry = RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

	rate, err := src.Rate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "1.1", rate.String())
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPPriceSourceDoesNotRetryHardFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad pair", http.StatusBadRequest)
	}))
	defer srv.Close()

	src := NewHTTPPriceSource(srv.URL, "")
	src.Retry = RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

	_, err := src.Rate(context.Background(), "EUR", "USD")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPPriceSourceGivesUpAfterBoundedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewHTTPPriceSource(srv.URL, "")
	src.Retry = RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

	_, err := src.Rate(context.Background(), "EUR", "USD")
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())
}
