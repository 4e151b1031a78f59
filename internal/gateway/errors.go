package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	// ErrRateLimited marks a transient throttling response from a provider.
	ErrRateLimited            = errors.New("provider rate limited")
	ErrHotWalletNotConfigured = errors.New("hot wallet signing key not configured")
	ErrUnknownPair            = errors.New("unknown currency pair")
)

// IsRetryable reports whether err is a transient rate-limit failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// RetryPolicy bounds retries of rate-limited provider calls.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Do runs op, retrying only rate-limited failures with exponential backoff.
func (p RetryPolicy) Do(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0

	attempt := 0
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		attempt++
		if attempt > p.MaxRetries {
			return backoff.Permanent(err)
		}
		zap.L().Warn("provider rate limited, retrying", zap.String("call", name), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, backoff.WithContext(b, ctx))
}
