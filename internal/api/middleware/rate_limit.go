package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/api/problem"
	"github.com/ayo6706/multicurrency-wallet/internal/observability"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PublicRateLimiter limits requests per IP for unauthenticated routes.
func PublicRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			problem.Write(w, r, http.StatusTooManyRequests, problem.Type("rate-limit-exceeded"), http.StatusText(http.StatusTooManyRequests),
				fmt.Sprintf("Rate limit of %d req/s exceeded for this IP", rps))
		}),
	)
}

// UserRateLimiter is a fixed-window per-account limiter backed by Redis so the
// limit holds across API replicas.
type UserRateLimiter struct {
	rdb      redis.Cmdable
	limit    int
	window   time.Duration
	failOpen bool
	now      func() time.Time
}

// NewUserRateLimiter allows limit requests per window per account. When the
// limiter store fails, requests pass if failOpen is set and are rejected
// with 503 otherwise.
func NewUserRateLimiter(rdb redis.Cmdable, limit int, window time.Duration, failOpen bool) *UserRateLimiter {
	return &UserRateLimiter{rdb: rdb, limit: limit, window: window, failOpen: failOpen, now: time.Now}
}

func (l *UserRateLimiter) allow(ctx context.Context, principal string) (bool, int64, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	key := "wallet:ratelimit:" + principal + ":" + strconv.FormatInt(bucket, 10)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	count := incr.Val()
	return count <= int64(l.limit), count, nil
}

func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := "ip:" + clientIP(r)
		if id, ok := AccountIDFromContext(r.Context()); ok {
			principal = "account:" + id.String()
		}

		if l.rdb == nil {
			l.storeFailure(w, r, next, principal, fmt.Errorf("rate limiter store not configured"))
			return
		}
		allowed, count, err := l.allow(r.Context(), principal)
		if err != nil {
			l.storeFailure(w, r, next, principal, err)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(l.limit)-count, 0), 10))
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			problem.Write(w, r, http.StatusTooManyRequests, problem.Type("rate-limit-exceeded"), http.StatusText(http.StatusTooManyRequests),
				fmt.Sprintf("Rate limit of %d requests per %s exceeded for this account", l.limit, l.window))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *UserRateLimiter) storeFailure(w http.ResponseWriter, r *http.Request, next http.Handler, principal string, err error) {
	observability.IncrementRateLimiterError()
	zap.L().Warn("rate limiter store unavailable",
		zap.Error(err),
		zap.String("principal", principal),
		zap.Bool("fail_open", l.failOpen),
	)
	if l.failOpen {
		next.ServeHTTP(w, r)
		return
	}
	problem.Write(w, r, http.StatusServiceUnavailable, problem.Type("rate-limit-unavailable"), http.StatusText(http.StatusServiceUnavailable),
		"rate limiting is temporarily unavailable")
}

func clientIP(r *http.Request) string {
	if ip, err := httprate.KeyByRealIP(r); err == nil && ip != "" {
		return ip
	}
	return r.RemoteAddr
}
