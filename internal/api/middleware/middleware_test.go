package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret-0123456789-test-secret"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthenticatorRoundTrip(t *testing.T) {
	auth := NewAuthenticator(testSecret, "issuer", "audience")
	accountID := uuid.New()
	token, err := auth.IssueToken(accountID, domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	var gotID uuid.UUID
	var gotRole string
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = AccountIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, accountID, gotID)
	assert.Equal(t, domain.RoleAdmin, gotRole)
}

func TestAuthenticatorRejects(t *testing.T) {
	auth := NewAuthenticator(testSecret, "issuer", "audience")
	expired := NewAuthenticator(testSecret, "issuer", "audience")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.IssueToken(uuid.New(), domain.RoleUser, time.Hour)
	require.NoError(t, err)

	foreign, err := NewAuthenticator(testSecret, "other-issuer", "audience").IssueToken(uuid.New(), domain.RoleUser, time.Hour)
	require.NoError(t, err)

	tests := map[string]string{
		"missing header": "",
		"not bearer":     "Token abc",
		"garbage":        "Bearer not-a-jwt",
		"expired":        "Bearer " + old,
		"wrong issuer":   "Bearer " + foreign,
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			auth.Middleware(okHandler).ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(domain.RoleAdmin)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithAccount(req.Context(), uuid.New(), domain.RoleUser))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = req.WithContext(WithAccount(req.Context(), uuid.New(), domain.RoleAdmin))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func unreachableRedis() redis.Cmdable {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestUserRateLimiterFailsOpen(t *testing.T) {
	for name, rdb := range map[string]redis.Cmdable{"nil store": nil, "unreachable store": unreachableRedis()} {
		t.Run(name, func(t *testing.T) {
			h := NewUserRateLimiter(rdb, 1, time.Minute, true).Middleware(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithAccount(req.Context(), uuid.New(), domain.RoleUser))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestUserRateLimiterFailsClosed(t *testing.T) {
	h := NewUserRateLimiter(unreachableRedis(), 1, time.Minute, false).Middleware(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasSuffix(body["type"].(string), "rate-limit-unavailable"))
}

func TestPublicRateLimiter(t *testing.T) {
	h := PublicRateLimiter(2)(okHandler)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestTraceMiddlewareEchoesRequestID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "trace-123", TraceIDFromContext(r.Context()))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "trace-123", w.Header().Get("X-Trace-ID"))
}

func TestLoggingMiddlewareSeesAuthenticatedAccount(t *testing.T) {
	auth := NewAuthenticator(testSecret, "issuer", "audience")
	accountID := uuid.New()
	token, err := auth.IssueToken(accountID, domain.RoleUser, time.Hour)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	h := LoggingMiddleware(zap.New(core))(auth.Middleware(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, accountID.String(), entries[0].ContextMap()["account_id"])
}
