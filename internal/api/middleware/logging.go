package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type accountSlotKey struct{}

// accountSlot lets the auth middleware, which runs deeper in the chain,
// report the authenticated account back to the request log.
type accountSlot struct {
	id  uuid.UUID
	set bool
}

func recordAccount(ctx context.Context, id uuid.UUID) {
	if slot, ok := ctx.Value(accountSlotKey{}).(*accountSlot); ok {
		slot.id, slot.set = id, true
	}
}

// LoggingMiddleware emits structured request logs enriched with the trace id
// and, when authenticated, the account id.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			slot := &accountSlot{}

			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), accountSlotKey{}, slot)))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", routePattern(r)),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.status),
				zap.String("trace_id", TraceIDFromContext(r.Context())),
				zap.Duration("duration", time.Since(start)),
			}
			if slot.set {
				fields = append(fields, zap.String("account_id", slot.id.String()))
			}
			switch {
			case rw.status >= http.StatusInternalServerError:
				logger.Error("http_request", fields...)
			case rw.status >= http.StatusBadRequest:
				logger.Warn("http_request", fields...)
			default:
				logger.Info("http_request", fields...)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}
