package api

import (
	"net/http"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/api/handler"
	"github.com/ayo6706/multicurrency-wallet/internal/api/middleware"
	"github.com/ayo6706/multicurrency-wallet/internal/api/spec"
	"github.com/ayo6706/multicurrency-wallet/internal/config"
	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/idempotency"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Accounts  *service.AccountService
	Transfers *service.TransferService
	Converter *service.Converter
	Claims    *service.ClaimService
	Deposits  *service.DepositAddressService
	Ingestion *service.IngestionService
	Verifier  *service.SignatureVerifier
}

type Router struct {
	cfg         *config.Config
	logger      *zap.Logger
	db          *pgxpool.Pool
	redis       redis.Cmdable
	idempotency *idempotency.Store
	auth        *middleware.Authenticator
	svc         Services
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, rdb redis.Cmdable, idem *idempotency.Store, svc Services) *Router {
	return &Router{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		redis:       rdb,
		idempotency: idem,
		auth:        middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		svc:         svc,
	}
}

// Authenticator exposes the token issuer, used by tooling and tests.
func (api *Router) Authenticator() *middleware.Authenticator {
	return api.auth
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	authHandler := handler.NewAuthHandler(api.svc.Accounts, api.auth, api.cfg.EnableDevLogin)
	accountHandler := handler.NewAccountHandler(api.svc.Accounts)
	transferHandler := handler.NewTransferHandler(api.svc.Transfers, api.svc.Converter)
	claimHandler := handler.NewClaimHandler(api.svc.Claims)
	depositHandler := handler.NewDepositHandler(api.svc.Deposits)
	webhookHandler := handler.NewWebhookHandler(api.svc.Ingestion, api.svc.Verifier)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/auth/login", authHandler.Login)
		r.Post("/v1/accounts", accountHandler.Signup)
		r.Post("/v1/webhooks/card", webhookHandler.Card)
		r.Post("/v1/webhooks/chain", webhookHandler.Chain)
	})

	userLimiter := middleware.NewUserRateLimiter(api.redis, api.cfg.UserRateLimitPerMin, time.Minute, api.cfg.RateLimitFailOpen)
	idem := middleware.IdempotencyMiddleware(api.idempotency, api.logger)

	r.Group(func(r chi.Router) {
		r.Use(api.auth.Middleware)
		r.Use(userLimiter.Middleware)

		r.Get("/v1/accounts/me", accountHandler.Me)
		r.Get("/v1/accounts/me/balances", accountHandler.Balances)
		r.Get("/v1/accounts/me/statement", accountHandler.Statement)
		r.Post("/v1/quotes", transferHandler.Quote)
		r.With(idem).Post("/v1/transfers", transferHandler.CreateTransfer)
		r.Get("/v1/transfers/{id}", transferHandler.GetTransfer)
		r.With(idem).Post("/v1/claims/{id}/unlock", claimHandler.Unlock)
		r.Get("/v1/deposit-addresses/{network}", depositHandler.GetAddress)

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Get("/transfers/failed", transferHandler.ListFailed)
			r.With(idem).Post("/transfers/{id}/resolve", transferHandler.Resolve)
			r.Put("/accounts/{id}/tier", accountHandler.SetTier)
			r.Post("/accounts/{id}/deactivate", accountHandler.Deactivate)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.RespondError(w, r, http.StatusNotFound, "route/not-found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handler.RespondError(w, r, http.StatusMethodNotAllowed, "route/method-not-allowed", "method not allowed")
	})
	return r
}
