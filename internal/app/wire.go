package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/api"
	"github.com/ayo6706/multicurrency-wallet/internal/config"
	"github.com/ayo6706/multicurrency-wallet/internal/db"
	"github.com/ayo6706/multicurrency-wallet/internal/gateway"
	"github.com/ayo6706/multicurrency-wallet/internal/idempotency"
	"github.com/ayo6706/multicurrency-wallet/internal/notify"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Components is the wired object graph shared by the server and the CLI.
type Components struct {
	Config         *config.Config
	Pool           *pgxpool.Pool
	Redis          *redis.Client
	Store          *repository.Store
	Idempotency    *idempotency.Store
	Services       api.Services
	Reconciliation *service.ReconciliationService
	Poller         *service.DepositPoller
}

// Close releases the database pool and the Redis client.
func (c *Components) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// Build connects to Postgres and Redis and wires every service.
func Build(ctx context.Context, cfg *config.Config) (*Components, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	store := repository.NewStore(pool)

	var prices gateway.PriceSource = gateway.NewStaticPriceSource()
	if cfg.PriceSourceURL != "" {
		prices = gateway.NewHTTPPriceSource(cfg.PriceSourceURL, cfg.PriceSourceAPIKey)
	}
	fees := service.DefaultFeePolicy()
	fees.CrossCurrency = cfg.CrossCurrencyFee
	converter := service.NewConverter(prices, service.NewRateCache(cfg.RateCacheTTL), fees)

	cards := gateway.NewMockCardIssuer()
	cards.FailureRate = cfg.CardFailureRate
	chain := gateway.NewMockChainNetwork(cfg.ChainNetwork, cfg.ChainSeed, cfg.HotWalletSigningKey)

	claims := service.NewClaimService(store, newClaimNotifier(cfg), service.ClaimConfig{
		TTL:         cfg.ClaimTTL,
		MaxAttempts: cfg.ClaimMaxAttempts,
		BaseURL:     cfg.ClaimBaseURL,
	})

	retry := gateway.DefaultRetryPolicy()
	retry.MaxRetries = cfg.ProviderMaxRetries
	transfers := service.NewTransferService(store, converter, service.NewLimitGuard(tierLimits(cfg)), cards, chain, claims).
		WithRetryPolicy(retry)

	ingestion := service.NewIngestionService(store, cfg.ConfirmationThreshold)

	return &Components{
		Config:      cfg,
		Pool:        pool,
		Redis:       redisClient,
		Store:       store,
		Idempotency: idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL),
		Services: api.Services{
			Accounts:  service.NewAccountService(store, cfg.AllowOpeningBalances),
			Transfers: transfers,
			Converter: converter,
			Claims:    claims,
			Deposits:  service.NewDepositAddressService(store, chain),
			Ingestion: ingestion,
			Verifier:  service.NewSignatureVerifier(cfg.WebhookHMACKey, cfg.WebhookSkipSignature),
		},
		Reconciliation: service.NewReconciliationService(store),
		Poller:         service.NewDepositPoller(store, chain, ingestion, cfg.DepositPollBatchSize),
	}, nil
}

func tierLimits(cfg *config.Config) map[int]service.TierLimits {
	limits := make(map[int]service.TierLimits, len(cfg.TierLimits))
	for tier, l := range cfg.TierLimits {
		limits[tier] = service.TierLimits{PerTransaction: l.PerTransaction, Daily: l.Daily}
	}
	return limits
}

func newClaimNotifier(cfg *config.Config) *notify.ClaimNotifier {
	var email notify.EmailSender = notify.LogSender{}
	if cfg.EmailAPIURL != "" {
		email = notify.NewHTTPEmailSender(cfg.EmailAPIURL, cfg.EmailAPIKey)
	}

	var sms notify.SMSSender = notify.LogSender{}
	if cfg.TwilioAccountSID != "" {
		twilio, err := notify.NewTwilioSMSSender(cfg.TwilioAccountSID, cfg.TwilioAPIKey, cfg.TwilioAPISecret, cfg.TwilioFromNumber)
		if err != nil {
			zap.L().Warn("twilio disabled, unlock codes will be logged", zap.Error(err))
		} else {
			sms = twilio
		}
	}
	return notify.NewClaimNotifier(email, sms)
}

// newRedisClient returns a client even when Redis is down at startup. The
// rate limiter and idempotency cache degrade on their own.
func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis ping failed, continuing without cache", zap.Error(err))
	}
	return client, nil
}
