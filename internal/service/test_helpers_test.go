package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/db"
	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/gateway"
	"github.com/ayo6706/multicurrency-wallet/internal/notify"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env")
}

// setupTestDB connects to DATABASE_URL, applies migrations and clears wallet tables.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	require.NoError(t, db.MigrateUp(connString))

	pool, err := db.Connect(context.Background(), connString)
	if err != nil {
		t.Skipf("Skipping integration test: database unreachable: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), `TRUNCATE TABLE
		card_authorizations, issued_instruments, transfers, external_events, external_deposits,
		deposit_addresses, mutation_records, balances, audit_log, idempotency_keys, accounts CASCADE`)
	require.NoError(t, err)
	return pool
}

// createFundedAccount opens an active account holding the given balances.
func createFundedAccount(t *testing.T, store *repository.Store, tier int, balances map[string]string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	q := store.Queries()
	_, err := q.CreateAccount(ctx, repository.CreateAccountParams{
		ID:               repository.ToPgUUID(id),
		Username:         "user_" + id.String()[:8],
		Email:            "user_" + id.String()[:8] + "@example.com",
		Role:             domain.RoleUser,
		VerificationTier: int16(tier),
	})
	require.NoError(t, err)

	ledger := NewLedger()
	for currency, amount := range balances {
		err := store.RunInTx(ctx, func(qtx *repository.Queries) error {
			return ledger.Credit(ctx, qtx, id, currency, decimal.RequireFromString(amount), MutationInput{
				Description:    "test funding",
				CorrelationID:  id.String(),
				IdempotencyKey: "fund:" + id.String() + ":" + currency,
			})
		})
		require.NoError(t, err)
	}
	return id
}

func balanceOf(t *testing.T, store *repository.Store, accountID uuid.UUID, currency string) decimal.Decimal {
	t.Helper()
	bal, err := store.Queries().GetBalance(context.Background(), repository.GetBalanceParams{
		AccountID: repository.ToPgUUID(accountID),
		Currency:  currency,
	})
	if isNoRows(err) {
		return decimal.Zero
	}
	require.NoError(t, err)
	return repository.Decimal(bal.Amount)
}

func countMutations(t *testing.T, pool *pgxpool.Pool, correlationID string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM mutation_records WHERE correlation_id = $1", correlationID).Scan(&n))
	return n
}

// recordingNotifier captures claim messages instead of sending them.
type recordingNotifier struct {
	messages []notify.ClaimMessage
	err      error
}

func (n *recordingNotifier) NotifyClaim(ctx context.Context, msg notify.ClaimMessage) error {
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

type testDeps struct {
	pool     *pgxpool.Pool
	store    *repository.Store
	cards    *gateway.MockCardIssuer
	chain    *gateway.MockChainNetwork
	notifier *recordingNotifier
	claims   *ClaimService
	transfer *TransferService
	ingest   *IngestionService
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	pool := setupTestDB(t)
	store := repository.NewStore(pool)

	prices := gateway.NewStaticPriceSourceFrom(map[string]decimal.Decimal{
		"USD":  decimal.NewFromInt(1),
		"USDC": decimal.NewFromInt(1),
		"EUR":  decimal.RequireFromString("0.8"),
		"GBP":  decimal.RequireFromString("0.8"),
		"NGN":  decimal.NewFromInt(1500),
	})
	conv := NewConverter(prices, NewRateCache(time.Minute), DefaultFeePolicy())

	cards := gateway.NewMockCardIssuer()
	cards.FailureRate = 0
	cards.MaxDelay = 0
	chain := gateway.NewMockChainNetwork("base", "test-seed", "test-signing-key")
	notifier := &recordingNotifier{}
	claims := NewClaimService(store, notifier, ClaimConfig{HashCost: 4})

	transfer := NewTransferService(store, conv, NewLimitGuard(DefaultTierLimits()), cards, chain, claims).
		WithRetryPolicy(gateway.RetryPolicy{MaxRetries: 0})

	return &testDeps{
		pool:     pool,
		store:    store,
		cards:    cards,
		chain:    chain,
		notifier: notifier,
		claims:   claims,
		transfer: transfer,
		ingest:   NewIngestionService(store, DefaultConfirmationThreshold),
	}
}
