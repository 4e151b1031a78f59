package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ayo6706/multicurrency-wallet/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env")
}

func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	require.NoError(t, db.MigrateUp(dsn))
	pool, err := db.Connect(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func createTestAccount(t *testing.T, q *Queries) Account {
	t.Helper()
	id := uuid.New()
	acc, err := q.CreateAccount(context.Background(), CreateAccountParams{
		ID:       ToPgUUID(id),
		Username: "repo_" + id.String()[:8],
		Email:    "repo_" + id.String()[:8] + "@example.com",
		Role:     "user",
	})
	require.NoError(t, err)
	return acc
}

func TestConditionalDebitNeverGoesNegative(t *testing.T) {
	pool := integrationPool(t)
	q := New(pool)
	ctx := context.Background()
	acc := createTestAccount(t, q)

	rows, err := q.CreditBalance(ctx, CreditBalanceParams{AccountID: acc.ID, Currency: "USD", Amount: Numeric(decimal.RequireFromString("10.00"))})
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	rows, err = q.DebitBalance(ctx, DebitBalanceParams{Amount: Numeric(decimal.RequireFromString("10.01")), AccountID: acc.ID, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	rows, err = q.DebitBalance(ctx, DebitBalanceParams{Amount: Numeric(decimal.RequireFromString("10.00")), AccountID: acc.ID, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	bal, err := q.GetBalance(ctx, GetBalanceParams{AccountID: acc.ID, Currency: "USD"})
	require.NoError(t, err)
	assert.True(t, Decimal(bal.Amount).IsZero())
}

func TestMutationIdempotencyKeyIsUnique(t *testing.T) {
	pool := integrationPool(t)
	q := New(pool)
	ctx := context.Background()
	acc := createTestAccount(t, q)
	key := "deposit:" + uuid.NewString()

	insert := func() int64 {
		rows, err := q.InsertMutationRecord(ctx, InsertMutationRecordParams{
			ID:             ToPgUUID(uuid.New()),
			AccountID:      acc.ID,
			Direction:      "credit",
			Amount:         Numeric(decimal.NewFromInt(5)),
			Currency:       "USDC",
			Description:    "deposit",
			CorrelationID:  key,
			IdempotencyKey: &key,
		})
		require.NoError(t, err)
		return rows
	}
	assert.Equal(t, int64(1), insert())
	assert.Equal(t, int64(0), insert())
}

func TestMutationRecordsAreAppendOnly(t *testing.T) {
	pool := integrationPool(t)
	q := New(pool)
	ctx := context.Background()
	acc := createTestAccount(t, q)
	id := uuid.New()

	_, err := q.InsertMutationRecord(ctx, InsertMutationRecordParams{
		ID:            ToPgUUID(id),
		AccountID:     acc.ID,
		Direction:     "credit",
		Amount:        Numeric(decimal.NewFromInt(1)),
		Currency:      "USD",
		Description:   "opening balance",
		CorrelationID: id.String(),
	})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, "UPDATE mutation_records SET amount = 2 WHERE id = $1", id)
	require.Error(t, err)
	_, err = pool.Exec(ctx, "DELETE FROM mutation_records WHERE id = $1", id)
	require.Error(t, err)
}

func TestReserveIdempotencyKeyConflict(t *testing.T) {
	pool := integrationPool(t)
	q := New(pool)
	ctx := context.Background()
	key := uuid.NewString()

	_, err := q.ReserveIdempotencyKey(ctx, ReserveIdempotencyKeyParams{IdempotencyKey: key, RequestHash: "h", Method: "POST", Path: "/v1/transfers"})
	require.NoError(t, err)
	_, err = q.ReserveIdempotencyKey(ctx, ReserveIdempotencyKeyParams{IdempotencyKey: key, RequestHash: "h", Method: "POST", Path: "/v1/transfers"})
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}
