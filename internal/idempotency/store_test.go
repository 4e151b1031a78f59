package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/db"
	"github.com/ayo6706/multicurrency-wallet/internal/testutil/dblock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env")
	release := dblock.Acquire()
	code := m.Run()
	release()
	os.Exit(code)
}

func setupStore(t *testing.T) (*Store, *pgxpool.Pool) {
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
	_, err = pool.Exec(context.Background(), "TRUNCATE TABLE idempotency_keys")
	require.NoError(t, err)
	return NewStore(nil, pool, time.Hour), pool
}

func TestReserveFinalizeLookup(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	key := Scope("acct-1", "k1")

	_, err := s.Lookup(ctx, key, "h1")
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Reserve(ctx, key, "h1", "POST", "/v1/transfers")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Reserve(ctx, key, "h1", "POST", "/v1/transfers")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Lookup(ctx, key, "h1")
	assert.ErrorIs(t, err, ErrInProgress)
	_, err = s.Lookup(ctx, key, "h2")
	assert.ErrorIs(t, err, ErrHashMismatch)

	_, err = s.Finalize(ctx, key, "h1", 201, []byte(`{"ok":true}`), "application/json")
	require.NoError(t, err)

	rec, err := s.Lookup(ctx, key, "h1")
	require.NoError(t, err)
	assert.Equal(t, 201, rec.Status)
	assert.JSONEq(t, `{"ok":true}`, string(rec.Body))
	assert.Equal(t, servedByPostgres, rec.ServedBy)
}

func TestReleaseAllowsRetry(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	key := Scope("acct-1", "k2")

	ok, err := s.Reserve(ctx, key, "h1", "POST", "/v1/transfers")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Release(ctx, key, "h1"))

	ok, err = s.Reserve(ctx, key, "h1", "POST", "/v1/transfers")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScopeSeparatesAccounts(t *testing.T) {
	assert.NotEqual(t, Scope("a", "k"), Scope("b", "k"))
	assert.Equal(t, "anonymous:k", Scope("", "k"))
}

func TestPurgeRemovesOldKeys(t *testing.T) {
	s, pool := setupStore(t)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "old", "h", "POST", "/v1/transfers")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Reserve(ctx, "fresh", "h", "POST", "/v1/transfers")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = pool.Exec(ctx, "UPDATE idempotency_keys SET updated_at = NOW() - INTERVAL '2 hours' WHERE idempotency_key = 'old'")
	require.NoError(t, err)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Lookup(ctx, "old", "h")
	assert.ErrorIs(t, err, ErrNotFound)
}
