// Package idempotency persists responses of mutating API requests keyed by
// the client's Idempotency-Key. Postgres is the source of truth; Redis holds
// finished responses for fast replay.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("idempotency key not found")
	ErrHashMismatch = errors.New("idempotency key body mismatch")
	ErrInProgress   = errors.New("idempotency key in progress")
)

const (
	redisKeyPrefix = "wallet:idempotency"

	servedByPostgres = "postgres"
	servedByRedis    = "redis"
)

// Record is a finished response ready to be replayed.
type Record struct {
	Key         string `json:"key"`
	RequestHash string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
	ServedBy    string `json:"-"`
}

type Store struct {
	redis   redis.Cmdable
	queries *repository.Queries
	ttl     time.Duration
	poll    time.Duration
	now     func() time.Time
}

// NewStore keeps records for ttl. rdb may be nil, in which case every lookup
// goes to Postgres.
func NewStore(rdb redis.Cmdable, db repository.DBTX, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		redis:   rdb,
		queries: repository.New(db),
		ttl:     ttl,
		poll:    50 * time.Millisecond,
		now:     time.Now,
	}
}

// Scope namespaces a client key by the caller so two accounts never share a key.
func Scope(principal, key string) string {
	if principal == "" {
		principal = "anonymous"
	}
	return principal + ":" + key
}

// Lookup returns the finished response for key, ErrInProgress while the first
// request is still running, or ErrHashMismatch when the key was used for a
// different request.
func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	rec, ok := s.cached(ctx, key)
	if !ok {
		row, err := s.queries.GetIdempotencyKey(ctx, key)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("lookup idempotency key: %w", err)
		}
		if row.RequestHash == requestHash && row.InProgress {
			return nil, ErrInProgress
		}
		rec = fromRow(row)
		if !row.InProgress {
			s.cache(ctx, rec)
		}
	}
	if rec.RequestHash != requestHash {
		return nil, ErrHashMismatch
	}
	return rec, nil
}

// Reserve claims key for this request. It returns false when another request
// already holds it.
func (s *Store) Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	_, err := s.queries.ReserveIdempotencyKey(ctx, repository.ReserveIdempotencyKeyParams{
		IdempotencyKey: key,
		RequestHash:    requestHash,
		Method:         method,
		Path:           path,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
}

// Finalize stores the response of the request holding key.
func (s *Store) Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*Record, error) {
	row, err := s.queries.FinalizeIdempotencyKey(ctx, repository.FinalizeIdempotencyKeyParams{
		ResponseStatus: int32(status),
		ResponseBody:   body,
		ContentType:    contentType,
		IdempotencyKey: key,
		RequestHash:    requestHash,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finalize idempotency key: %w", err)
	}
	rec := fromRow(row)
	s.cache(ctx, rec)
	return rec, nil
}

// Release drops an unfinished reservation so a retry runs the request again.
func (s *Store) Release(ctx context.Context, key, requestHash string) error {
	if _, err := s.queries.ReleaseIdempotencyKey(ctx, repository.ReleaseIdempotencyKeyParams{
		IdempotencyKey: key,
		RequestHash:    requestHash,
	}); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Purge deletes keys older than the retention window, including reservations
// abandoned by a crashed request. It returns how many keys were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl)
	n, err := s.queries.PurgeIdempotencyKeys(ctx, repository.Timestamptz(&cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	return n, nil
}

// WaitForCompletion polls until the request holding key finishes or ctx ends.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if !errors.Is(err, ErrInProgress) {
			return rec, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func fromRow(row repository.IdempotencyKey) *Record {
	return &Record{
		Key:         row.IdempotencyKey,
		RequestHash: row.RequestHash,
		Status:      int(row.ResponseStatus),
		Body:        row.ResponseBody,
		ContentType: row.ContentType,
		ServedBy:    servedByPostgres,
	}
}

func (s *Store) cached(ctx context.Context, key string) (*Record, bool) {
	if s.redis == nil {
		return nil, false
	}
	val, err := s.redis.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis idempotency lookup failed", zap.Error(err))
		}
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, false
	}
	rec.ServedBy = servedByRedis
	return &rec, true
}

func (s *Store) cache(ctx context.Context, rec *Record) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		zap.L().Warn("marshal idempotency cache", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, redisKey(rec.Key), payload, s.ttl).Err(); err != nil {
		zap.L().Warn("redis idempotency cache set failed", zap.Error(err))
	}
}

func redisKey(key string) string {
	return redisKeyPrefix + ":" + key
}
