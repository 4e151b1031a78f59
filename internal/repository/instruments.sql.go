package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const instrumentColumns = `id, transfer_id, kind, provider_card_id, spending_limit, amount_consumed, currency, status,
    lock_state, code_hash, failed_attempts, expires_at, unlocked_at, claimed_by, created_at, updated_at`

func scanIssuedInstrument(row pgx.Row) (IssuedInstrument, error) {
	var i IssuedInstrument
	err := row.Scan(
		&i.ID,
		&i.TransferID,
		&i.Kind,
		&i.ProviderCardID,
		&i.SpendingLimit,
		&i.AmountConsumed,
		&i.Currency,
		&i.Status,
		&i.LockState,
		&i.CodeHash,
		&i.FailedAttempts,
		&i.ExpiresAt,
		&i.UnlockedAt,
		&i.ClaimedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createIssuedInstrument = `-- name: CreateIssuedInstrument :one
INSERT INTO issued_instruments (
    id, transfer_id, kind, provider_card_id, spending_limit, currency, status, lock_state, code_hash, expires_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + instrumentColumns

type CreateIssuedInstrumentParams struct {
	ID             pgtype.UUID        `json:"id"`
	TransferID     pgtype.UUID        `json:"transfer_id"`
	Kind           string             `json:"kind"`
	ProviderCardID *string            `json:"provider_card_id"`
	SpendingLimit  pgtype.Numeric     `json:"spending_limit"`
	Currency       string             `json:"currency"`
	Status         string             `json:"status"`
	LockState      *string            `json:"lock_state"`
	CodeHash       *string            `json:"code_hash"`
	ExpiresAt      pgtype.Timestamptz `json:"expires_at"`
}

func (q *Queries) CreateIssuedInstrument(ctx context.Context, arg CreateIssuedInstrumentParams) (IssuedInstrument, error) {
	row := q.db.QueryRow(ctx, createIssuedInstrument,
		arg.ID,
		arg.TransferID,
		arg.Kind,
		arg.ProviderCardID,
		arg.SpendingLimit,
		arg.Currency,
		arg.Status,
		arg.LockState,
		arg.CodeHash,
		arg.ExpiresAt,
	)
	return scanIssuedInstrument(row)
}

const getInstrumentByTransfer = `-- name: GetInstrumentByTransfer :one
SELECT ` + instrumentColumns + `
FROM issued_instruments
WHERE transfer_id = $1
`

func (q *Queries) GetInstrumentByTransfer(ctx context.Context, transferID pgtype.UUID) (IssuedInstrument, error) {
	return scanIssuedInstrument(q.db.QueryRow(ctx, getInstrumentByTransfer, transferID))
}

const getInstrumentByTransferForUpdate = `-- name: GetInstrumentByTransferForUpdate :one
SELECT ` + instrumentColumns + `
FROM issued_instruments
WHERE transfer_id = $1
FOR UPDATE
`

func (q *Queries) GetInstrumentByTransferForUpdate(ctx context.Context, transferID pgtype.UUID) (IssuedInstrument, error) {
	return scanIssuedInstrument(q.db.QueryRow(ctx, getInstrumentByTransferForUpdate, transferID))
}

const getInstrumentByProviderCardForUpdate = `-- name: GetInstrumentByProviderCardForUpdate :one
SELECT ` + instrumentColumns + `
FROM issued_instruments
WHERE provider_card_id = $1
FOR UPDATE
`

func (q *Queries) GetInstrumentByProviderCardForUpdate(ctx context.Context, providerCardID string) (IssuedInstrument, error) {
	return scanIssuedInstrument(q.db.QueryRow(ctx, getInstrumentByProviderCardForUpdate, providerCardID))
}

const recordFailedUnlockAttempt = `-- name: RecordFailedUnlockAttempt :one
UPDATE issued_instruments
SET failed_attempts = failed_attempts + 1, updated_at = NOW()
WHERE id = $1
RETURNING failed_attempts
`

func (q *Queries) RecordFailedUnlockAttempt(ctx context.Context, id pgtype.UUID) (int32, error) {
	row := q.db.QueryRow(ctx, recordFailedUnlockAttempt, id)
	var attempts int32
	err := row.Scan(&attempts)
	return attempts, err
}

const unlockInstrument = `-- name: UnlockInstrument :execrows
UPDATE issued_instruments
SET lock_state = 'UNLOCKED',
    amount_consumed = spending_limit,
    claimed_by = $1,
    unlocked_at = NOW(),
    updated_at = NOW()
WHERE id = $2 AND lock_state = 'LOCKED' AND status = 'ACTIVE'
`

type UnlockInstrumentParams struct {
	ClaimedBy pgtype.UUID `json:"claimed_by"`
	ID        pgtype.UUID `json:"id"`
}

func (q *Queries) UnlockInstrument(ctx context.Context, arg UnlockInstrumentParams) (int64, error) {
	result, err := q.db.Exec(ctx, unlockInstrument, arg.ClaimedBy, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const consumeInstrument = `-- name: ConsumeInstrument :execrows
UPDATE issued_instruments
SET amount_consumed = amount_consumed + $1, updated_at = NOW()
WHERE id = $2 AND status = 'ACTIVE' AND amount_consumed + $1 <= spending_limit
`

type ConsumeInstrumentParams struct {
	Amount pgtype.Numeric `json:"amount"`
	ID     pgtype.UUID    `json:"id"`
}

// ConsumeInstrument affects zero rows when the spend would exceed the limit or the instrument is not active.
func (q *Queries) ConsumeInstrument(ctx context.Context, arg ConsumeInstrumentParams) (int64, error) {
	result, err := q.db.Exec(ctx, consumeInstrument, arg.Amount, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const updateInstrumentStatus = `-- name: UpdateInstrumentStatus :execrows
UPDATE issued_instruments
SET status = $1, updated_at = NOW()
WHERE id = $2
`

type UpdateInstrumentStatusParams struct {
	Status string      `json:"status"`
	ID     pgtype.UUID `json:"id"`
}

func (q *Queries) UpdateInstrumentStatus(ctx context.Context, arg UpdateInstrumentStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateInstrumentStatus, arg.Status, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const cancelExpiredClaims = `-- name: CancelExpiredClaims :many
UPDATE issued_instruments
SET status = 'CANCELED', updated_at = NOW()
WHERE id IN (
    SELECT id FROM issued_instruments
    WHERE kind = 'CLAIM_LINK'
      AND lock_state = 'LOCKED'
      AND status <> 'CANCELED'
      AND expires_at <= $1
    ORDER BY expires_at
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
RETURNING id, transfer_id
`

type CancelExpiredClaimsParams struct {
	Now   time.Time `json:"now"`
	Limit int32     `json:"limit"`
}

type CancelExpiredClaimsRow struct {
	ID         pgtype.UUID `json:"id"`
	TransferID pgtype.UUID `json:"transfer_id"`
}

func (q *Queries) CancelExpiredClaims(ctx context.Context, arg CancelExpiredClaimsParams) ([]CancelExpiredClaimsRow, error) {
	rows, err := q.db.Query(ctx, cancelExpiredClaims, arg.Now, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CancelExpiredClaimsRow
	for rows.Next() {
		var i CancelExpiredClaimsRow
		if err := rows.Scan(&i.ID, &i.TransferID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertCardAuthorization = `-- name: InsertCardAuthorization :execrows
INSERT INTO card_authorizations (id, instrument_id, external_id, amount, currency, merchant, approved)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (external_id) DO NOTHING
`

type InsertCardAuthorizationParams struct {
	ID           pgtype.UUID    `json:"id"`
	InstrumentID pgtype.UUID    `json:"instrument_id"`
	ExternalID   string         `json:"external_id"`
	Amount       pgtype.Numeric `json:"amount"`
	Currency     string         `json:"currency"`
	Merchant     string         `json:"merchant"`
	Approved     bool           `json:"approved"`
}

func (q *Queries) InsertCardAuthorization(ctx context.Context, arg InsertCardAuthorizationParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertCardAuthorization,
		arg.ID,
		arg.InstrumentID,
		arg.ExternalID,
		arg.Amount,
		arg.Currency,
		arg.Merchant,
		arg.Approved,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
