package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const transferColumns = `id, sender_id, recipient_id, recipient_email, recipient_phone, destination_address, kind,
    source_currency, target_currency, amount_source, fee, fee_percentage, exchange_rate, amount_received,
    total_debit, status, failure_reason, provider_ref, reference_id, resolution, resolved_by, resolved_at,
    created_at, updated_at`

func scanTransfer(row pgx.Row) (Transfer, error) {
	var i Transfer
	err := row.Scan(
		&i.ID,
		&i.SenderID,
		&i.RecipientID,
		&i.RecipientEmail,
		&i.RecipientPhone,
		&i.DestinationAddress,
		&i.Kind,
		&i.SourceCurrency,
		&i.TargetCurrency,
		&i.AmountSource,
		&i.Fee,
		&i.FeePercentage,
		&i.ExchangeRate,
		&i.AmountReceived,
		&i.TotalDebit,
		&i.Status,
		&i.FailureReason,
		&i.ProviderRef,
		&i.ReferenceID,
		&i.Resolution,
		&i.ResolvedBy,
		&i.ResolvedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createTransfer = `-- name: CreateTransfer :one
INSERT INTO transfers (
    id, sender_id, recipient_id, recipient_email, recipient_phone, destination_address, kind,
    source_currency, target_currency, amount_source, fee, fee_percentage, exchange_rate,
    amount_received, total_debit, status, reference_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING ` + transferColumns

type CreateTransferParams struct {
	ID                 pgtype.UUID    `json:"id"`
	SenderID           pgtype.UUID    `json:"sender_id"`
	RecipientID        pgtype.UUID    `json:"recipient_id"`
	RecipientEmail     *string        `json:"recipient_email"`
	RecipientPhone     *string        `json:"recipient_phone"`
	DestinationAddress *string        `json:"destination_address"`
	Kind               string         `json:"kind"`
	SourceCurrency     string         `json:"source_currency"`
	TargetCurrency     string         `json:"target_currency"`
	AmountSource       pgtype.Numeric `json:"amount_source"`
	Fee                pgtype.Numeric `json:"fee"`
	FeePercentage      pgtype.Numeric `json:"fee_percentage"`
	ExchangeRate       pgtype.Numeric `json:"exchange_rate"`
	AmountReceived     pgtype.Numeric `json:"amount_received"`
	TotalDebit         pgtype.Numeric `json:"total_debit"`
	Status             string         `json:"status"`
	ReferenceID        string         `json:"reference_id"`
}

func (q *Queries) CreateTransfer(ctx context.Context, arg CreateTransferParams) (Transfer, error) {
	row := q.db.QueryRow(ctx, createTransfer,
		arg.ID,
		arg.SenderID,
		arg.RecipientID,
		arg.RecipientEmail,
		arg.RecipientPhone,
		arg.DestinationAddress,
		arg.Kind,
		arg.SourceCurrency,
		arg.TargetCurrency,
		arg.AmountSource,
		arg.Fee,
		arg.FeePercentage,
		arg.ExchangeRate,
		arg.AmountReceived,
		arg.TotalDebit,
		arg.Status,
		arg.ReferenceID,
	)
	return scanTransfer(row)
}

const getTransfer = `-- name: GetTransfer :one
SELECT ` + transferColumns + `
FROM transfers
WHERE id = $1
`

func (q *Queries) GetTransfer(ctx context.Context, id pgtype.UUID) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, getTransfer, id))
}

const getTransferForUpdate = `-- name: GetTransferForUpdate :one
SELECT ` + transferColumns + `
FROM transfers
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetTransferForUpdate(ctx context.Context, id pgtype.UUID) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, getTransferForUpdate, id))
}

const getTransferBySenderReference = `-- name: GetTransferBySenderReference :one
SELECT ` + transferColumns + `
FROM transfers
WHERE sender_id = $1 AND reference_id = $2
`

type GetTransferBySenderReferenceParams struct {
	SenderID    pgtype.UUID `json:"sender_id"`
	ReferenceID string      `json:"reference_id"`
}

func (q *Queries) GetTransferBySenderReference(ctx context.Context, arg GetTransferBySenderReferenceParams) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, getTransferBySenderReference, arg.SenderID, arg.ReferenceID))
}

const getTransferStatusForUpdate = `-- name: GetTransferStatusForUpdate :one
SELECT status FROM transfers WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetTransferStatusForUpdate(ctx context.Context, id pgtype.UUID) (string, error) {
	row := q.db.QueryRow(ctx, getTransferStatusForUpdate, id)
	var status string
	err := row.Scan(&status)
	return status, err
}

const updateTransferStatus = `-- name: UpdateTransferStatus :execrows
UPDATE transfers
SET status = $1,
    failure_reason = COALESCE($2, failure_reason),
    provider_ref = COALESCE($3, provider_ref),
    updated_at = NOW()
WHERE id = $4
`

type UpdateTransferStatusParams struct {
	Status        string      `json:"status"`
	FailureReason *string     `json:"failure_reason"`
	ProviderRef   *string     `json:"provider_ref"`
	ID            pgtype.UUID `json:"id"`
}

func (q *Queries) UpdateTransferStatus(ctx context.Context, arg UpdateTransferStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateTransferStatus, arg.Status, arg.FailureReason, arg.ProviderRef, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listTransfersByStatus = `-- name: ListTransfersByStatus :many
SELECT ` + transferColumns + `
FROM transfers
WHERE status = $1 AND ($2::boolean OR resolution IS NULL)
ORDER BY created_at
LIMIT $3 OFFSET $4
`

type ListTransfersByStatusParams struct {
	Status          string `json:"status"`
	IncludeResolved bool   `json:"include_resolved"`
	Limit           int32  `json:"limit"`
	Offset          int32  `json:"offset"`
}

func (q *Queries) ListTransfersByStatus(ctx context.Context, arg ListTransfersByStatusParams) ([]Transfer, error) {
	rows, err := q.db.Query(ctx, listTransfersByStatus, arg.Status, arg.IncludeResolved, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transfer
	for rows.Next() {
		i, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// A transfer needs review when it FAILED after the debit, or when it issued a
// claim link that was canceled before redemption. Both stay in the queue until resolved.
const reviewQueueCondition = `resolution IS NULL AND (
    status = 'FAILED'
    OR (kind = 'CLAIM_LINK' AND EXISTS (
        SELECT 1 FROM issued_instruments i
        WHERE i.transfer_id = transfers.id AND i.status = 'CANCELED' AND i.lock_state = 'LOCKED'
    ))
)`

const listReviewQueue = `-- name: ListReviewQueue :many
SELECT ` + transferColumns + `
FROM transfers
WHERE ` + reviewQueueCondition + `
ORDER BY created_at
LIMIT $1 OFFSET $2
`

type ListReviewQueueParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListReviewQueue(ctx context.Context, arg ListReviewQueueParams) ([]Transfer, error) {
	rows, err := q.db.Query(ctx, listReviewQueue, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transfer
	for rows.Next() {
		i, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countReviewQueue = `-- name: CountReviewQueue :one
SELECT COUNT(*) FROM transfers WHERE ` + reviewQueueCondition

func (q *Queries) CountReviewQueue(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countReviewQueue)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const resolveTransfer = `-- name: ResolveTransfer :execrows
UPDATE transfers
SET resolution = $1, resolved_by = $2, resolved_at = NOW(), updated_at = NOW()
WHERE id = $3 AND ` + reviewQueueCondition

type ResolveTransferParams struct {
	Resolution *string     `json:"resolution"`
	ResolvedBy pgtype.UUID `json:"resolved_by"`
	ID         pgtype.UUID `json:"id"`
}

func (q *Queries) ResolveTransfer(ctx context.Context, arg ResolveTransferParams) (int64, error) {
	result, err := q.db.Exec(ctx, resolveTransfer, arg.Resolution, arg.ResolvedBy, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
