package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertMutationRecord = `-- name: InsertMutationRecord :execrows
INSERT INTO mutation_records (id, account_id, direction, amount, currency, description, correlation_id, idempotency_key)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (idempotency_key) DO NOTHING
`

type InsertMutationRecordParams struct {
	ID             pgtype.UUID    `json:"id"`
	AccountID      pgtype.UUID    `json:"account_id"`
	Direction      string         `json:"direction"`
	Amount         pgtype.Numeric `json:"amount"`
	Currency       string         `json:"currency"`
	Description    string         `json:"description"`
	CorrelationID  string         `json:"correlation_id"`
	IdempotencyKey *string        `json:"idempotency_key"`
}

// InsertMutationRecord affects zero rows when the idempotency key was already used.
func (q *Queries) InsertMutationRecord(ctx context.Context, arg InsertMutationRecordParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertMutationRecord,
		arg.ID,
		arg.AccountID,
		arg.Direction,
		arg.Amount,
		arg.Currency,
		arg.Description,
		arg.CorrelationID,
		arg.IdempotencyKey,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listMutationRecords = `-- name: ListMutationRecords :many
SELECT id, account_id, direction, amount, currency, description, correlation_id, idempotency_key, created_at
FROM mutation_records
WHERE account_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3
`

type ListMutationRecordsParams struct {
	AccountID pgtype.UUID `json:"account_id"`
	Limit     int32       `json:"limit"`
	Offset    int32       `json:"offset"`
}

func (q *Queries) ListMutationRecords(ctx context.Context, arg ListMutationRecordsParams) ([]MutationRecord, error) {
	rows, err := q.db.Query(ctx, listMutationRecords, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MutationRecord
	for rows.Next() {
		var i MutationRecord
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Direction,
			&i.Amount,
			&i.Currency,
			&i.Description,
			&i.CorrelationID,
			&i.IdempotencyKey,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listMutationsByCorrelation = `-- name: ListMutationsByCorrelation :many
SELECT id, account_id, direction, amount, currency, description, correlation_id, idempotency_key, created_at
FROM mutation_records
WHERE correlation_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListMutationsByCorrelation(ctx context.Context, correlationID string) ([]MutationRecord, error) {
	rows, err := q.db.Query(ctx, listMutationsByCorrelation, correlationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MutationRecord
	for rows.Next() {
		var i MutationRecord
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Direction,
			&i.Amount,
			&i.Currency,
			&i.Description,
			&i.CorrelationID,
			&i.IdempotencyKey,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumDebitsSince = `-- name: SumDebitsSince :many
SELECT currency, SUM(amount)::numeric AS total
FROM mutation_records
WHERE account_id = $1 AND direction = 'debit' AND created_at >= $2
GROUP BY currency
ORDER BY currency
`

type SumDebitsSinceParams struct {
	AccountID pgtype.UUID `json:"account_id"`
	Since     time.Time   `json:"since"`
}

type SumDebitsSinceRow struct {
	Currency string         `json:"currency"`
	Total    pgtype.Numeric `json:"total"`
}

func (q *Queries) SumDebitsSince(ctx context.Context, arg SumDebitsSinceParams) ([]SumDebitsSinceRow, error) {
	rows, err := q.db.Query(ctx, sumDebitsSince, arg.AccountID, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumDebitsSinceRow
	for rows.Next() {
		var i SumDebitsSinceRow
		if err := rows.Scan(&i.Currency, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
