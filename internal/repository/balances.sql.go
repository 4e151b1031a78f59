package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const debitBalance = `-- name: DebitBalance :execrows
UPDATE balances
SET amount = amount - $1, updated_at = NOW()
WHERE account_id = $2 AND currency = $3 AND amount >= $1
`

type DebitBalanceParams struct {
	Amount    pgtype.Numeric `json:"amount"`
	AccountID pgtype.UUID    `json:"account_id"`
	Currency  string         `json:"currency"`
}

// DebitBalance affects zero rows when the balance is missing or too small.
func (q *Queries) DebitBalance(ctx context.Context, arg DebitBalanceParams) (int64, error) {
	result, err := q.db.Exec(ctx, debitBalance, arg.Amount, arg.AccountID, arg.Currency)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const creditBalance = `-- name: CreditBalance :execrows
INSERT INTO balances (account_id, currency, amount)
VALUES ($1, $2, $3)
ON CONFLICT (account_id, currency)
DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()
`

type CreditBalanceParams struct {
	AccountID pgtype.UUID    `json:"account_id"`
	Currency  string         `json:"currency"`
	Amount    pgtype.Numeric `json:"amount"`
}

func (q *Queries) CreditBalance(ctx context.Context, arg CreditBalanceParams) (int64, error) {
	result, err := q.db.Exec(ctx, creditBalance, arg.AccountID, arg.Currency, arg.Amount)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getBalance = `-- name: GetBalance :one
SELECT account_id, currency, amount, updated_at
FROM balances
WHERE account_id = $1 AND currency = $2
`

type GetBalanceParams struct {
	AccountID pgtype.UUID `json:"account_id"`
	Currency  string      `json:"currency"`
}

func (q *Queries) GetBalance(ctx context.Context, arg GetBalanceParams) (Balance, error) {
	row := q.db.QueryRow(ctx, getBalance, arg.AccountID, arg.Currency)
	var i Balance
	err := row.Scan(
		&i.AccountID,
		&i.Currency,
		&i.Amount,
		&i.UpdatedAt,
	)
	return i, err
}

const listBalances = `-- name: ListBalances :many
SELECT account_id, currency, amount, updated_at
FROM balances
WHERE account_id = $1
ORDER BY currency
`

func (q *Queries) ListBalances(ctx context.Context, accountID pgtype.UUID) ([]Balance, error) {
	rows, err := q.db.Query(ctx, listBalances, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Balance
	for rows.Next() {
		var i Balance
		if err := rows.Scan(
			&i.AccountID,
			&i.Currency,
			&i.Amount,
			&i.UpdatedAt,
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

const listBalanceDrift = `-- name: ListBalanceDrift :many
SELECT b.account_id, b.currency, b.amount, COALESCE(m.net, 0)::numeric AS mutation_net
FROM balances b
LEFT JOIN (
    SELECT account_id, currency,
           SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END) AS net
    FROM mutation_records
    GROUP BY account_id, currency
) m ON m.account_id = b.account_id AND m.currency = b.currency
WHERE b.amount <> COALESCE(m.net, 0)
ORDER BY b.account_id, b.currency
`

type ListBalanceDriftRow struct {
	AccountID   pgtype.UUID    `json:"account_id"`
	Currency    string         `json:"currency"`
	Amount      pgtype.Numeric `json:"amount"`
	MutationNet pgtype.Numeric `json:"mutation_net"`
}

// ListBalanceDrift returns balances that disagree with the net of their mutation records.
func (q *Queries) ListBalanceDrift(ctx context.Context) ([]ListBalanceDriftRow, error) {
	rows, err := q.db.Query(ctx, listBalanceDrift)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListBalanceDriftRow
	for rows.Next() {
		var i ListBalanceDriftRow
		if err := rows.Scan(
			&i.AccountID,
			&i.Currency,
			&i.Amount,
			&i.MutationNet,
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

const countNegativeBalances = `-- name: CountNegativeBalances :one
SELECT COUNT(*) FROM balances WHERE amount < 0
`

func (q *Queries) CountNegativeBalances(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countNegativeBalances)
	var count int64
	err := row.Scan(&count)
	return count, err
}
