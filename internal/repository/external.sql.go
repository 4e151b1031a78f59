package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const depositColumns = `external_id, source, account_id, currency, amount, confirmations, status, credited_at, created_at, updated_at`

func scanExternalDeposit(row pgx.Row) (ExternalDeposit, error) {
	var i ExternalDeposit
	err := row.Scan(
		&i.ExternalID,
		&i.Source,
		&i.AccountID,
		&i.Currency,
		&i.Amount,
		&i.Confirmations,
		&i.Status,
		&i.CreditedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertExternalDeposit = `-- name: InsertExternalDeposit :execrows
INSERT INTO external_deposits (external_id, source, account_id, currency, amount)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (external_id) DO NOTHING
`

type InsertExternalDepositParams struct {
	ExternalID string         `json:"external_id"`
	Source     string         `json:"source"`
	AccountID  pgtype.UUID    `json:"account_id"`
	Currency   string         `json:"currency"`
	Amount     pgtype.Numeric `json:"amount"`
}

// InsertExternalDeposit creates a PENDING deposit unless one already exists for the id.
func (q *Queries) InsertExternalDeposit(ctx context.Context, arg InsertExternalDepositParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertExternalDeposit, arg.ExternalID, arg.Source, arg.AccountID, arg.Currency, arg.Amount)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getExternalDeposit = `-- name: GetExternalDeposit :one
SELECT ` + depositColumns + `
FROM external_deposits
WHERE external_id = $1
`

func (q *Queries) GetExternalDeposit(ctx context.Context, externalID string) (ExternalDeposit, error) {
	return scanExternalDeposit(q.db.QueryRow(ctx, getExternalDeposit, externalID))
}

const getExternalDepositForUpdate = `-- name: GetExternalDepositForUpdate :one
SELECT ` + depositColumns + `
FROM external_deposits
WHERE external_id = $1
FOR UPDATE
`

func (q *Queries) GetExternalDepositForUpdate(ctx context.Context, externalID string) (ExternalDeposit, error) {
	return scanExternalDeposit(q.db.QueryRow(ctx, getExternalDepositForUpdate, externalID))
}

const updateExternalDepositProgress = `-- name: UpdateExternalDepositProgress :execrows
UPDATE external_deposits
SET confirmations = $1, status = $2, updated_at = NOW()
WHERE external_id = $3 AND status <> 'CREDITED'
`

type UpdateExternalDepositProgressParams struct {
	Confirmations int32  `json:"confirmations"`
	Status        string `json:"status"`
	ExternalID    string `json:"external_id"`
}

func (q *Queries) UpdateExternalDepositProgress(ctx context.Context, arg UpdateExternalDepositProgressParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateExternalDepositProgress, arg.Confirmations, arg.Status, arg.ExternalID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const markExternalDepositCredited = `-- name: MarkExternalDepositCredited :execrows
UPDATE external_deposits
SET status = 'CREDITED', credited_at = NOW(), updated_at = NOW()
WHERE external_id = $1 AND status = 'CONFIRMED'
`

// MarkExternalDepositCredited affects one row only for the first CONFIRMED -> CREDITED transition.
func (q *Queries) MarkExternalDepositCredited(ctx context.Context, externalID string) (int64, error) {
	result, err := q.db.Exec(ctx, markExternalDepositCredited, externalID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listPendingChainDeposits = `-- name: ListPendingChainDeposits :many
SELECT ` + depositColumns + `
FROM external_deposits
WHERE source = 'CHAIN' AND status = 'PENDING'
ORDER BY updated_at
LIMIT $1
`

func (q *Queries) ListPendingChainDeposits(ctx context.Context, limit int32) ([]ExternalDeposit, error) {
	rows, err := q.db.Query(ctx, listPendingChainDeposits, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExternalDeposit
	for rows.Next() {
		i, err := scanExternalDeposit(rows)
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

const insertExternalEvent = `-- name: InsertExternalEvent :execrows
INSERT INTO external_events (event_id, source, event_type, payload)
VALUES ($1, $2, $3, $4)
ON CONFLICT (event_id) DO NOTHING
`

type InsertExternalEventParams struct {
	EventID   string `json:"event_id"`
	Source    string `json:"source"`
	EventType string `json:"event_type"`
	Payload   []byte `json:"payload"`
}

// InsertExternalEvent affects zero rows for an event id that was already recorded.
func (q *Queries) InsertExternalEvent(ctx context.Context, arg InsertExternalEventParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertExternalEvent, arg.EventID, arg.Source, arg.EventType, arg.Payload)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getDepositAddress = `-- name: GetDepositAddress :one
SELECT account_id, network, address_index, address, created_at
FROM deposit_addresses
WHERE account_id = $1 AND network = $2
`

type GetDepositAddressParams struct {
	AccountID pgtype.UUID `json:"account_id"`
	Network   string      `json:"network"`
}

func (q *Queries) GetDepositAddress(ctx context.Context, arg GetDepositAddressParams) (DepositAddress, error) {
	row := q.db.QueryRow(ctx, getDepositAddress, arg.AccountID, arg.Network)
	var i DepositAddress
	err := row.Scan(&i.AccountID, &i.Network, &i.AddressIndex, &i.Address, &i.CreatedAt)
	return i, err
}

const getDepositAddressByAddress = `-- name: GetDepositAddressByAddress :one
SELECT account_id, network, address_index, address, created_at
FROM deposit_addresses
WHERE network = $1 AND lower(address) = lower($2)
`

type GetDepositAddressByAddressParams struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

func (q *Queries) GetDepositAddressByAddress(ctx context.Context, arg GetDepositAddressByAddressParams) (DepositAddress, error) {
	row := q.db.QueryRow(ctx, getDepositAddressByAddress, arg.Network, arg.Address)
	var i DepositAddress
	err := row.Scan(&i.AccountID, &i.Network, &i.AddressIndex, &i.Address, &i.CreatedAt)
	return i, err
}

const nextDepositAddressIndex = `-- name: NextDepositAddressIndex :one
SELECT nextval('deposit_address_index_seq')::bigint
`

func (q *Queries) NextDepositAddressIndex(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, nextDepositAddressIndex)
	var index int64
	err := row.Scan(&index)
	return index, err
}

const insertDepositAddress = `-- name: InsertDepositAddress :execrows
INSERT INTO deposit_addresses (account_id, network, address_index, address)
VALUES ($1, $2, $3, $4)
ON CONFLICT (account_id, network) DO NOTHING
`

type InsertDepositAddressParams struct {
	AccountID    pgtype.UUID `json:"account_id"`
	Network      string      `json:"network"`
	AddressIndex int64       `json:"address_index"`
	Address      string      `json:"address"`
}

func (q *Queries) InsertDepositAddress(ctx context.Context, arg InsertDepositAddressParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertDepositAddress, arg.AccountID, arg.Network, arg.AddressIndex, arg.Address)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
