package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (id, username, email, phone, role, verification_tier)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, username, email, phone, role, verification_tier, active, cardholder_id, created_at, updated_at
`

type CreateAccountParams struct {
	ID               pgtype.UUID `json:"id"`
	Username         string      `json:"username"`
	Email            string      `json:"email"`
	Phone            *string     `json:"phone"`
	Role             string      `json:"role"`
	VerificationTier int16       `json:"verification_tier"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, createAccount,
		arg.ID,
		arg.Username,
		arg.Email,
		arg.Phone,
		arg.Role,
		arg.VerificationTier,
	)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Phone,
		&i.Role,
		&i.VerificationTier,
		&i.Active,
		&i.CardholderID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccount = `-- name: GetAccount :one
SELECT id, username, email, phone, role, verification_tier, active, cardholder_id, created_at, updated_at
FROM accounts
WHERE id = $1
`

func (q *Queries) GetAccount(ctx context.Context, id pgtype.UUID) (Account, error) {
	row := q.db.QueryRow(ctx, getAccount, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Phone,
		&i.Role,
		&i.VerificationTier,
		&i.Active,
		&i.CardholderID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountForSpend = `-- name: GetAccountForSpend :one
SELECT id, username, email, phone, role, verification_tier, active, cardholder_id, created_at, updated_at
FROM accounts
WHERE id = $1
FOR NO KEY UPDATE
`

// GetAccountForSpend locks the account row so concurrent debits from the same
// account are serialized. NO KEY UPDATE leaves foreign key checks from other
// transactions unblocked.
func (q *Queries) GetAccountForSpend(ctx context.Context, id pgtype.UUID) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountForSpend, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Phone,
		&i.Role,
		&i.VerificationTier,
		&i.Active,
		&i.CardholderID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountByEmail = `-- name: GetAccountByEmail :one
SELECT id, username, email, phone, role, verification_tier, active, cardholder_id, created_at, updated_at
FROM accounts
WHERE lower(email) = lower($1)
`

func (q *Queries) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByEmail, email)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Phone,
		&i.Role,
		&i.VerificationTier,
		&i.Active,
		&i.CardholderID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateAccountTier = `-- name: UpdateAccountTier :execrows
UPDATE accounts
SET verification_tier = $1, updated_at = NOW()
WHERE id = $2
`

type UpdateAccountTierParams struct {
	VerificationTier int16       `json:"verification_tier"`
	ID               pgtype.UUID `json:"id"`
}

func (q *Queries) UpdateAccountTier(ctx context.Context, arg UpdateAccountTierParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateAccountTier, arg.VerificationTier, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deactivateAccount = `-- name: DeactivateAccount :execrows
UPDATE accounts
SET active = FALSE, updated_at = NOW()
WHERE id = $1 AND active
`

func (q *Queries) DeactivateAccount(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deactivateAccount, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const setCardholderID = `-- name: SetCardholderID :execrows
UPDATE accounts
SET cardholder_id = $1, updated_at = NOW()
WHERE id = $2 AND cardholder_id IS NULL
`

type SetCardholderIDParams struct {
	CardholderID *string     `json:"cardholder_id"`
	ID           pgtype.UUID `json:"id"`
}

func (q *Queries) SetCardholderID(ctx context.Context, arg SetCardholderIDParams) (int64, error) {
	result, err := q.db.Exec(ctx, setCardholderID, arg.CardholderID, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
