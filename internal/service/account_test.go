package service

import (
	"context"
	"testing"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupWithOpeningBalances(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()
	svc := NewAccountService(d.store, true)

	acc, err := svc.Signup(ctx, SignupRequest{
		Username: "ada",
		Email:    " Ada@Example.com ",
		Phone:    "+447700900123",
		OpeningBalances: map[string]decimal.Decimal{
			"usd": dec("100.50"),
			"EUR": dec("0"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", acc.Email)
	assert.Equal(t, domain.Tier0, acc.VerificationTier)

	balances, err := svc.GetBalances(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "USD", balances[0].Currency)
	assert.True(t, balances[0].Amount.Equal(dec("100.5")))

	statement, err := svc.GetStatement(ctx, acc.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, statement, 1)
	assert.Equal(t, domain.DirectionCredit, statement[0].Direction)

	_, err = svc.Signup(ctx, SignupRequest{Username: "ada2", Email: "ada@example.com"})
	require.ErrorIs(t, err, ErrAccountExists)

	byEmail, err := svc.GetAccountByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byEmail.ID)
}

func TestSignupRejectsInvalidOpeningBalances(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	_, err := NewAccountService(d.store, false).Signup(ctx, SignupRequest{
		Username:        "grace",
		Email:           "grace@example.com",
		OpeningBalances: map[string]decimal.Decimal{"USD": dec("10")},
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	svc := NewAccountService(d.store, true)
	tests := []struct {
		name     string
		balances map[string]decimal.Decimal
	}{
		{"unsupported currency", map[string]decimal.Decimal{"XYZ": dec("1")}},
		{"negative", map[string]decimal.Decimal{"USD": dec("-1")}},
		{"too precise", map[string]decimal.Decimal{"USD": dec("1.001")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, SignupRequest{Username: "grace", Email: "grace@example.com", OpeningBalances: tc.balances})
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err = svc.GetAccount(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSetTierAndDeactivate(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()
	svc := NewAccountService(d.store, false)
	admin := createFundedAccount(t, d.store, domain.Tier0, nil)
	user := createFundedAccount(t, d.store, domain.Tier0, map[string]string{"USD": "500"})

	acc, err := svc.SetTier(ctx, admin, user, domain.Tier2)
	require.NoError(t, err)
	assert.Equal(t, domain.Tier2, acc.VerificationTier)

	_, err = svc.SetTier(ctx, admin, user, 3)
	require.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, svc.Deactivate(ctx, admin, user))
	require.NoError(t, svc.Deactivate(ctx, admin, user))
	require.ErrorIs(t, svc.Deactivate(ctx, admin, uuid.New()), domain.ErrAccountNotFound)

	recipient := createFundedAccount(t, d.store, domain.Tier0, nil)
	_, err = d.transfer.CreateTransfer(ctx, TransferRequest{
		SenderID:       user,
		Kind:           domain.TransferKindAccount,
		Amount:         dec("10"),
		SourceCurrency: "USD",
		TargetCurrency: "USD",
		RecipientID:    &recipient,
		ReferenceID:    "inactive-sender",
	})
	require.ErrorIs(t, err, domain.ErrAccountInactive)
}

func TestDepositAddressIsStablePerAccount(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()
	svc := NewDepositAddressService(d.store, d.chain)
	a := createFundedAccount(t, d.store, domain.Tier0, nil)
	b := createFundedAccount(t, d.store, domain.Tier0, nil)

	first, err := svc.GetOrCreate(ctx, a, "base")
	require.NoError(t, err)
	again, err := svc.GetOrCreate(ctx, a, "base")
	require.NoError(t, err)
	other, err := svc.GetOrCreate(ctx, b, "base")
	require.NoError(t, err)

	assert.Equal(t, first.Address, again.Address)
	assert.NotEqual(t, first.Address, other.Address)
	assert.Equal(t, domain.StablecoinCurrency, first.Token)

	_, err = svc.GetOrCreate(ctx, a, "solana")
	require.ErrorIs(t, err, domain.ErrValidation)
}
