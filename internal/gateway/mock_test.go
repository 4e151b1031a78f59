package gateway

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockChainNetworkDerivesStableAddresses(t *testing.T) {
	n := NewMockChainNetwork("polygon", "seed", "")
	ctx := context.Background()

	a1, err := n.DeriveAddress(ctx, 7)
	require.NoError(t, err)
	a2, err := n.DeriveAddress(ctx, 7)
	require.NoError(t, err)
	b, err := n.DeriveAddress(ctx, 8)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
	assert.Len(t, a1, 42)

	_, err = n.DeriveAddress(ctx, 0)
	require.Error(t, err)
}

func TestMockChainNetworkRequiresSigningKey(t *testing.T) {
	n := NewMockChainNetwork("polygon", "seed", "")
	_, err := n.SendFromHotWallet(context.Background(), "0x0000000000000000000000000000000000000001", decimal.NewFromInt(1), "USDC")
	require.ErrorIs(t, err, ErrHotWalletNotConfigured)
}

func TestMockCardIssuerLifecycle(t *testing.T) {
	g := NewMockCardIssuer()
	g.FailureRate = 0
	g.MaxDelay = 0
	ctx := context.Background()

	holder, err := g.CreateCardholder(ctx, CardholderRequest{Name: "ada", Email: "ada@example.com"})
	require.NoError(t, err)

	card, err := g.CreateCard(ctx, CreateCardRequest{CardholderID: holder, SpendingLimit: decimal.NewFromInt(50), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "INACTIVE", card.Status)
	assert.Len(t, card.Last4, 4)

	require.NoError(t, g.UpdateCardStatus(ctx, card.CardID, "active"))
	secrets, err := g.RetrieveCardSecrets(ctx, card.CardID)
	require.NoError(t, err)
	assert.Len(t, secrets.Number, 16)
}
