package service

import (
	"context"
	"testing"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationRun(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()
	reconcileSvc := NewReconciliationService(d.store)

	sender := createFundedAccount(t, d.store, domain.Tier1, map[string]string{"EUR": "200.00"})
	recipient := createFundedAccount(t, d.store, domain.Tier0, nil)
	_, err := d.transfer.CreateTransfer(ctx, TransferRequest{
		SenderID:       sender,
		Kind:           domain.TransferKindAccount,
		Amount:         dec("50"),
		SourceCurrency: "EUR",
		TargetCurrency: "USD",
		RecipientID:    &recipient,
		ReferenceID:    "rec-healthy",
	})
	require.NoError(t, err)

	report, err := reconcileSvc.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.Empty(t, report.DriftedBalances)
	assert.Zero(t, report.ReviewQueueSize)

	_, err = d.pool.Exec(ctx, "UPDATE balances SET amount = amount + 5 WHERE account_id = $1 AND currency = 'USD'",
		repository.ToPgUUID(recipient))
	require.NoError(t, err)

	report, err = reconcileSvc.Run(ctx)
	require.NoError(t, err)
	assert.False(t, report.Healthy())
	require.Len(t, report.DriftedBalances, 1)
	drift := report.DriftedBalances[0]
	assert.Equal(t, recipient.String(), drift.AccountID)
	assert.Equal(t, "USD", drift.Currency)
	assert.True(t, drift.Balance.Sub(drift.MutationNet).Equal(dec("5")))
}
