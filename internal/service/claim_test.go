package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendClaim(t *testing.T, d *testDeps, sender uuid.UUID, amount string) *TransferResult {
	t.Helper()
	res, err := d.transfer.CreateTransfer(context.Background(), TransferRequest{
		SenderID:       sender,
		Kind:           domain.TransferKindClaimLink,
		Amount:         dec(amount),
		SourceCurrency: "USD",
		TargetCurrency: "USD",
		RecipientEmail: "friend@example.com",
		RecipientPhone: "+15555550100",
		ReferenceID:    uuid.NewString(),
	})
	require.NoError(t, err)
	return res
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestClaimLinkIssueAndUnlock(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()
	sender := createFundedAccount(t, d.store, domain.Tier1, map[string]string{"USD": "100.00"})
	claimant := createFundedAccount(t, d.store, domain.Tier0, nil)

	res := sendClaim(t, d, sender, "25")
	assert.Equal(t, domain.TransferStatusCompleted, res.Transfer.Status)
	require.NotNil(t, res.Instrument)
	assert.Equal(t, domain.LockStateLocked, res.Instrument.LockState)
	assert.Len(t, res.UnlockCode, 6)
	assert.True(t, balanceOf(t, d.store, sender, "USD").Equal(dec("75")))

	require.Len(t, d.notifier.messages, 1)
	msg := d.notifier.messages[0]
	assert.Equal(t, "friend@example.com", msg.RecipientEmail)
	assert.Contains(t, msg.ClaimURL, res.Transfer.ID.String())
	assert.NotContains(t, msg.ClaimURL, res.UnlockCode)
	require.NotNil(t, res.Instrument.ExpiresAt)
	assert.WithinDuration(t, *res.Instrument.ExpiresAt, msg.ExpiresAt, time.Millisecond)

	inst, err := d.claims.Unlock(ctx, UnlockRequest{TransferID: res.Transfer.ID, Code: res.UnlockCode, ClaimantID: claimant})
	require.NoError(t, err)
	assert.Equal(t, domain.LockStateUnlocked, inst.LockState)
	assert.True(t, inst.AmountConsumed.Equal(inst.SpendingLimit))
	assert.True(t, balanceOf(t, d.store, claimant, "USD").Equal(dec("25")))

	_, err = d.claims.Unlock(ctx, UnlockRequest{TransferID: res.Transfer.ID, Code: res.UnlockCode, ClaimantID: claimant})
	require.ErrorIs(t, err, domain.ErrClaimAlreadyRedeemed)
	assert.True(t, balanceOf(t, d.store, claimant, "USD").Equal(dec("25")))
}

func TestClaimWrongCodesLockOut(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()
	sender := createFundedAccount(t, d.store, domain.Tier1, map[string]string{"USD": "100.00"})
	claimant := createFundedAccount(t, d.store, domain.Tier0, nil)
	res := sendClaim(t, d, sender, "10")
	bad := wrongCode(res.UnlockCode)

	for i := 0; i < 5; i++ {
		_, err := d.claims.Unlock(ctx, UnlockRequest{TransferID: res.Transfer.ID, Code: bad, ClaimantID: claimant})
		require.ErrorIs(t, err, domain.ErrInvalidClaimCode)
		require.ErrorIs(t, err, domain.ErrExpiredOrInvalidClaim)
	}

	inst, err := d.store.Queries().GetInstrumentByTransfer(ctx, repository.ToPgUUID(res.Transfer.ID))
	require.NoError(t, err)
	assert.Equal(t, int32(5), inst.FailedAttempts)

	_, err = d.claims.Unlock(ctx, UnlockRequest{TransferID: res.Transfer.ID, Code: res.UnlockCode, ClaimantID: claimant})
	require.ErrorIs(t, err, domain.ErrClaimLockedOut)
	assert.True(t, balanceOf(t, d.store, claimant, "USD").IsZero())
}

func TestExpiredClaimNeverUnlocks(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()
	sender := createFundedAccount(t, d.store, domain.Tier1, map[string]string{"USD": "100.00"})
	claimant := createFundedAccount(t, d.store, domain.Tier0, nil)
	admin := createFundedAccount(t, d.store, domain.Tier0, nil)
	res := sendClaim(t, d, sender, "40")

	later := time.Now().Add(49 * time.Hour)
	d.claims.WithClock(func() time.Time { return later })

	_, err := d.claims.Unlock(ctx, UnlockRequest{TransferID: res.Transfer.ID, Code: res.UnlockCode, ClaimantID: claimant})
	require.ErrorIs(t, err, domain.ErrClaimExpired)

	swept, err := d.claims.SweepExpired(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	_, err = d.claims.Unlock(ctx, UnlockRequest{TransferID: res.Transfer.ID, Code: res.UnlockCode, ClaimantID: claimant})
	require.True(t, errors.Is(err, domain.ErrClaimExpired) || errors.Is(err, domain.ErrClaimCanceled))
	assert.True(t, balanceOf(t, d.store, claimant, "USD").IsZero())
	assert.True(t, balanceOf(t, d.store, sender, "USD").Equal(dec("60")), "no automatic refund")

	queue, err := d.transfer.ListFailedTransfers(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, res.Transfer.ID, queue[0].ID)

	_, err = d.transfer.ResolveFailedTransfer(ctx, ResolveRequest{
		TransferID: res.Transfer.ID,
		Decision:   DecisionRefund,
		Reason:     "claim expired",
		ActorID:    admin,
	})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, d.store, sender, "USD").Equal(dec("100")))
}

func TestClaimNotificationFailureMarksTransferFailed(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()
	d.notifier.err = errors.New("smtp relay down")
	sender := createFundedAccount(t, d.store, domain.Tier1, map[string]string{"USD": "100.00"})

	res, err := d.transfer.CreateTransfer(ctx, TransferRequest{
		SenderID:       sender,
		Kind:           domain.TransferKindClaimLink,
		Amount:         dec("20"),
		SourceCurrency: "USD",
		TargetCurrency: "USD",
		RecipientEmail: "friend@example.com",
		ReferenceID:    "claim-notify-fail",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusFailed, res.Transfer.Status)
	assert.Empty(t, res.UnlockCode)
	assert.True(t, balanceOf(t, d.store, sender, "USD").Equal(dec("80")))

	inst, err := d.store.Queries().GetInstrumentByTransfer(ctx, repository.ToPgUUID(res.Transfer.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.InstrumentStatusCanceled, inst.Status)
}
