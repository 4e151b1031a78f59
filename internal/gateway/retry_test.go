package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/gateway"
	"github.com/ayo6706/multicurrency-wallet/internal/gateway/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fastRetry = gateway.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestRetryPolicyRetriesRateLimitedCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	cards := mocks.NewMockCardIssuer(ctrl)
	gomock.InOrder(
		cards.EXPECT().CreateCardholder(gomock.Any(), gomock.Any()).Return("", gateway.ErrRateLimited),
		cards.EXPECT().CreateCardholder(gomock.Any(), gomock.Any()).Return("ich_123", nil),
	)

	var holder string
	err := fastRetry.Do(context.Background(), "create_cardholder", func() error {
		var err error
		holder, err = cards.CreateCardholder(context.Background(), gateway.CardholderRequest{})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "ich_123", holder)
}

func TestRetryPolicyStopsOnHardFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	cards := mocks.NewMockCardIssuer(ctrl)
	hard := errors.New("card declined by issuer")
	cards.EXPECT().UpdateCardStatus(gomock.Any(), "card_1", "active").Return(hard).Times(1)

	err := fastRetry.Do(context.Background(), "update_card", func() error {
		return cards.UpdateCardStatus(context.Background(), "card_1", "active")
	})
	assert.ErrorIs(t, err, hard)
}

func TestRetryPolicyGivesUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := mocks.NewMockChainNetwork(ctrl)
	chain.EXPECT().TransactionStatus(gomock.Any(), "0xabc").Return(nil, gateway.ErrRateLimited).Times(fastRetry.MaxRetries + 1)

	err := fastRetry.Do(context.Background(), "tx_status", func() error {
		_, err := chain.TransactionStatus(context.Background(), "0xabc")
		return err
	})
	assert.True(t, gateway.IsRetryable(err))
}
