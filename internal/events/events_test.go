package events

import (
	"testing"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCardVariants(t *testing.T) {
	ev, err := ParseCard([]byte(`{"id":"evt_1","type":"card.authorization","data":{"card_id":"ic_1","amount":"12.50","currency":"usd","merchant":"cafe","approved":true}}`))
	require.NoError(t, err)
	auth, ok := ev.(*CardAuthorization)
	require.True(t, ok)
	assert.Equal(t, "card:evt_1", auth.EventID())
	assert.Equal(t, "USD", auth.Currency)
	assert.Equal(t, "12.5", auth.Amount.String())
	assert.True(t, auth.Approved)

	ev, err = ParseCard([]byte(`{"id":"evt_2","type":"card.status_changed","data":{"card_id":"ic_1","status":"active"}}`))
	require.NoError(t, err)
	st, ok := ev.(*CardStatusChanged)
	require.True(t, ok)
	assert.Equal(t, "ACTIVE", st.Status)

	ev, err = ParseCard([]byte(`{"id":"evt_3","type":"topup.failed","data":{"topup_id":"tp_1","account_id":"8b9c7a4e-3c1d-4d59-9a55-0d6b2a8c1e11","amount":"5","currency":"EUR"}}`))
	require.NoError(t, err)
	top, ok := ev.(*CardTopUp)
	require.True(t, ok)
	assert.False(t, top.Succeeded)
}

func TestParseCardRejectsInvalidBodies(t *testing.T) {
	cases := map[string]string{
		"malformed":      `{"id":`,
		"unknown type":   `{"id":"e","type":"card.refund","data":{}}`,
		"missing card":   `{"id":"e","type":"card.authorization","data":{"amount":"1","currency":"USD"}}`,
		"zero amount":    `{"id":"e","type":"card.authorization","data":{"card_id":"c","amount":"0","currency":"USD"}}`,
		"bad currency":   `{"id":"e","type":"topup.succeeded","data":{"topup_id":"t","account_id":"8b9c7a4e-3c1d-4d59-9a55-0d6b2a8c1e11","amount":"1","currency":"XXX"}}`,
		"bad account":    `{"id":"e","type":"topup.succeeded","data":{"topup_id":"t","account_id":"nope","amount":"1","currency":"USD"}}`,
		"sub-cent topup": `{"id":"e","type":"topup.succeeded","data":{"topup_id":"t","account_id":"8b9c7a4e-3c1d-4d59-9a55-0d6b2a8c1e11","amount":"10.001","currency":"USD"}}`,
		"sub-cent spend": `{"id":"e","type":"card.authorization","data":{"card_id":"c","amount":"3.333","currency":"EUR"}}`,
		"missing event":  `{"type":"card.authorization","data":{}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCard([]byte(body))
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestParseChainBuildsEventID(t *testing.T) {
	ev, err := ParseChain([]byte(`{"network":"Polygon","tx_hash":"0xABC","to_address":"0x01","token":"usdc","amount":"25.5","confirmations":3,"status":"pending"}`))
	require.NoError(t, err)
	tr, ok := ev.(*ChainTransfer)
	require.True(t, ok)
	assert.Equal(t, "0xabc:3:pending", tr.EventID())
	assert.Equal(t, "polygon", tr.Network)
	assert.Equal(t, "USDC", tr.Token)

	ev, err = ParseChain([]byte(`{"network":"polygon","tx_hash":"0xabc","to_address":"0x01","token":"USDC","amount":"25.5","confirmations":14,"status":"reverted"}`))
	require.NoError(t, err)
	assert.Equal(t, ChainStateFailed, ev.(*ChainTransfer).State)

	_, err = ParseChain([]byte(`{"network":"polygon","tx_hash":"abc","to_address":"0x01","token":"USDC","amount":"1","status":"pending"}`))
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseChainRejectsAmountBeyondTokenPrecision(t *testing.T) {
	_, err := ParseChain([]byte(`{"network":"polygon","tx_hash":"0xabc","to_address":"0x01","token":"USDC","amount":"1.1234567","confirmations":1,"status":"pending"}`))
	require.ErrorIs(t, err, domain.ErrValidation)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	ev, err := ParseChain([]byte(`{"network":"polygon","tx_hash":"0xabc","to_address":"0x01","token":"USDC","amount":"1.123456","confirmations":1,"status":"pending"}`))
	require.NoError(t, err)
	assert.Equal(t, "1.123456", ev.(*ChainTransfer).Amount.String())
}

func TestParseCardTopUpKeepsExactAmount(t *testing.T) {
	ev, err := ParseCard([]byte(`{"id":"evt_9","type":"topup.succeeded","data":{"topup_id":"tp_9","account_id":"8b9c7a4e-3c1d-4d59-9a55-0d6b2a8c1e11","amount":"10.01","currency":"usd"}}`))
	require.NoError(t, err)
	top := ev.(*CardTopUp)
	assert.Equal(t, "10.01", top.Amount.String())
	assert.Equal(t, "USD", top.Currency)
	assert.True(t, top.Succeeded)
}
