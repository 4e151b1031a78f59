// Package events decodes provider webhook bodies into a closed set of event variants.
// Each body is validated once at the boundary; downstream code switches on the concrete type.
package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SourceCard  = "card"
	SourceChain = "chain"

	TypeCardAuthorization = "card.authorization"
	TypeCardStatusChanged = "card.status_changed"
	TypeTopUpSucceeded    = "topup.succeeded"
	TypeTopUpFailed       = "topup.failed"
	TypeChainTransfer     = "chain.transfer"

	ChainStatePending   = "pending"
	ChainStateConfirmed = "confirmed"
	ChainStateFailed    = "failed"
)

// Event is implemented only by the variants in this package.
type Event interface {
	EventID() string
	Source() string
	Type() string
	Payload() []byte
	isEvent()
}

type base struct {
	id      string
	source  string
	typ     string
	payload []byte
}

func (b base) EventID() string { return b.id }
func (b base) Source() string  { return b.source }
func (b base) Type() string    { return b.typ }
func (b base) Payload() []byte { return b.payload }
func (base) isEvent()          {}

// CardAuthorization is a spend attempt against an issued card.
type CardAuthorization struct {
	base
	CardID   string
	Amount   decimal.Decimal
	Currency string
	Merchant string
	Approved bool
}

// CardStatusChanged reports a card lifecycle change at the issuer.
type CardStatusChanged struct {
	base
	CardID string
	Status string
}

// CardTopUp is a card-network deposit into a wallet balance.
type CardTopUp struct {
	base
	TopUpID   string
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Currency  string
	Succeeded bool
}

// ChainTransfer is an observation of an inbound stablecoin transfer.
type ChainTransfer struct {
	base
	Network       string
	TxHash        string
	ToAddress     string
	Token         string
	Amount        decimal.Decimal
	Confirmations int
	State         string
}

// ChainEventID identifies one observation of a chain transfer.
func ChainEventID(txHash string, confirmations int, state string) string {
	return strings.ToLower(txHash) + ":" + strconv.Itoa(confirmations) + ":" + state
}

// NewChainTransfer builds a chain observation that did not arrive as a webhook,
// such as one produced by polling the network.
func NewChainTransfer(eventID, network, txHash, toAddress, token string, amount decimal.Decimal, confirmations int, state string) *ChainTransfer {
	payload, _ := json.Marshal(chainBody{
		Network:       network,
		TxHash:        txHash,
		ToAddress:     toAddress,
		Token:         token,
		Amount:        amount.String(),
		Confirmations: confirmations,
		Status:        state,
	})
	return &ChainTransfer{
		base:          base{id: eventID, source: SourceChain, typ: TypeChainTransfer, payload: payload},
		Network:       network,
		TxHash:        strings.ToLower(txHash),
		ToAddress:     toAddress,
		Token:         domain.NormalizeCurrency(token),
		Amount:        amount,
		Confirmations: confirmations,
		State:         state,
	}
}

type cardEnvelope struct {
	ID   string          `json:"id" validate:"required,max=128"`
	Type string          `json:"type" validate:"required,oneof=card.authorization card.status_changed topup.succeeded topup.failed"`
	Data json.RawMessage `json:"data" validate:"required"`
}

type authorizationData struct {
	CardID   string `json:"card_id" validate:"required"`
	Amount   string `json:"amount" validate:"required,decimal_gt0"`
	Currency string `json:"currency" validate:"required,currency"`
	Merchant string `json:"merchant"`
	Approved bool   `json:"approved"`
}

type statusData struct {
	CardID string `json:"card_id" validate:"required"`
	Status string `json:"status" validate:"required,oneof=INACTIVE ACTIVE CANCELED inactive active canceled"`
}

type topUpData struct {
	TopUpID   string `json:"topup_id" validate:"required,max=128"`
	AccountID string `json:"account_id" validate:"required,uuid"`
	Amount    string `json:"amount" validate:"required,decimal_gt0"`
	Currency  string `json:"currency" validate:"required,currency"`
}

// ParseCard decodes a card-issuer webhook body. Amounts must fit the currency's minor unit.
func ParseCard(body []byte) (Event, error) {
	var env cardEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed card event: %v", domain.ErrValidation, err)
	}
	env.Type = strings.ToLower(strings.TrimSpace(env.Type))
	if err := validation.Struct(env); err != nil {
		return nil, err
	}
	b := base{id: SourceCard + ":" + env.ID, source: SourceCard, typ: env.Type, payload: body}

	switch env.Type {
	case TypeCardAuthorization:
		var d authorizationData
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		amount, err := domain.ParseMoney(d.Amount, d.Currency)
		if err != nil {
			return nil, err
		}
		return &CardAuthorization{
			base:     b,
			CardID:   d.CardID,
			Amount:   amount.Amount,
			Currency: amount.Currency,
			Merchant: d.Merchant,
			Approved: d.Approved,
		}, nil
	case TypeCardStatusChanged:
		var d statusData
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		return &CardStatusChanged{base: b, CardID: d.CardID, Status: strings.ToUpper(d.Status)}, nil
	case TypeTopUpSucceeded, TypeTopUpFailed:
		var d topUpData
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		amount, err := domain.ParseMoney(d.Amount, d.Currency)
		if err != nil {
			return nil, err
		}
		return &CardTopUp{
			base:      b,
			TopUpID:   d.TopUpID,
			AccountID: uuid.MustParse(d.AccountID),
			Amount:    amount.Amount,
			Currency:  amount.Currency,
			Succeeded: env.Type == TypeTopUpSucceeded,
		}, nil
	}
	return nil, domain.NewValidationError("type", "unsupported card event type %q", env.Type)
}

type chainBody struct {
	Type          string `json:"type" validate:"omitempty,eq=chain.transfer"`
	Network       string `json:"network" validate:"required"`
	TxHash        string `json:"tx_hash" validate:"required,startswith=0x"`
	ToAddress     string `json:"to_address" validate:"required"`
	Token         string `json:"token" validate:"required"`
	Amount        string `json:"amount" validate:"required,decimal_gt0"`
	Confirmations int    `json:"confirmations" validate:"gte=0"`
	Status        string `json:"status" validate:"required,oneof=pending confirmed failed reverted"`
}

// ParseChain decodes a chain-watcher webhook body.
func ParseChain(body []byte) (Event, error) {
	var c chainBody
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("%w: malformed chain event: %v", domain.ErrValidation, err)
	}
	c.Status = strings.ToLower(strings.TrimSpace(c.Status))
	if err := validation.Struct(c); err != nil {
		return nil, err
	}
	state := c.Status
	if state == "reverted" {
		state = ChainStateFailed
	}
	amount, err := domain.ParseMoney(c.Amount, c.Token)
	if err != nil {
		return nil, err
	}
	ev := NewChainTransfer(ChainEventID(c.TxHash, c.Confirmations, state), strings.ToLower(c.Network), c.TxHash, c.ToAddress, c.Token, amount.Amount, c.Confirmations, state)
	ev.payload = body
	return ev, nil
}

func decodeData(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: malformed event data: %v", domain.ErrValidation, err)
	}
	return validation.Struct(dst)
}
