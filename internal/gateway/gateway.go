// Package gateway defines the external settlement providers the wallet depends on.
package gateway

//go:generate mockgen -source=gateway.go -destination=mocks/mock_gateway.go -package=mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardholderRequest identifies the wallet user a card will belong to.
type CardholderRequest struct {
	AccountID uuid.UUID
	Name      string
	Email     string
	Phone     string
}

// CreateCardRequest asks the issuer for a prepaid card capped at SpendingLimit.
type CreateCardRequest struct {
	CardholderID  string
	SpendingLimit decimal.Decimal
	Currency      string
	Reference     string
}

// IssuedCard is the issuer's view of a newly created card.
type IssuedCard struct {
	CardID string
	Status string
	Last4  string
}

// CardSecrets are the sensitive card details, never persisted by the wallet.
type CardSecrets struct {
	Number   string
	CVC      string
	ExpMonth int
	ExpYear  int
}

// CardIssuer is the card-issuing provider.
type CardIssuer interface {
	CreateCardholder(ctx context.Context, req CardholderRequest) (string, error)
	CreateCard(ctx context.Context, req CreateCardRequest) (*IssuedCard, error)
	UpdateCardStatus(ctx context.Context, cardID, status string) error
	RetrieveCardSecrets(ctx context.Context, cardID string) (*CardSecrets, error)
}

// TxStatus is the network's view of an on-chain transfer.
type TxStatus struct {
	Confirmations int
	Reverted      bool
}

// ChainNetwork is the blockchain network hosting the stablecoin.
type ChainNetwork interface {
	Name() string
	DeriveAddress(ctx context.Context, index int64) (string, error)
	TokenBalance(ctx context.Context, address, token string) (decimal.Decimal, error)
	TransactionStatus(ctx context.Context, txHash string) (*TxStatus, error)
	SendFromHotWallet(ctx context.Context, to string, amount decimal.Decimal, token string) (string, error)
}

// PriceSource quotes how many units of quote one unit of base buys.
type PriceSource interface {
	Rate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}
