package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	Role             string    `json:"role"`
	VerificationTier int       `json:"verification_tier"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

type Balance struct {
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Entry is one line of an account statement.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	Direction     string          `json:"direction"` // "debit" or "credit"
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	CorrelationID string          `json:"correlation_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Transfer struct {
	ID                 uuid.UUID       `json:"id"`
	SenderID           uuid.UUID       `json:"sender_id"`
	RecipientID        *uuid.UUID      `json:"recipient_id,omitempty"`
	RecipientEmail     string          `json:"recipient_email,omitempty"`
	RecipientPhone     string          `json:"recipient_phone,omitempty"`
	DestinationAddress string          `json:"destination_address,omitempty"`
	Kind               string          `json:"kind"`
	SourceCurrency     string          `json:"source_currency"`
	TargetCurrency     string          `json:"target_currency"`
	AmountSource       decimal.Decimal `json:"amount_source"`
	Fee                decimal.Decimal `json:"fee"`
	FeePercentage      decimal.Decimal `json:"fee_percentage"`
	ExchangeRate       decimal.Decimal `json:"exchange_rate"`
	AmountReceived     decimal.Decimal `json:"amount_received"`
	TotalDebit         decimal.Decimal `json:"total_debit"`
	Status             string          `json:"status"` // PENDING, COMPLETED or FAILED
	FailureReason      string          `json:"failure_reason,omitempty"`
	ProviderRef        string          `json:"provider_ref,omitempty"`
	ReferenceID        string          `json:"reference_id"`
	Resolution         string          `json:"resolution,omitempty"`
	ResolvedAt         *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Instrument is a card or claim link funded by a transfer.
type Instrument struct {
	ID             uuid.UUID       `json:"id"`
	TransferID     uuid.UUID       `json:"transfer_id"`
	Kind           string          `json:"kind"`
	ProviderCardID string          `json:"provider_card_id,omitempty"`
	SpendingLimit  decimal.Decimal `json:"spending_limit"`
	AmountConsumed decimal.Decimal `json:"amount_consumed"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	LockState      string          `json:"lock_state,omitempty"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	UnlockedAt     *time.Time      `json:"unlocked_at,omitempty"`
}

type DepositAddress struct {
	Network string `json:"network"`
	Address string `json:"address"`
	Token   string `json:"token"`
}
