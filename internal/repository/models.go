package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID               pgtype.UUID `json:"id"`
	Username         string      `json:"username"`
	Email            string      `json:"email"`
	Phone            *string     `json:"phone"`
	Role             string      `json:"role"`
	VerificationTier int16       `json:"verification_tier"`
	Active           bool        `json:"active"`
	CardholderID     *string     `json:"cardholder_id"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type Balance struct {
	AccountID pgtype.UUID    `json:"account_id"`
	Currency  string         `json:"currency"`
	Amount    pgtype.Numeric `json:"amount"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type MutationRecord struct {
	ID             pgtype.UUID    `json:"id"`
	AccountID      pgtype.UUID    `json:"account_id"`
	Direction      string         `json:"direction"`
	Amount         pgtype.Numeric `json:"amount"`
	Currency       string         `json:"currency"`
	Description    string         `json:"description"`
	CorrelationID  string         `json:"correlation_id"`
	IdempotencyKey *string        `json:"idempotency_key"`
	CreatedAt      time.Time      `json:"created_at"`
}

type Transfer struct {
	ID                 pgtype.UUID        `json:"id"`
	SenderID           pgtype.UUID        `json:"sender_id"`
	RecipientID        pgtype.UUID        `json:"recipient_id"`
	RecipientEmail     *string            `json:"recipient_email"`
	RecipientPhone     *string            `json:"recipient_phone"`
	DestinationAddress *string            `json:"destination_address"`
	Kind               string             `json:"kind"`
	SourceCurrency     string             `json:"source_currency"`
	TargetCurrency     string             `json:"target_currency"`
	AmountSource       pgtype.Numeric     `json:"amount_source"`
	Fee                pgtype.Numeric     `json:"fee"`
	FeePercentage      pgtype.Numeric     `json:"fee_percentage"`
	ExchangeRate       pgtype.Numeric     `json:"exchange_rate"`
	AmountReceived     pgtype.Numeric     `json:"amount_received"`
	TotalDebit         pgtype.Numeric     `json:"total_debit"`
	Status             string             `json:"status"`
	FailureReason      *string            `json:"failure_reason"`
	ProviderRef        *string            `json:"provider_ref"`
	ReferenceID        string             `json:"reference_id"`
	Resolution         *string            `json:"resolution"`
	ResolvedBy         pgtype.UUID        `json:"resolved_by"`
	ResolvedAt         pgtype.Timestamptz `json:"resolved_at"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type IssuedInstrument struct {
	ID             pgtype.UUID        `json:"id"`
	TransferID     pgtype.UUID        `json:"transfer_id"`
	Kind           string             `json:"kind"`
	ProviderCardID *string            `json:"provider_card_id"`
	SpendingLimit  pgtype.Numeric     `json:"spending_limit"`
	AmountConsumed pgtype.Numeric     `json:"amount_consumed"`
	Currency       string             `json:"currency"`
	Status         string             `json:"status"`
	LockState      *string            `json:"lock_state"`
	CodeHash       *string            `json:"code_hash"`
	FailedAttempts int32              `json:"failed_attempts"`
	ExpiresAt      pgtype.Timestamptz `json:"expires_at"`
	UnlockedAt     pgtype.Timestamptz `json:"unlocked_at"`
	ClaimedBy      pgtype.UUID        `json:"claimed_by"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type ExternalDeposit struct {
	ExternalID    string             `json:"external_id"`
	Source        string             `json:"source"`
	AccountID     pgtype.UUID        `json:"account_id"`
	Currency      string             `json:"currency"`
	Amount        pgtype.Numeric     `json:"amount"`
	Confirmations int32              `json:"confirmations"`
	Status        string             `json:"status"`
	CreditedAt    pgtype.Timestamptz `json:"credited_at"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type DepositAddress struct {
	AccountID    pgtype.UUID `json:"account_id"`
	Network      string      `json:"network"`
	AddressIndex int64       `json:"address_index"`
	Address      string      `json:"address"`
	CreatedAt    time.Time   `json:"created_at"`
}

type AuditLog struct {
	ID         int64       `json:"id"`
	EntityType string      `json:"entity_type"`
	EntityID   pgtype.UUID `json:"entity_id"`
	ActorID    pgtype.UUID `json:"actor_id"`
	Action     string      `json:"action"`
	PrevState  *string     `json:"prev_state"`
	NextState  *string     `json:"next_state"`
	Metadata   []byte      `json:"metadata"`
	CreatedAt  time.Time   `json:"created_at"`
}

type IdempotencyKey struct {
	IdempotencyKey string    `json:"idempotency_key"`
	RequestHash    string    `json:"request_hash"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	ResponseStatus int32     `json:"response_status"`
	ResponseBody   []byte    `json:"response_body"`
	ContentType    string    `json:"content_type"`
	InProgress     bool      `json:"in_progress"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
