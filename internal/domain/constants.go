package domain

const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"

	RoleUser  = "user"
	RoleAdmin = "admin"

	TransferKindAccount    = "ACCOUNT"
	TransferKindCard       = "CARD"
	TransferKindClaimLink  = "CLAIM_LINK"
	TransferKindWithdrawal = "WITHDRAWAL"

	TransferStatusPending   = "PENDING"
	TransferStatusCompleted = "COMPLETED"
	TransferStatusFailed    = "FAILED"

	ResolutionAcknowledged = "ACKNOWLEDGED"
	ResolutionRefunded     = "REFUNDED"

	InstrumentKindCard      = "CARD"
	InstrumentKindClaimLink = "CLAIM_LINK"

	InstrumentStatusInactive = "INACTIVE"
	InstrumentStatusActive   = "ACTIVE"
	InstrumentStatusCanceled = "CANCELED"

	LockStateLocked   = "LOCKED"
	LockStateUnlocked = "UNLOCKED"

	DepositSourceChain = "CHAIN"
	DepositSourceCard  = "CARD"

	DepositStatusPending   = "PENDING"
	DepositStatusConfirmed = "CONFIRMED"
	DepositStatusCredited  = "CREDITED"
	DepositStatusFailed    = "FAILED"

	// Tier0 .. Tier2 are verification tiers supplied by the identity workflow.
	Tier0 = 0
	Tier1 = 1
	Tier2 = 2

	// ReferenceCurrency is the currency limit ceilings are expressed in.
	ReferenceCurrency = "USD"

	// StablecoinCurrency is the chain-settled currency.
	StablecoinCurrency = "USDC"
)

// IngestOutcome is the result of absorbing one external event.
type IngestOutcome string

const (
	IngestCredited         IngestOutcome = "CREDITED"
	IngestAlreadyProcessed IngestOutcome = "ALREADY_PROCESSED"
	IngestPending          IngestOutcome = "PENDING"
	IngestApplied          IngestOutcome = "APPLIED"
	IngestFailed           IngestOutcome = "FAILED"
)

// DepositStatusRank orders deposit statuses for monotonic merging. FAILED is terminal and ranked highest.
func DepositStatusRank(status string) int {
	switch status {
	case DepositStatusPending:
		return 0
	case DepositStatusConfirmed:
		return 1
	case DepositStatusCredited:
		return 2
	case DepositStatusFailed:
		return 3
	default:
		return -1
	}
}
