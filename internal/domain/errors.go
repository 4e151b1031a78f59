package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrLimitExceeded         = errors.New("verification tier limit exceeded")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrExternalProvider      = errors.New("external provider failure")
	ErrDuplicateEvent        = errors.New("event already processed")
	ErrDuplicateMutation     = errors.New("mutation already recorded")
	ErrRateUnavailable       = errors.New("exchange rate unavailable")
	ErrAccountNotFound       = errors.New("account not found")
	ErrAccountInactive       = errors.New("account is deactivated")
	ErrTransferNotFound      = errors.New("transfer not found")
	ErrTransferNotResolvable = errors.New("transfer is not an unresolved failure")

	// ErrExpiredOrInvalidClaim is the parent of every claim unlock rejection.
	ErrExpiredOrInvalidClaim = errors.New("claim expired or invalid")
	ErrClaimNotFound         = fmt.Errorf("%w: claim not found", ErrExpiredOrInvalidClaim)
	ErrClaimExpired          = fmt.Errorf("%w: claim expired", ErrExpiredOrInvalidClaim)
	ErrInvalidClaimCode      = fmt.Errorf("%w: invalid unlock code", ErrExpiredOrInvalidClaim)
	ErrClaimLockedOut        = fmt.Errorf("%w: too many failed attempts", ErrExpiredOrInvalidClaim)
	ErrClaimAlreadyRedeemed  = fmt.Errorf("%w: claim already redeemed", ErrExpiredOrInvalidClaim)
	ErrClaimCanceled         = fmt.Errorf("%w: claim canceled", ErrExpiredOrInvalidClaim)

	ErrInvalidSignature       = errors.New("invalid signature")
	ErrUnknownDepositAddress  = errors.New("unknown deposit address")
	ErrDepositPayloadMismatch = errors.New("deposit payload does not match existing record")
	ErrInstrumentNotFound     = errors.New("issued instrument not found")
)

// ValidationError names the offending field of a rejected request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
