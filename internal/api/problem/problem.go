// Package problem writes RFC 7807 problem responses.
package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"go.uber.org/zap"
)

const contentType = "application/problem+json"
const baseTypeURL = "https://errors.wallet.example/"

// Details represents RFC 7807 Problem Details.
type Details struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	RequestID string `json:"request_id"`
	Field     string `json:"field,omitempty"`
}

func Type(slug string) string {
	return baseTypeURL + slug
}

// Write sends RFC 7807-compliant errors.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	write(w, r, Details{Type: problemType, Title: title, Status: status, Detail: detail})
}

func write(w http.ResponseWriter, r *http.Request, d Details) {
	if d.Title == "" {
		d.Title = http.StatusText(d.Status)
	}
	if d.Type == "" {
		d.Type = "about:blank"
	}
	if r != nil {
		d.Instance = r.URL.Path
		d.RequestID = r.Header.Get("X-Trace-ID")
	}
	if d.RequestID == "" {
		d.RequestID = w.Header().Get("X-Trace-ID")
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}

type mapping struct {
	target error
	status int
	slug   string
}

// Order matters: specific claim errors come before their shared parent.
var mappings = []mapping{
	{domain.ErrValidation, http.StatusBadRequest, "validation"},
	{domain.ErrInvalidSignature, http.StatusUnauthorized, "webhook/invalid-signature"},
	{domain.ErrLimitExceeded, http.StatusUnprocessableEntity, "transfer/limit-exceeded"},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "transfer/insufficient-funds"},
	{domain.ErrAccountInactive, http.StatusUnprocessableEntity, "account/inactive"},
	{domain.ErrAccountNotFound, http.StatusNotFound, "account/not-found"},
	{domain.ErrTransferNotFound, http.StatusNotFound, "transfer/not-found"},
	{domain.ErrInstrumentNotFound, http.StatusNotFound, "instrument/not-found"},
	{domain.ErrTransferNotResolvable, http.StatusConflict, "transfer/not-resolvable"},
	{domain.ErrDuplicateMutation, http.StatusConflict, "ledger/duplicate-mutation"},
	{domain.ErrUnknownDepositAddress, http.StatusUnprocessableEntity, "deposit/unknown-address"},
	{domain.ErrDepositPayloadMismatch, http.StatusConflict, "deposit/payload-mismatch"},
	{domain.ErrClaimNotFound, http.StatusNotFound, "claim/not-found"},
	{domain.ErrClaimExpired, http.StatusGone, "claim/expired"},
	{domain.ErrClaimCanceled, http.StatusGone, "claim/canceled"},
	{domain.ErrClaimLockedOut, http.StatusLocked, "claim/locked-out"},
	{domain.ErrClaimAlreadyRedeemed, http.StatusConflict, "claim/already-redeemed"},
	{domain.ErrInvalidClaimCode, http.StatusUnprocessableEntity, "claim/invalid-code"},
	{domain.ErrExpiredOrInvalidClaim, http.StatusUnprocessableEntity, "claim/invalid"},
	{domain.ErrRateUnavailable, http.StatusServiceUnavailable, "rates/unavailable"},
	{domain.ErrExternalProvider, http.StatusBadGateway, "provider/unavailable"},
}

// FromError maps a domain error to its problem response. Unknown errors are
// logged and reported as 500 without leaking their message.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range mappings {
		if !errors.Is(err, m.target) {
			continue
		}
		d := Details{Type: Type(m.slug), Status: m.status, Detail: err.Error()}
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			d.Field = ve.Field
			d.Detail = ve.Message
		}
		write(w, r, d)
		return
	}

	fields := []zap.Field{zap.Error(err)}
	if r != nil {
		fields = append(fields, zap.String("method", r.Method), zap.String("path", r.URL.Path))
	}
	zap.L().Error("unhandled request error", fields...)
	write(w, r, Details{Type: Type("internal-server-error"), Status: http.StatusInternalServerError, Detail: "unexpected server error"})
}
