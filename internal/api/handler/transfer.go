package handler

import (
	"net/http"
	"strings"

	"github.com/ayo6706/multicurrency-wallet/internal/api/problem"
	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
	"github.com/shopspring/decimal"
)

type TransferHandler struct {
	svc  *service.TransferService
	conv *service.Converter
}

func NewTransferHandler(svc *service.TransferService, conv *service.Converter) *TransferHandler {
	return &TransferHandler{svc: svc, conv: conv}
}

type quoteRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	SourceCurrency string          `json:"source_currency"`
	TargetCurrency string          `json:"target_currency"`
}

// Quote handles POST /v1/quotes. Quotes are informational; the transfer
// re-prices at execution.
func (h *TransferHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAccount(w, r); !ok {
		return
	}
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.FromError(w, r, err)
		return
	}
	q, err := h.conv.Quote(r.Context(), req.Amount, domain.NormalizeCurrency(req.SourceCurrency), domain.NormalizeCurrency(req.TargetCurrency))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, q)
}

type createTransferRequest struct {
	Kind               string          `json:"kind"`
	Amount             decimal.Decimal `json:"amount"`
	SourceCurrency     string          `json:"source_currency"`
	TargetCurrency     string          `json:"target_currency"`
	RecipientID        string          `json:"recipient_id"`
	RecipientEmail     string          `json:"recipient_email"`
	RecipientPhone     string          `json:"recipient_phone"`
	DestinationAddress string          `json:"destination_address"`
	ReferenceID        string          `json:"reference_id"`
}

// CreateTransfer handles POST /v1/transfers. The reference id defaults to the
// Idempotency-Key so a retried request resolves to the same transfer.
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	senderID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req createTransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.FromError(w, r, err)
		return
	}
	recipientID, err := parseOptionalUUID("recipient_id", req.RecipientID)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	reference := strings.TrimSpace(req.ReferenceID)
	if reference == "" {
		reference = r.Header.Get("Idempotency-Key")
	}

	res, err := h.svc.CreateTransfer(r.Context(), service.TransferRequest{
		SenderID:           senderID,
		Kind:               req.Kind,
		Amount:             req.Amount,
		SourceCurrency:     req.SourceCurrency,
		TargetCurrency:     req.TargetCurrency,
		RecipientID:        recipientID,
		RecipientEmail:     req.RecipientEmail,
		RecipientPhone:     req.RecipientPhone,
		DestinationAddress: req.DestinationAddress,
		ReferenceID:        reference,
	})
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	RespondJSON(w, status, res)
}

// GetTransfer handles GET /v1/transfers/{id}. Only the sender, the recipient
// or an admin may read a transfer; others get 404.
func (h *TransferHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	details, err := h.svc.GetTransfer(r.Context(), id)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	t := details.Transfer
	isParty := t.SenderID == actorID || (t.RecipientID != nil && *t.RecipientID == actorID)
	if !isParty && !isAdmin(r) {
		problem.FromError(w, r, domain.ErrTransferNotFound)
		return
	}
	RespondJSON(w, http.StatusOK, details)
}

// ListFailed handles GET /v1/admin/transfers/failed.
func (h *TransferHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	transfers, err := h.svc.ListFailedTransfers(r.Context(), limit, offset)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"transfers": transfers})
}

type resolveRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Resolve handles POST /v1/admin/transfers/{id}/resolve.
func (h *TransferHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.FromError(w, r, err)
		return
	}
	decision := service.ResolveDecision(strings.ToLower(strings.TrimSpace(req.Decision)))
	if decision != service.DecisionAcknowledge && decision != service.DecisionRefund {
		problem.FromError(w, r, domain.NewValidationError("decision", "must be acknowledge or refund"))
		return
	}
	if err := mustNotBeEmpty("reason", req.Reason); err != nil {
		problem.FromError(w, r, err)
		return
	}

	t, err := h.svc.ResolveFailedTransfer(r.Context(), service.ResolveRequest{
		TransferID: id,
		Decision:   decision,
		Reason:     strings.TrimSpace(req.Reason),
		ActorID:    actorID,
	})
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, t)
}
