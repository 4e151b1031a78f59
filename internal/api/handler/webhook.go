package handler

import (
	"io"
	"net/http"

	"github.com/ayo6706/multicurrency-wallet/internal/api/problem"
	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/events"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
	"go.uber.org/zap"
)

const signatureHeader = "X-Webhook-Signature"

// WebhookHandler receives card-issuer and chain-watcher events.
type WebhookHandler struct {
	ingest   *service.IngestionService
	verifier *service.SignatureVerifier
}

func NewWebhookHandler(ingest *service.IngestionService, verifier *service.SignatureVerifier) *WebhookHandler {
	return &WebhookHandler{ingest: ingest, verifier: verifier}
}

type webhookResponse struct {
	EventID string               `json:"event_id"`
	Outcome domain.IngestOutcome `json:"outcome"`
}

// Card handles POST /v1/webhooks/card.
func (h *WebhookHandler) Card(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, events.SourceCard, events.ParseCard)
}

// Chain handles POST /v1/webhooks/chain.
func (h *WebhookHandler) Chain(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, events.SourceChain, events.ParseChain)
}

// handle verifies the signature over the raw body, parses it once into an
// event variant and ingests it. Redeliveries answer 200 with ALREADY_PROCESSED
// so the sender stops retrying.
func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, source string, parse func([]byte) (events.Event, error)) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}
	if err := h.verifier.Verify(body, r.Header.Get(signatureHeader)); err != nil {
		zap.L().Warn("webhook signature rejected", zap.String("source", source))
		problem.FromError(w, r, err)
		return
	}

	ev, err := parse(body)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	outcome, err := h.ingest.Ingest(r.Context(), ev)
	if err != nil {
		zap.L().Error("webhook ingestion failed",
			zap.Error(err),
			zap.String("source", source),
			zap.String("event_id", ev.EventID()),
			zap.String("type", ev.Type()),
		)
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, webhookResponse{EventID: ev.EventID(), Outcome: outcome})
}
