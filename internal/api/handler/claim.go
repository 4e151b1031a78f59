package handler

import (
	"net/http"

	"github.com/ayo6706/multicurrency-wallet/internal/api/problem"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
)

type ClaimHandler struct {
	svc *service.ClaimService
}

func NewClaimHandler(svc *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{svc: svc}
}

type unlockRequest struct {
	Code string `json:"code"`
}

// Unlock handles POST /v1/claims/{id}/unlock where id is the claim-link transfer.
// The funds are credited to the authenticated account.
func (h *ClaimHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	claimantID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	transferID, err := uuidParam(r, "id")
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	var req unlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.FromError(w, r, err)
		return
	}

	inst, err := h.svc.Unlock(r.Context(), service.UnlockRequest{
		TransferID: transferID,
		Code:       req.Code,
		ClaimantID: claimantID,
	})
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, inst)
}
