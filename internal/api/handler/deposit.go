package handler

import (
	"net/http"

	"github.com/ayo6706/multicurrency-wallet/internal/api/problem"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
	"github.com/go-chi/chi/v5"
)

type DepositHandler struct {
	svc *service.DepositAddressService
}

func NewDepositHandler(svc *service.DepositAddressService) *DepositHandler {
	return &DepositHandler{svc: svc}
}

// GetAddress handles GET /v1/deposit-addresses/{network}.
func (h *DepositHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	addr, err := h.svc.GetOrCreate(r.Context(), accountID, chi.URLParam(r, "network"))
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, addr)
}
