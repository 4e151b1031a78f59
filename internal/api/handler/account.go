package handler

import (
	"errors"
	"net/http"

	"github.com/ayo6706/multicurrency-wallet/internal/api/problem"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Signup handles POST /v1/accounts.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.FromError(w, r, err)
		return
	}
	acc, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrAccountExists) {
			RespondError(w, r, http.StatusConflict, "account/exists", "username or email already registered")
			return
		}
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, acc)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	acc, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, acc)
}

func (h *AccountHandler) Balances(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	balances, err := h.svc.GetBalances(r.Context(), accountID)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (h *AccountHandler) Statement(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	page, err := intQuery(r, "page", 1)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	pageSize, err := intQuery(r, "page_size", 50)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	entries, err := h.svc.GetStatement(r.Context(), accountID, page, pageSize)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"entries": entries, "page": max(page, 1)})
}

type setTierRequest struct {
	Tier *int `json:"tier"`
}

// SetTier handles PUT /v1/admin/accounts/{id}/tier.
func (h *AccountHandler) SetTier(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	accountID, err := uuidParam(r, "id")
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	var req setTierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.FromError(w, r, err)
		return
	}
	if req.Tier == nil {
		RespondError(w, r, http.StatusBadRequest, "validation", "tier is required")
		return
	}
	acc, err := h.svc.SetTier(r.Context(), actorID, accountID, *req.Tier)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, acc)
}

// Deactivate handles POST /v1/admin/accounts/{id}/deactivate.
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	accountID, err := uuidParam(r, "id")
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	if err := h.svc.Deactivate(r.Context(), actorID, accountID); err != nil {
		problem.FromError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
