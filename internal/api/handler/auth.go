package handler

import (
	"net/http"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/api/middleware"
	"github.com/ayo6706/multicurrency-wallet/internal/api/problem"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
	"go.uber.org/zap"
)

const tokenTTL = 24 * time.Hour

// AuthHandler mints bearer tokens for development environments. Production
// deployments sit behind an identity provider and disable it.
type AuthHandler struct {
	accounts *service.AccountService
	auth     *middleware.Authenticator
	enabled  bool
}

func NewAuthHandler(accounts *service.AccountService, auth *middleware.Authenticator, enabled bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, auth: auth, enabled: enabled}
}

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		RespondError(w, r, http.StatusNotFound, "auth/login-disabled", "login is disabled")
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.FromError(w, r, err)
		return
	}
	if err := mustNotBeEmpty("email", req.Email); err != nil {
		problem.FromError(w, r, err)
		return
	}

	acc, err := h.accounts.GetAccountByEmail(r.Context(), req.Email)
	if err != nil {
		problem.FromError(w, r, err)
		return
	}
	if !acc.Active {
		RespondError(w, r, http.StatusForbidden, "account/inactive", "account is deactivated")
		return
	}

	token, err := h.auth.IssueToken(acc.ID, acc.Role, tokenTTL)
	if err != nil {
		zap.L().Error("issue token failed", zap.Error(err), zap.String("account_id", acc.ID.String()))
		RespondError(w, r, http.StatusInternalServerError, "auth/token-failed", "Failed to sign token")
		return
	}
	RespondJSON(w, http.StatusOK, loginResponse{Token: token, AccountID: acc.ID.String(), ExpiresAt: time.Now().Add(tokenTTL).UTC()})
}
