package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/api"
	"github.com/ayo6706/multicurrency-wallet/internal/config"
	"github.com/ayo6706/multicurrency-wallet/internal/db"
	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/gateway"
	"github.com/ayo6706/multicurrency-wallet/internal/idempotency"
	"github.com/ayo6706/multicurrency-wallet/internal/notify"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
	"github.com/ayo6706/multicurrency-wallet/internal/testutil/dblock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "multicurrency-wallet-test"
	testJWTAudience = "wallet-api-test"
	testWebhookKey  = "test-webhook-key"
)

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env")
	release := dblock.Acquire()
	code := m.Run()
	release()
	os.Exit(code)
}

type capturingNotifier struct {
	messages []notify.ClaimMessage
}

func (n *capturingNotifier) NotifyClaim(ctx context.Context, msg notify.ClaimMessage) error {
	n.messages = append(n.messages, msg)
	return nil
}

type testAPI struct {
	router   *api.Router
	handler  http.Handler
	pool     *pgxpool.Pool
	notifier *capturingNotifier
	verifier *service.SignatureVerifier
	chain    *gateway.MockChainNetwork
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	require.NoError(t, db.MigrateUp(connString))

	pool, err := db.Connect(context.Background(), connString)
	if err != nil {
		t.Skipf("Skipping integration test: database unreachable: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), `TRUNCATE TABLE
		card_authorizations, issued_instruments, transfers, external_events, external_deposits,
		deposit_addresses, mutation_records, balances, audit_log, idempotency_keys, accounts CASCADE`)
	require.NoError(t, err)

	cfg := &config.Config{
		HTTPPort:             "0",
		JWTSecret:            testJWTSecret,
		JWTIssuer:            testJWTIssuer,
		JWTAudience:          testJWTAudience,
		WebhookHMACKey:       testWebhookKey,
		PublicRateLimitRPS:   1000,
		UserRateLimitPerMin:  1000,
		RateLimitFailOpen:    true,
		AllowOpeningBalances: true,
		EnableDevLogin:       true,
		IdempotencyTTL:       time.Hour,
	}

	store := repository.NewStore(pool)
	prices := gateway.NewStaticPriceSourceFrom(map[string]decimal.Decimal{
		"USD":  decimal.NewFromInt(1),
		"USDC": decimal.NewFromInt(1),
		"EUR":  decimal.RequireFromString("0.8"),
	})
	conv := service.NewConverter(prices, service.NewRateCache(time.Minute), service.DefaultFeePolicy())
	cards := gateway.NewMockCardIssuer()
	cards.FailureRate = 0
	cards.MaxDelay = 0
	chain := gateway.NewMockChainNetwork("base", "test-seed", "test-signing-key")
	notifier := &capturingNotifier{}
	claims := service.NewClaimService(store, notifier, service.ClaimConfig{HashCost: 4})
	transfers := service.NewTransferService(store, conv, service.NewLimitGuard(service.DefaultTierLimits()), cards, chain, claims).
		WithRetryPolicy(gateway.RetryPolicy{MaxRetries: 0})
	verifier := service.NewSignatureVerifier(testWebhookKey, false)

	router := api.NewRouter(cfg, zap.NewNop(), pool, nil, idempotency.NewStore(nil, pool, cfg.IdempotencyTTL), api.Services{
		Accounts:  service.NewAccountService(store, true),
		Transfers: transfers,
		Converter: conv,
		Claims:    claims,
		Deposits:  service.NewDepositAddressService(store, chain),
		Ingestion: service.NewIngestionService(store, service.DefaultConfirmationThreshold),
		Verifier:  verifier,
	})
	return &testAPI{router: router, handler: router.Routes(), pool: pool, notifier: notifier, verifier: verifier, chain: chain}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testAPI) token(t *testing.T, accountID uuid.UUID, role string) string {
	t.Helper()
	tok, err := a.router.Authenticator().IssueToken(accountID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) signup(t *testing.T, username string, balances map[string]string) uuid.UUID {
	t.Helper()
	body := map[string]any{"username": username, "email": username + "@example.com"}
	if balances != nil {
		body["opening_balances"] = balances
	}
	w := a.do(t, http.MethodPost, "/v1/accounts", "", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var acc struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acc))
	return acc.ID
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func balanceIn(t *testing.T, a *testAPI, token, currency string) decimal.Decimal {
	t.Helper()
	w := a.do(t, http.MethodGet, "/v1/accounts/me/balances", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Balances []struct {
			Currency string          `json:"currency"`
			Amount   decimal.Decimal `json:"amount"`
		} `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, b := range body.Balances {
		if b.Currency == currency {
			return b.Amount
		}
	}
	return decimal.Zero
}

func TestRFC7807ProblemDetails(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/v1/accounts/me/balances", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["type"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.NotEmpty(t, body["title"])
	assert.NotEmpty(t, body["detail"])
	assert.Equal(t, "/v1/accounts/me/balances", body["instance"])
	assert.NotEmpty(t, body["request_id"])
}

func TestSignupLoginAndBalances(t *testing.T) {
	a := setupAPI(t)
	id := a.signup(t, "alice", map[string]string{"USD": "500"})

	w := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "alice@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decodeBody(t, w)
	assert.Equal(t, id.String(), login["account_id"])
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)

	assert.True(t, decimal.NewFromInt(500).Equal(balanceIn(t, a, token, "USD")))

	w = a.do(t, http.MethodGet, "/v1/accounts/me/statement", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries, _ := decodeBody(t, w)["entries"].([]any)
	assert.Len(t, entries, 1)

	w = a.do(t, http.MethodPost, "/v1/accounts", "", map[string]any{"username": "alice", "email": "alice@example.com"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignupRejectsUnknownFields(t *testing.T) {
	a := setupAPI(t)
	w := a.do(t, http.MethodPost, "/v1/accounts", "", []byte(`{"username":"bob","email":"bob@example.com","role":"admin"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountTransferFlow(t *testing.T) {
	a := setupAPI(t)
	sender := a.signup(t, "sender", map[string]string{"USD": "100"})
	recipient := a.signup(t, "recipient", nil)
	senderToken := a.token(t, sender, domain.RoleUser)
	recipientToken := a.token(t, recipient, domain.RoleUser)

	body := map[string]any{
		"kind":            domain.TransferKindAccount,
		"amount":          "50",
		"source_currency": "USD",
		"target_currency": "EUR",
		"recipient_id":    recipient.String(),
	}
	w := a.do(t, http.MethodPost, "/v1/transfers", senderToken, body, map[string]string{"Idempotency-Key": "tx-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res struct {
		Transfer struct {
			ID             uuid.UUID       `json:"id"`
			Status         string          `json:"status"`
			AmountReceived decimal.Decimal `json:"amount_received"`
			TotalDebit     decimal.Decimal `json:"total_debit"`
		} `json:"transfer"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, domain.TransferStatusCompleted, res.Transfer.Status)
	assert.True(t, decimal.NewFromInt(40).Equal(res.Transfer.AmountReceived), res.Transfer.AmountReceived.String())
	assert.True(t, decimal.RequireFromString("50.9").Equal(res.Transfer.TotalDebit), res.Transfer.TotalDebit.String())

	assert.True(t, decimal.RequireFromString("49.1").Equal(balanceIn(t, a, senderToken, "USD")))
	assert.True(t, decimal.NewFromInt(40).Equal(balanceIn(t, a, recipientToken, "EUR")))

	w = a.do(t, http.MethodGet, "/v1/transfers/"+res.Transfer.ID.String(), recipientToken, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	stranger := a.signup(t, "stranger", nil)
	w = a.do(t, http.MethodGet, "/v1/transfers/"+res.Transfer.ID.String(), a.token(t, stranger, domain.RoleUser), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransferIdempotencyReplayAndConflict(t *testing.T) {
	a := setupAPI(t)
	sender := a.signup(t, "payer", map[string]string{"USD": "100"})
	recipient := a.signup(t, "payee", nil)
	token := a.token(t, sender, domain.RoleUser)

	body := map[string]any{
		"kind":            domain.TransferKindAccount,
		"amount":          "10",
		"source_currency": "USD",
		"target_currency": "USD",
		"recipient_id":    recipient.String(),
	}
	headers := map[string]string{"Idempotency-Key": "same-key"}

	first := a.do(t, http.MethodPost, "/v1/transfers", token, body, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	replay := a.do(t, http.MethodPost, "/v1/transfers", token, body, headers)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.NotEmpty(t, replay.Header().Get("X-Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	body["amount"] = "11"
	conflict := a.do(t, http.MethodPost, "/v1/transfers", token, body, headers)
	assert.Equal(t, http.StatusConflict, conflict.Code)

	missing := a.do(t, http.MethodPost, "/v1/transfers", token, body, nil)
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	assert.True(t, decimal.NewFromInt(90).Equal(balanceIn(t, a, token, "USD")))
}

func TestTransferErrorsMapToStatus(t *testing.T) {
	a := setupAPI(t)
	sender := a.signup(t, "poor", map[string]string{"USD": "20"})
	recipient := a.signup(t, "rich", nil)
	token := a.token(t, sender, domain.RoleUser)

	tests := []struct {
		name   string
		amount string
		status int
		slug   string
	}{
		{name: "insufficient funds", amount: "50", status: http.StatusUnprocessableEntity, slug: "transfer/insufficient-funds"},
		{name: "over tier ceiling", amount: "150", status: http.StatusUnprocessableEntity, slug: "transfer/limit-exceeded"},
		{name: "non positive amount", amount: "0", status: http.StatusBadRequest, slug: "validation"},
	}
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := map[string]any{
				"kind":            domain.TransferKindAccount,
				"amount":          tc.amount,
				"source_currency": "USD",
				"target_currency": "USD",
				"recipient_id":    recipient.String(),
			}
			w := a.do(t, http.MethodPost, "/v1/transfers", token, body, map[string]string{"Idempotency-Key": "err-" + string(rune('a'+i))})
			require.Equal(t, tc.status, w.Code, w.Body.String())
			assert.True(t, strings.HasSuffix(decodeBody(t, w)["type"].(string), tc.slug))
		})
	}
	assert.True(t, decimal.NewFromInt(20).Equal(balanceIn(t, a, token, "USD")))
}

func TestClaimLinkUnlockOverHTTP(t *testing.T) {
	a := setupAPI(t)
	sender := a.signup(t, "gifter", map[string]string{"USD": "100"})
	claimant := a.signup(t, "claimer", nil)
	senderToken := a.token(t, sender, domain.RoleUser)
	claimantToken := a.token(t, claimant, domain.RoleUser)

	w := a.do(t, http.MethodPost, "/v1/transfers", senderToken, map[string]any{
		"kind":            domain.TransferKindClaimLink,
		"amount":          "25",
		"source_currency": "USD",
		"target_currency": "USD",
		"recipient_email": "friend@example.com",
	}, map[string]string{"Idempotency-Key": "claim-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, a.notifier.messages, 1)
	msg := a.notifier.messages[0]

	wrong := "000000"
	if msg.UnlockCode == wrong {
		wrong = "111111"
	}
	w = a.do(t, http.MethodPost, "/v1/claims/"+msg.TransferID+"/unlock", claimantToken,
		map[string]string{"code": wrong}, map[string]string{"Idempotency-Key": "unlock-wrong"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/v1/claims/"+msg.TransferID+"/unlock", claimantToken,
		map[string]string{"code": msg.UnlockCode}, map[string]string{"Idempotency-Key": "unlock-right"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decimal.NewFromInt(25).Equal(balanceIn(t, a, claimantToken, "USD")))

	w = a.do(t, http.MethodPost, "/v1/claims/"+msg.TransferID+"/unlock", claimantToken,
		map[string]string{"code": msg.UnlockCode}, map[string]string{"Idempotency-Key": "unlock-again"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestChainWebhookCreditsOnce(t *testing.T) {
	a := setupAPI(t)
	account := a.signup(t, "hodler", nil)
	token := a.token(t, account, domain.RoleUser)

	w := a.do(t, http.MethodGet, "/v1/deposit-addresses/base", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	address, _ := decodeBody(t, w)["address"].(string)
	require.NotEmpty(t, address)

	txHash := "0x" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	payload := []byte(`{"network":"base","tx_hash":"` + txHash + `","to_address":"` + address +
		`","token":"USDC","amount":"75","confirmations":20,"status":"confirmed"}`)
	signed := map[string]string{"X-Webhook-Signature": a.verifier.Sign(payload)}

	w = a.do(t, http.MethodPost, "/v1/webhooks/chain", "", payload, map[string]string{"X-Webhook-Signature": "sha256=00"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/v1/webhooks/chain", "", payload, signed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(domain.IngestCredited), decodeBody(t, w)["outcome"])

	w = a.do(t, http.MethodPost, "/v1/webhooks/chain", "", payload, signed)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(domain.IngestAlreadyProcessed), decodeBody(t, w)["outcome"])

	assert.True(t, decimal.NewFromInt(75).Equal(balanceIn(t, a, token, "USDC")))
}

func TestMalformedWebhookRejected(t *testing.T) {
	a := setupAPI(t)
	payload := []byte(`{"id":"evt_1","type":"card.unknown","data":{}}`)
	w := a.do(t, http.MethodPost, "/v1/webhooks/card", "", payload, map[string]string{"X-Webhook-Signature": a.verifier.Sign(payload)})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	a := setupAPI(t)
	user := a.signup(t, "plain", nil)
	admin := a.signup(t, "boss", nil)

	w := a.do(t, http.MethodGet, "/v1/admin/transfers/failed", a.token(t, user, domain.RoleUser), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := a.token(t, admin, domain.RoleAdmin)
	w = a.do(t, http.MethodGet, "/v1/admin/transfers/failed", adminToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPut, "/v1/admin/accounts/"+user.String()+"/tier", adminToken, map[string]int{"tier": domain.Tier2}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(domain.Tier2), decodeBody(t, w)["verification_tier"])

	w = a.do(t, http.MethodPost, "/v1/admin/accounts/"+user.String()+"/deactivate", adminToken, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "plain@example.com"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestResolveUnknownTransfer(t *testing.T) {
	a := setupAPI(t)
	admin := a.signup(t, "auditor", nil)
	w := a.do(t, http.MethodPost, "/v1/admin/transfers/"+uuid.NewString()+"/resolve", a.token(t, admin, domain.RoleAdmin),
		map[string]string{"decision": "refund", "reason": "provider confirmed failure"},
		map[string]string{"Idempotency-Key": "resolve-1"})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestHealthAndDocs(t *testing.T) {
	a := setupAPI(t)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/healthz", "", nil, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/readyz", "", nil, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/metrics", "", nil, nil).Code)

	w := a.do(t, http.MethodGet, "/openapi.yaml", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi:")

	w = a.do(t, http.MethodGet, "/v1/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
