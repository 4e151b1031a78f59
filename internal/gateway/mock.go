package gateway

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	mathrand "math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// MockCardIssuer simulates the card-issuing provider. It introduces a
// random delay and fails with probability FailureRate.
type MockCardIssuer struct {
	FailureRate float64
	MaxDelay    time.Duration

	mu    sync.Mutex
	cards map[string]*mockCard
}

type mockCard struct {
	holder string
	status string
	limit  decimal.Decimal
	number string
}

// NewMockCardIssuer creates a MockCardIssuer with a 10% failure rate.
func NewMockCardIssuer() *MockCardIssuer {
	return &MockCardIssuer{
		FailureRate: 0.1,
		MaxDelay:    500 * time.Millisecond,
		cards:       make(map[string]*mockCard),
	}
}

func (g *MockCardIssuer) CreateCardholder(ctx context.Context, req CardholderRequest) (string, error) {
	if err := simulateLatency(ctx, g.MaxDelay); err != nil {
		return "", err
	}
	if shouldFail(g.FailureRate) {
		return "", fmt.Errorf("card issuer temporarily unavailable")
	}
	return "ich_" + newULID(), nil
}

func (g *MockCardIssuer) CreateCard(ctx context.Context, req CreateCardRequest) (*IssuedCard, error) {
	if err := simulateLatency(ctx, g.MaxDelay); err != nil {
		return nil, err
	}
	if shouldFail(g.FailureRate) {
		return nil, fmt.Errorf("card issuer temporarily unavailable")
	}
	if req.CardholderID == "" {
		return nil, fmt.Errorf("cardholder is required")
	}
	if !req.SpendingLimit.IsPositive() {
		return nil, fmt.Errorf("spending limit must be positive")
	}

	id := "ic_" + newULID()
	number := fmt.Sprintf("4242%012d", mathrand.Int63n(1_000_000_000_000))

	g.mu.Lock()
	if g.cards == nil {
		g.cards = make(map[string]*mockCard)
	}
	g.cards[id] = &mockCard{holder: req.CardholderID, status: "INACTIVE", limit: req.SpendingLimit, number: number}
	g.mu.Unlock()

	return &IssuedCard{CardID: id, Status: "INACTIVE", Last4: number[len(number)-4:]}, nil
}

func (g *MockCardIssuer) UpdateCardStatus(ctx context.Context, cardID, status string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	card, ok := g.cards[cardID]
	if !ok {
		return fmt.Errorf("card %s not found", cardID)
	}
	card.status = strings.ToUpper(status)
	return nil
}

func (g *MockCardIssuer) RetrieveCardSecrets(ctx context.Context, cardID string) (*CardSecrets, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	card, ok := g.cards[cardID]
	if !ok {
		return nil, fmt.Errorf("card %s not found", cardID)
	}
	return &CardSecrets{
		Number:   card.number,
		CVC:      fmt.Sprintf("%03d", mathrand.Intn(1000)),
		ExpMonth: 12,
		ExpYear:  time.Now().Year() + 3,
	}, nil
}

// MockChainNetwork simulates a stablecoin network with a hot wallet.
// Addresses are derived deterministically from Seed and the index.
type MockChainNetwork struct {
	Network      string
	Seed         string
	SigningKey   string
	FailureRate  float64
	Confirmation int

	mu       sync.Mutex
	balances map[string]decimal.Decimal
	txs      map[string]*TxStatus
}

// NewMockChainNetwork creates a MockChainNetwork named network.
func NewMockChainNetwork(network, seed, signingKey string) *MockChainNetwork {
	return &MockChainNetwork{
		Network:      network,
		Seed:         seed,
		SigningKey:   signingKey,
		Confirmation: 12,
		balances:     make(map[string]decimal.Decimal),
		txs:          make(map[string]*TxStatus),
	}
}

func (n *MockChainNetwork) Name() string {
	return n.Network
}

func (n *MockChainNetwork) DeriveAddress(ctx context.Context, index int64) (string, error) {
	if index <= 0 {
		return "", fmt.Errorf("address index must be positive")
	}
	sum := sha256.Sum256([]byte(n.Seed + "/" + n.Network + "/" + strconv.FormatInt(index, 10)))
	return "0x" + hex.EncodeToString(sum[:20]), nil
}

func (n *MockChainNetwork) TokenBalance(ctx context.Context, address, token string) (decimal.Decimal, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balances[strings.ToLower(address)+"/"+token], nil
}

// Fund credits an address with token, for simulations and tests.
func (n *MockChainNetwork) Fund(address, token string, amount decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.balances == nil {
		n.balances = make(map[string]decimal.Decimal)
	}
	key := strings.ToLower(address) + "/" + token
	n.balances[key] = n.balances[key].Add(amount)
}

// SetTransactionStatus records the network view of txHash.
func (n *MockChainNetwork) SetTransactionStatus(txHash string, status TxStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.txs == nil {
		n.txs = make(map[string]*TxStatus)
	}
	n.txs[txHash] = &status
}

func (n *MockChainNetwork) TransactionStatus(ctx context.Context, txHash string) (*TxStatus, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.txs[txHash]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", txHash)
	}
	cp := *st
	return &cp, nil
}

func (n *MockChainNetwork) SendFromHotWallet(ctx context.Context, to string, amount decimal.Decimal, token string) (string, error) {
	if n.SigningKey == "" {
		return "", ErrHotWalletNotConfigured
	}
	if !strings.HasPrefix(to, "0x") || len(to) != 42 {
		return "", fmt.Errorf("invalid destination address %q", to)
	}
	if err := simulateLatency(ctx, 200*time.Millisecond); err != nil {
		return "", err
	}
	if shouldFail(n.FailureRate) {
		return "", fmt.Errorf("chain node temporarily unavailable")
	}
	sum := sha256.Sum256([]byte(newULID()))
	txHash := "0x" + hex.EncodeToString(sum[:])
	n.SetTransactionStatus(txHash, TxStatus{Confirmations: n.Confirmation})
	return txHash, nil
}

func simulateLatency(ctx context.Context, maxDelay time.Duration) error {
	if maxDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(mathrand.Int63n(int64(maxDelay)))):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("provider call canceled: %w", ctx.Err())
	}
}

func shouldFail(rate float64) bool {
	return rate > 0 && mathrand.Float64() < rate
}

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
