package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/gateway"
	"github.com/ayo6706/multicurrency-wallet/internal/models"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/google/uuid"
)

// DepositAddressService hands out one stable deposit address per account and network.
type DepositAddressService struct {
	store QueryStore
	chain gateway.ChainNetwork
}

func NewDepositAddressService(store QueryStore, chain gateway.ChainNetwork) *DepositAddressService {
	return &DepositAddressService{store: store, chain: chain}
}

// GetOrCreate returns the account's address on network, allocating a new
// derivation index the first time it is requested.
func (s *DepositAddressService) GetOrCreate(ctx context.Context, accountID uuid.UUID, network string) (*models.DepositAddress, error) {
	network = strings.ToLower(strings.TrimSpace(network))
	if s.chain == nil || network != s.chain.Name() {
		return nil, domain.NewValidationError("network", "unsupported network %q", network)
	}

	q := s.store.Queries()
	key := repository.GetDepositAddressParams{AccountID: repository.ToPgUUID(accountID), Network: network}
	existing, err := q.GetDepositAddress(ctx, key)
	if err == nil {
		return depositAddressView(existing), nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("get deposit address: %w", err)
	}

	acc, err := q.GetAccount(ctx, repository.ToPgUUID(accountID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !acc.Active {
		return nil, domain.ErrAccountInactive
	}

	index, err := q.NextDepositAddressIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate address index: %w", err)
	}
	address, err := s.chain.DeriveAddress(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("%w: derive address: %v", domain.ErrExternalProvider, err)
	}

	// A concurrent request may have inserted first; the stored row wins and the index is skipped.
	if _, err := q.InsertDepositAddress(ctx, repository.InsertDepositAddressParams{
		AccountID:    key.AccountID,
		Network:      network,
		AddressIndex: index,
		Address:      address,
	}); err != nil {
		return nil, fmt.Errorf("insert deposit address: %w", err)
	}
	stored, err := q.GetDepositAddress(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reload deposit address: %w", err)
	}
	return depositAddressView(stored), nil
}

func depositAddressView(a repository.DepositAddress) *models.DepositAddress {
	return &models.DepositAddress{
		Network: a.Network,
		Address: a.Address,
		Token:   domain.StablecoinCurrency,
	}
}
