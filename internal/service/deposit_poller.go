package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/events"
	"github.com/ayo6706/multicurrency-wallet/internal/gateway"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"go.uber.org/zap"
)

// DepositPoller re-checks PENDING chain deposits against the network and feeds
// what it observes through the same ingestion path as webhooks.
type DepositPoller struct {
	store  QueryStore
	chain  gateway.ChainNetwork
	ingest *IngestionService
	batch  int32
}

func NewDepositPoller(store QueryStore, chain gateway.ChainNetwork, ingest *IngestionService, batchSize int32) *DepositPoller {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DepositPoller{store: store, chain: chain, ingest: ingest, batch: batchSize}
}

// PollOnce processes one batch and returns how many deposits were credited.
func (p *DepositPoller) PollOnce(ctx context.Context) (int, error) {
	q := p.store.Queries()
	pending, err := q.ListPendingChainDeposits(ctx, p.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending chain deposits: %w", err)
	}

	credited := 0
	for _, dep := range pending {
		if ctx.Err() != nil {
			return credited, ctx.Err()
		}
		outcome, err := p.pollDeposit(ctx, q, dep)
		if err != nil {
			zap.L().Warn("deposit poll failed",
				zap.Error(err),
				zap.String("external_id", dep.ExternalID),
				zap.String("account_id", repository.FromPgUUID(dep.AccountID).String()),
			)
			continue
		}
		if outcome == domain.IngestCredited {
			credited++
		}
	}
	return credited, nil
}

func (p *DepositPoller) pollDeposit(ctx context.Context, q *repository.Queries, dep repository.ExternalDeposit) (domain.IngestOutcome, error) {
	status, err := p.chain.TransactionStatus(ctx, dep.ExternalID)
	if err != nil {
		return "", fmt.Errorf("transaction status: %w", err)
	}
	addr, err := q.GetDepositAddress(ctx, repository.GetDepositAddressParams{
		AccountID: dep.AccountID,
		Network:   p.chain.Name(),
	})
	if err != nil {
		return "", fmt.Errorf("load deposit address: %w", err)
	}

	state := events.ChainStatePending
	switch {
	case status.Reverted:
		state = events.ChainStateFailed
	case status.Confirmations >= p.ingest.threshold:
		state = events.ChainStateConfirmed
	}
	if state == events.ChainStatePending && status.Confirmations <= int(dep.Confirmations) {
		return domain.IngestPending, nil
	}

	ev := events.NewChainTransfer(
		fmt.Sprintf("poll:%s:%d:%s", dep.ExternalID, status.Confirmations, state),
		p.chain.Name(),
		dep.ExternalID,
		addr.Address,
		dep.Currency,
		repository.Decimal(dep.Amount),
		status.Confirmations,
		state,
	)
	return p.ingest.Ingest(ctx, ev)
}
