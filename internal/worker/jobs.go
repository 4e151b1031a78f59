package worker

import (
	"context"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/idempotency"
	"github.com/ayo6706/multicurrency-wallet/internal/service"
	"go.uber.org/zap"
)

const claimSweepBatch = 100

// NewClaimExpiryWorker cancels expired, unredeemed claim links. Their
// transfers move to the manual review queue.
func NewClaimExpiryWorker(claims *service.ClaimService, interval time.Duration) *Periodic {
	return NewPeriodic("claim_expiry", interval, func(ctx context.Context) error {
		for {
			n, err := claims.SweepExpired(ctx, claimSweepBatch)
			if err != nil {
				return err
			}
			if n < claimSweepBatch {
				return nil
			}
		}
	})
}

// NewDepositPollWorker re-checks pending chain deposits against the network.
func NewDepositPollWorker(poller *service.DepositPoller, interval time.Duration) *Periodic {
	return NewPeriodic("deposit_poll", interval, func(ctx context.Context) error {
		credited, err := poller.PollOnce(ctx)
		if credited > 0 {
			zap.L().Info("deposit poll credited deposits", zap.Int("credited", credited))
		}
		return err
	})
}

// NewReconciliationWorker verifies ledger integrity; it runs once at startup.
func NewReconciliationWorker(svc *service.ReconciliationService, interval time.Duration) *Periodic {
	return NewPeriodic("reconciliation", interval, func(ctx context.Context) error {
		report, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		if !report.Healthy() {
			zap.L().Error("CRITICAL: reconciliation found ledger inconsistencies",
				zap.Int("drifted_balances", len(report.DriftedBalances)),
				zap.Int64("negative_balances", report.NegativeBalances),
			)
		}
		return nil
	}).RunImmediately()
}

// NewIdempotencyPurgeWorker deletes idempotency keys past their retention window.
func NewIdempotencyPurgeWorker(store *idempotency.Store, interval time.Duration) *Periodic {
	return NewPeriodic("idempotency_purge", interval, func(ctx context.Context) error {
		n, err := store.Purge(ctx)
		if n > 0 {
			zap.L().Info("purged idempotency keys", zap.Int64("count", n))
		}
		return err
	})
}
