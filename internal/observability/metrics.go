package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	transferCounter       *prometheus.CounterVec
	ingestionCounter      *prometheus.CounterVec
	ledgerDriftCounter    *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	failedQueueGauge      prometheus.Gauge
	resolutionCounter     *prometheus.CounterVec
	claimUnlockCounter    *prometheus.CounterVec
	rateCacheCounter      *prometheus.CounterVec
	rateLimiterErrCounter prometheus.Counter
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transferCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "Transfers by kind and final status",
		}, []string{"kind", "status"})

		ingestionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_ingested_events_total",
			Help: "External events by source and ingestion outcome",
		}, []string{"source", "outcome"})

		ledgerDriftCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_ledger_drift_total",
			Help: "Balances that disagreed with their mutation log",
		}, []string{"currency"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		failedQueueGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_failed_transfer_queue_size",
			Help: "Failed transfers waiting for manual resolution",
		})

		resolutionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_failed_transfer_resolutions_total",
			Help: "Manual resolutions of failed transfers",
		}, []string{"decision"})

		claimUnlockCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_claim_unlocks_total",
			Help: "Claim unlock attempts by result",
		}, []string{"result"})

		rateCacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_rate_cache_lookups_total",
			Help: "Exchange rate lookups by cache result",
		}, []string{"result"})

		rateLimiterErrCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_rate_limiter_store_errors_total",
			Help: "Rate limiter backend errors",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			transferCounter,
			ingestionCounter,
			ledgerDriftCounter,
			idempotencyCounter,
			failedQueueGauge,
			resolutionCounter,
			claimUnlockCounter,
			rateCacheCounter,
			rateLimiterErrCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransfer(kind, status string) {
	if transferCounter == nil {
		return
	}
	transferCounter.WithLabelValues(kind, status).Inc()
}

func IncrementIngestion(source, outcome string) {
	if ingestionCounter == nil {
		return
	}
	ingestionCounter.WithLabelValues(source, outcome).Inc()
}

func IncrementLedgerDrift(currency string) {
	if ledgerDriftCounter == nil {
		return
	}
	ledgerDriftCounter.WithLabelValues(currency).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetFailedTransferQueueSize(size int64) {
	if failedQueueGauge == nil {
		return
	}
	failedQueueGauge.Set(float64(size))
}

func IncrementResolution(decision string) {
	if resolutionCounter == nil {
		return
	}
	resolutionCounter.WithLabelValues(decision).Inc()
}

func IncrementClaimUnlock(result string) {
	if claimUnlockCounter == nil {
		return
	}
	claimUnlockCounter.WithLabelValues(result).Inc()
}

func IncrementRateCache(result string) {
	if rateCacheCounter == nil {
		return
	}
	rateCacheCounter.WithLabelValues(result).Inc()
}

func IncrementRateLimiterError() {
	if rateLimiterErrCounter == nil {
		return
	}
	rateLimiterErrCounter.Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
