// Package worker runs the wallet's background jobs on fixed intervals.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/observability"
	"go.uber.org/zap"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

// Periodic runs a Job every interval until stopped. Several replicas may run
// the same job; each job is safe under concurrency through row locks.
type Periodic struct {
	name      string
	job       Job
	interval  time.Duration
	immediate bool
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

func NewPeriodic(name string, interval time.Duration, job Job) *Periodic {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Periodic{
		name:     name,
		job:      job,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// RunImmediately makes the first run happen at start instead of after one interval.
func (w *Periodic) RunImmediately() *Periodic {
	w.immediate = true
	return w
}

func (w *Periodic) Name() string {
	return w.name
}

// Start blocks and runs the job at the configured interval.
func (w *Periodic) Start(ctx context.Context) {
	defer close(w.done)
	zap.L().Info("worker starting", zap.String("worker", w.name), zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if w.immediate {
		w.RunOnce(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("worker context canceled", zap.String("worker", w.name))
			return
		case <-w.stopCh:
			zap.L().Info("worker stop signal received", zap.String("worker", w.name))
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes the job a single time and records the outcome.
func (w *Periodic) RunOnce(ctx context.Context) {
	start := time.Now()
	if err := w.job(ctx); err != nil {
		observability.IncrementWorkerRun(w.name, "failed")
		zap.L().Error("worker run failed", zap.String("worker", w.name), zap.Error(err))
		return
	}
	observability.IncrementWorkerRun(w.name, "success")
	zap.L().Debug("worker run finished", zap.String("worker", w.name), zap.Duration("duration", time.Since(start)))
}

// Stop ends the loop and waits for an in-flight run to finish.
func (w *Periodic) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.done
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *Periodic) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}
