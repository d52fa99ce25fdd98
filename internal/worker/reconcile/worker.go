package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/redis/rueidis"
	"github.com/rolewarden/rolewarden/internal/setup/config"
	"github.com/rolewarden/rolewarden/internal/worker/core"
	"go.uber.org/zap"
)

// Worker drives the reconciliation engine on a fixed interval. Ticks never
// overlap: the next tick is scheduled only after the previous one finishes.
type Worker struct {
	engine   *Engine
	reporter *core.StatusReporter
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	lastTick time.Time
}

// NewWorker creates the reconciliation worker.
func NewWorker(
	engine *Engine,
	statusClient rueidis.Client,
	cfg *config.Reconcile,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		engine:   engine,
		reporter: core.NewStatusReporter(statusClient, "reconcile", logger),
		interval: time.Duration(cfg.IntervalSeconds) * time.Second,
		logger:   logger.Named("reconcile_worker"),
	}
}

// Start runs the tick loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Reconciliation worker started",
		zap.String("workerID", w.reporter.GetWorkerID()),
		zap.Duration("interval", w.interval))

	w.reporter.Start(ctx)
	defer w.reporter.Stop()

	for {
		w.reporter.UpdateStatus("Running tick")

		if err := w.engine.RunTick(ctx); err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Reconciliation worker stopped")
				return
			}

			w.logger.Error("Tick failed", zap.Error(err))
			w.reporter.SetHealthy(false)
		} else {
			w.reporter.SetHealthy(true)
		}

		w.mu.Lock()
		w.lastTick = time.Now()
		w.mu.Unlock()

		w.reporter.UpdateStatus("Waiting for next tick")

		select {
		case <-time.After(w.interval):
		case <-ctx.Done():
			w.logger.Info("Reconciliation worker stopped")
			return
		}
	}
}

// Engine returns the underlying engine for command-initiated operations.
func (w *Worker) Engine() *Engine {
	return w.engine
}

// LastTick returns when the most recent tick completed.
func (w *Worker) LastTick() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.lastTick
}
