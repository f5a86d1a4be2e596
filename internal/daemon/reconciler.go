package daemon

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes windows whose client is gone.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically sweeps windows left behind by clients whose
// death notification was lost.
type Reconciler struct {
	interval time.Duration
	sweeper  Sweeper
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, sweeper Sweeper) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		sweeper:  sweeper,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) (removed int) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	metricSweeps.Inc()
	removed = r.sweeper.Sweep(ctx)
	if removed > 0 {
		metricSwept.Add(float64(removed))
		r.logger.Info("reconciler: removed orphaned windows", "count", removed)
	}
	return removed
}

// ReconcileNow triggers an immediate reconciliation pass and returns the
// number of windows removed.
func (r *Reconciler) ReconcileNow(ctx context.Context) int {
	return r.reconcile(ctx)
}
