package daemon

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/1broseidon/dwindle/internal/ax"
)

// MaintenanceReport summarises one maintenance pass.
type MaintenanceReport struct {
	Sessions   int
	Windows    int
	Workspaces []string
}

// Maintainer drops state that outlived what it describes.
type Maintainer interface {
	Maintain(ctx context.Context) (MaintenanceReport, error)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically garbage collects accessibility sessions of dead
// processes and unused workspaces.
type Reconciler struct {
	interval time.Duration
	registry *ax.Registry
	target   Maintainer
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, registry *ax.Registry, target Maintainer) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Reconciler{
		interval: interval,
		registry: registry,
		target:   target,
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
func (r *Reconciler) reconcile(ctx context.Context) MaintenanceReport {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	var report MaintenanceReport
	if r.registry != nil {
		report.Sessions = r.registry.GarbageCollect()
	}
	if r.target == nil {
		return report
	}

	res, err := r.target.Maintain(ctx)
	if err != nil {
		r.logger.Warn("reconciler: maintenance failed", "error", err)
		return report
	}
	report.Windows = res.Windows
	report.Workspaces = res.Workspaces
	report.Sessions += res.Sessions

	if report.Sessions > 0 || report.Windows > 0 || len(report.Workspaces) > 0 {
		r.logger.Info("reconciler: collected",
			"sessions", report.Sessions,
			"windows", report.Windows,
			"workspaces", report.Workspaces)
	}
	return report
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) MaintenanceReport {
	return r.reconcile(ctx)
}
