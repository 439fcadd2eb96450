package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/neoosi/neoosi-core/internal/core/ports/driving"
)

// DefaultReloadInterval is how often API instances look for an index
// artifact saved by a worker.
const DefaultReloadInterval = 30 * time.Second

// Reloader polls the persisted index and swaps in artifacts that another
// instance rebuilt. API instances run it when rebuilds happen elsewhere.
type Reloader struct {
	index    driving.IndexService
	interval time.Duration
	logger   *slog.Logger
}

// NewReloader creates a reloader. A non-positive interval uses
// DefaultReloadInterval.
func NewReloader(index driving.IndexService, interval time.Duration, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	return &Reloader{index: index, interval: interval, logger: logger}
}

// Run checks the artifact every interval until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("index reloader started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("index reloader stopped")
			return
		case <-ticker.C:
			r.check(ctx)
		}
	}
}

func (r *Reloader) check(ctx context.Context) {
	changed, err := r.index.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("index reload failed, keeping live index", "error", err)
		}
		return
	}
	if changed {
		status := r.index.Status()
		r.logger.Info("reloaded index rebuilt by another instance",
			"documents", status.Documents,
			"chunks", status.Chunks)
	}
}
