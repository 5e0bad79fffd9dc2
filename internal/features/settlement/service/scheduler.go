package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freight-auction/internal/core/clock"
	"freight-auction/internal/core/errs"
	"freight-auction/internal/core/logger"
	shipports "freight-auction/internal/features/shipments/ports"
	"freight-auction/internal/storage"

	"go.uber.org/zap"
)

// DeadlineScheduler periodically expires ACTIVE shipments whose deadline
// passed without an acceptance. It shares the shipment status guard with
// the coordinator, so a shipment settled a moment before the sweep is
// simply skipped.
type DeadlineScheduler struct {
	store    storage.Store
	registry shipports.ShipmentRegistry
	clock    clock.Clock
	interval time.Duration
}

// NewDeadlineScheduler creates a scheduler sweeping at the given interval.
func NewDeadlineScheduler(store storage.Store, registry shipports.ShipmentRegistry, clk clock.Clock, interval time.Duration) *DeadlineScheduler {
	return &DeadlineScheduler{
		store:    store,
		registry: registry,
		clock:    clk,
		interval: interval,
	}
}

// Tick runs one sweep and returns how many shipments it expired. Losing the
// guard to a concurrent acceptance is expected and not an error.
func (d *DeadlineScheduler) Tick(ctx context.Context, now time.Time) (int, error) {
	ids, err := d.store.ListExpirable(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("scheduler: failed to list expirable shipments: %w", err)
	}

	expired := 0
	for _, id := range ids {
		err := d.registry.MarkExpired(ctx, id)
		if errors.Is(err, errs.ErrConflict) {
			logger.Get().Debug("Skipping shipment settled during sweep", zap.String("shipment_id", id))
			continue
		}
		if err != nil {
			logger.Get().Error("Failed to expire shipment", zap.String("shipment_id", id), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// Run drives Tick on the configured interval until the context is done.
func (d *DeadlineScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	logger.Get().Info("Deadline scheduler started", zap.Duration("interval", d.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Get().Info("Deadline scheduler stopped")
			return
		case <-ticker.C:
			if n, err := d.Tick(ctx, d.clock.Now()); err != nil {
				logger.Get().Error("Deadline sweep failed", zap.Error(err))
			} else if n > 0 {
				logger.Get().Info("Deadline sweep expired shipments", zap.Int("count", n))
			}
		}
	}
}
