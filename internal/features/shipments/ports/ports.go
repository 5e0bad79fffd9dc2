package ports

import (
	"context"
	"time"

	"freight-auction/internal/features/shipments/domain"
)

// CancelResult carries the cancelled shipment and the penalty applied, when
// the shipment already had offers.
type CancelResult struct {
	Shipment *domain.Shipment
	Penalty  *domain.Penalty
}

// ShipmentRegistry defines the primary port for the shipment lifecycle:
// creation, deadline extension, cancellation and expiration.
type ShipmentRegistry interface {
	Create(ctx context.Context, in domain.CreateShipmentInput) (*domain.Shipment, error)
	Get(ctx context.Context, id string) (*domain.Shipment, error)
	ExtendDeadline(ctx context.Context, id string, newExpiration time.Time, newShipping *time.Time) (*domain.Shipment, error)
	Cancel(ctx context.Context, id, reason string) (*CancelResult, error)
	// MarkExpired transitions an overdue shipment to EXPIRED. Idempotent:
	// an already-expired shipment is not an error.
	MarkExpired(ctx context.Context, id string) error
}
