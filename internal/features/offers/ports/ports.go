package ports

import (
	"context"

	"freight-auction/internal/features/offers/domain"
)

// OfferLedger defines the primary port for submitting and manually
// rejecting offers.
type OfferLedger interface {
	Submit(ctx context.Context, shipmentID, agentID string, price float64, fees domain.FeeBreakdown) (*domain.Offer, error)
	Get(ctx context.Context, id string) (*domain.Offer, error)
	ListByShipment(ctx context.Context, shipmentID string) ([]*domain.Offer, error)
	Reject(ctx context.Context, id, reason string) (*domain.Offer, error)
}
