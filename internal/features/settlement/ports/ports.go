package ports

import (
	"context"

	offerdomain "freight-auction/internal/features/offers/domain"
	shipdomain "freight-auction/internal/features/shipments/domain"
)

// SettlementResult is the outcome of an accepted offer: the closed shipment,
// the winning offer and the siblings rejected alongside it.
type SettlementResult struct {
	Shipment    *shipdomain.Shipment `json:"shipment"`
	Accepted    *offerdomain.Offer   `json:"accepted"`
	RejectedIDs []string             `json:"rejected_offer_ids"`
}

// SettlementCoordinator defines the primary port for the atomic
// accept-one-offer transaction.
type SettlementCoordinator interface {
	AcceptOffer(ctx context.Context, shipmentID, offerID string) (*SettlementResult, error)
}
