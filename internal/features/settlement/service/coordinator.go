package service

import (
	"context"
	"fmt"

	"freight-auction/internal/core/clock"
	"freight-auction/internal/core/errs"
	"freight-auction/internal/core/events"
	offerdomain "freight-auction/internal/features/offers/domain"
	"freight-auction/internal/features/settlement/ports"
	shipdomain "freight-auction/internal/features/shipments/domain"
	"freight-auction/internal/storage"
)

var (
	// ErrShipmentClosed is returned when accepting on an already-settled shipment.
	ErrShipmentClosed = fmt.Errorf("%w: shipment already closed", errs.ErrInvalidState)
	// ErrShipmentCancelled is returned when accepting on a cancelled shipment.
	ErrShipmentCancelled = fmt.Errorf("%w: shipment cancelled", errs.ErrInvalidState)
	// ErrShipmentExpired is returned when accepting on an expired shipment.
	ErrShipmentExpired = fmt.Errorf("%w: shipment expired", errs.ErrInvalidState)
	// ErrOfferNotPending is returned when the chosen offer does not belong
	// to the shipment or already reached a terminal state.
	ErrOfferNotPending = fmt.Errorf("%w: offer is not pending", errs.ErrInvalidState)
)

// Coordinator implements ports.SettlementCoordinator. Acceptance is one
// guarded store transaction: accept the offer, reject pending siblings,
// close the shipment. Two concurrent accepts, or an accept racing the
// deadline sweep, serialize through the shipment status guard: exactly one
// wins, every other contender fails with a conflict error.
type Coordinator struct {
	store  storage.Store
	clock  clock.Clock
	events events.Sink
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store storage.Store, clk clock.Clock, sink events.Sink) *Coordinator {
	return &Coordinator{store: store, clock: clk, events: sink}
}

// AcceptOffer settles the auction on the given offer. Events go out only
// after the transaction committed, fire-and-forget.
func (c *Coordinator) AcceptOffer(ctx context.Context, shipmentID, offerID string) (*ports.SettlementResult, error) {
	shipment, err := c.store.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get shipment: %w", err)
	}
	switch shipment.Status {
	case shipdomain.ShipmentStatusActive:
	case shipdomain.ShipmentStatusClosed:
		return nil, fmt.Errorf("accept offer on shipment %s: %w", shipmentID, ErrShipmentClosed)
	case shipdomain.ShipmentStatusCancelled:
		return nil, fmt.Errorf("accept offer on shipment %s: %w", shipmentID, ErrShipmentCancelled)
	default:
		return nil, fmt.Errorf("accept offer on shipment %s: %w", shipmentID, ErrShipmentExpired)
	}

	offer, err := c.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get offer: %w", err)
	}
	if offer.ShipmentID != shipmentID || !offer.Pending() {
		return nil, fmt.Errorf("accept offer %s on shipment %s: %w", offerID, shipmentID, ErrOfferNotPending)
	}

	// The preconditions above are only advisory reads: the settle itself
	// re-checks them under the status guard, so losing a race past this
	// point surfaces as a conflict, not corruption.
	settled, err := c.store.SettleShipment(ctx, shipmentID, offerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to settle shipment: %w", err)
	}

	c.events.Dispatch(ctx, events.Envelope{
		Type:       events.TypeSettlementAccepted,
		ShipmentID: settled.Shipment.ID,
		OccurredAt: c.clock.Now(),
		Payload: settlementPayload{
			Shipment:    settled.Shipment,
			Accepted:    settled.Accepted,
			RejectedIDs: settled.RejectedIDs,
		},
	})

	return &ports.SettlementResult{
		Shipment:    settled.Shipment,
		Accepted:    settled.Accepted,
		RejectedIDs: settled.RejectedIDs,
	}, nil
}

// settlementPayload is the event body for settlement.accepted.
type settlementPayload struct {
	Shipment    *shipdomain.Shipment `json:"shipment"`
	Accepted    *offerdomain.Offer   `json:"accepted_offer"`
	RejectedIDs []string             `json:"rejected_offer_ids,omitempty"`
}
