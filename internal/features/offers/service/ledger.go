package service

import (
	"context"
	"fmt"

	"freight-auction/internal/core/clock"
	"freight-auction/internal/core/errs"
	"freight-auction/internal/features/offers/domain"
	"freight-auction/internal/storage"
)

var (
	// ErrShipmentNotActive is returned when an offer targets a shipment that
	// already reached a terminal state.
	ErrShipmentNotActive = fmt.Errorf("%w: shipment is not active", errs.ErrInvalidState)
	// ErrOfferWindowExpired is returned when an offer arrives after the
	// shipment's closing deadline.
	ErrOfferWindowExpired = fmt.Errorf("%w: offer window expired", errs.ErrInvalidState)
	// ErrOfferNotPending is returned when rejecting an offer that already
	// reached a terminal state.
	ErrOfferNotPending = fmt.Errorf("%w: offer is not pending", errs.ErrInvalidState)
)

// Ledger implements ports.OfferLedger. It creates offers and handles manual
// rejection; acceptance belongs to the settlement coordinator. The ledger
// never mutates shipments.
type Ledger struct {
	store storage.Store
	clock clock.Clock
}

// NewLedger creates a Ledger.
func NewLedger(store storage.Store, clk clock.Clock) *Ledger {
	return &Ledger{store: store, clock: clk}
}

// Submit validates the shipment is still accepting offers and persists a
// new PENDING offer. An agent may submit more than one offer on the same
// shipment. The store re-checks the shipment status at insert time, so a
// submit racing a terminal transition fails with a conflict instead of
// landing on a settled shipment.
func (l *Ledger) Submit(ctx context.Context, shipmentID, agentID string, price float64, fees domain.FeeBreakdown) (*domain.Offer, error) {
	shipment, err := l.store.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get shipment: %w", err)
	}
	if shipment.Terminal() {
		return nil, fmt.Errorf("submit offer on shipment %s (%s): %w", shipmentID, shipment.Status, ErrShipmentNotActive)
	}
	now := l.clock.Now()
	if !shipment.OfferWindowOpen(now) {
		return nil, fmt.Errorf("submit offer on shipment %s: %w", shipmentID, ErrOfferWindowExpired)
	}

	offer, err := domain.NewOffer(shipmentID, agentID, price, fees, now)
	if err != nil {
		return nil, err
	}
	if err := l.store.CreateOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("service: failed to create offer: %w", err)
	}
	return offer, nil
}

// Get loads an offer by id.
func (l *Ledger) Get(ctx context.Context, id string) (*domain.Offer, error) {
	offer, err := l.store.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get offer: %w", err)
	}
	return offer, nil
}

// ListByShipment returns every offer for a shipment, oldest first.
func (l *Ledger) ListByShipment(ctx context.Context, shipmentID string) ([]*domain.Offer, error) {
	offers, err := l.store.ListOffersByShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list offers: %w", err)
	}
	return offers, nil
}

// Reject transitions a PENDING offer to REJECTED.
func (l *Ledger) Reject(ctx context.Context, id, reason string) (*domain.Offer, error) {
	offer, err := l.store.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get offer: %w", err)
	}
	if !offer.Pending() {
		return nil, fmt.Errorf("reject offer %s (%s): %w", id, offer.Status, ErrOfferNotPending)
	}

	rejected, err := l.store.RejectOffer(ctx, id, reason)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reject offer: %w", err)
	}
	return rejected, nil
}
