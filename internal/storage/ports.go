package storage

import (
	"context"
	"sort"
	"time"

	offerdomain "freight-auction/internal/features/offers/domain"
	shipdomain "freight-auction/internal/features/shipments/domain"
)

// Settlement is the committed result of an atomic offer acceptance.
type Settlement struct {
	// Shipment is the CLOSED shipment pointing at the accepted offer.
	Shipment *shipdomain.Shipment
	// Accepted is the winning offer.
	Accepted *offerdomain.Offer
	// RejectedIDs are the sibling offers rejected in the same transaction.
	RejectedIDs []string
}

// Store is the transactional persistence port for shipments, offers and
// penalties. Every terminal transition is guarded by an expected-previous-
// status check: when the row moved concurrently the operation fails with a
// conflict error instead of overwriting state.
type Store interface {
	// CreateShipment persists a new shipment row.
	CreateShipment(ctx context.Context, shipment *shipdomain.Shipment) error

	// GetShipment loads a shipment by id, failing with a not-found error
	// when the id is unknown.
	GetShipment(ctx context.Context, id string) (*shipdomain.Shipment, error)

	// ExtendShipment updates the deadline (and optionally the shipping
	// date) of a shipment that is still ACTIVE. Fails with a conflict
	// error when the shipment left ACTIVE concurrently.
	ExtendShipment(ctx context.Context, id string, newExpiration time.Time, newShipping *time.Time) (*shipdomain.Shipment, error)

	// CancelShipment transitions ACTIVE -> CANCELLED, recording the reason
	// and persisting the penalty (when non-nil) in the same transaction.
	CancelShipment(ctx context.Context, id, reason string, penalty *shipdomain.Penalty) (*shipdomain.Shipment, error)

	// ExpireShipment transitions ACTIVE -> EXPIRED. Fails with a conflict
	// error when the shipment is no longer ACTIVE, which makes the
	// deadline sweep safe to race against acceptance.
	ExpireShipment(ctx context.Context, id string) (*shipdomain.Shipment, error)

	// SettleShipment atomically accepts one offer, rejects every other
	// PENDING sibling, and transitions the shipment ACTIVE -> CLOSED with
	// accepted_offer_id set. All-or-nothing: a concurrent terminal
	// transition or a concurrently rejected offer fails the whole
	// operation with a conflict error and leaves no partial state.
	SettleShipment(ctx context.Context, shipmentID, offerID string) (*Settlement, error)

	// ListExpirable returns ids of ACTIVE shipments whose deadline passed
	// with no accepted offer.
	ListExpirable(ctx context.Context, now time.Time) ([]string, error)

	// CreateOffer persists a new offer row.
	CreateOffer(ctx context.Context, offer *offerdomain.Offer) error

	// GetOffer loads an offer by id.
	GetOffer(ctx context.Context, id string) (*offerdomain.Offer, error)

	// ListOffersByShipment returns every offer submitted against a shipment.
	ListOffersByShipment(ctx context.Context, shipmentID string) ([]*offerdomain.Offer, error)

	// RejectOffer transitions PENDING -> REJECTED with a reason. Fails with
	// a conflict error when the offer left PENDING concurrently.
	RejectOffer(ctx context.Context, id, reason string) (*offerdomain.Offer, error)

	// GetPenalty loads the penalty recorded for a cancelled shipment, or a
	// not-found error when none exists.
	GetPenalty(ctx context.Context, shipmentID string) (*shipdomain.Penalty, error)

	// Ping checks the backing service is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// sortOffers orders offers oldest first, with ids breaking ties so listings
// are stable across backends.
func sortOffers(offers []*offerdomain.Offer) {
	sort.Slice(offers, func(i, j int) bool {
		if offers[i].InsertedAt.Equal(offers[j].InsertedAt) {
			return offers[i].ID < offers[j].ID
		}
		return offers[i].InsertedAt.Before(offers[j].InsertedAt)
	})
}
