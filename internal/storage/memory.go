package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"freight-auction/internal/core/errs"
	offerdomain "freight-auction/internal/features/offers/domain"
	shipdomain "freight-auction/internal/features/shipments/domain"
)

// MemoryStore is a mutex-guarded in-memory Store, used in tests and local
// development. Every guarded transition runs under the write lock, so the
// expected-status checks serialize exactly like the Redis/Postgres CAS.
type MemoryStore struct {
	mu        sync.RWMutex
	shipments map[string]*shipdomain.Shipment
	offers    map[string]*offerdomain.Offer
	penalties map[string]*shipdomain.Penalty // keyed by shipment id
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shipments: make(map[string]*shipdomain.Shipment),
		offers:    make(map[string]*offerdomain.Offer),
		penalties: make(map[string]*shipdomain.Penalty),
	}
}

// CreateShipment persists a copy of the shipment.
func (s *MemoryStore) CreateShipment(ctx context.Context, shipment *shipdomain.Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shipments[shipment.ID]; ok {
		return errs.Conflictf("shipment %s already exists", shipment.ID)
	}
	s.shipments[shipment.ID] = copyShipment(shipment)
	return nil
}

// GetShipment loads a shipment by id.
func (s *MemoryStore) GetShipment(ctx context.Context, id string) (*shipdomain.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shipmentLocked(id)
}

// ExtendShipment updates the dates of a still-ACTIVE shipment.
func (s *MemoryStore) ExtendShipment(ctx context.Context, id string, newExpiration time.Time, newShipping *time.Time) (*shipdomain.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.shipments[id]
	if !ok {
		return nil, errs.NotFoundf("shipment %s", id)
	}
	if row.Status != shipdomain.ShipmentStatusActive {
		return nil, errs.Conflictf("shipment %s is %s, expected %s", id, row.Status, shipdomain.ShipmentStatusActive)
	}
	row.ExpirationDate = newExpiration.UTC()
	if newShipping != nil {
		u := newShipping.UTC()
		row.ShippingDate = &u
	}
	row.Version++
	return copyShipment(row), nil
}

// CancelShipment transitions ACTIVE -> CANCELLED and records the penalty.
func (s *MemoryStore) CancelShipment(ctx context.Context, id, reason string, penalty *shipdomain.Penalty) (*shipdomain.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.shipments[id]
	if !ok {
		return nil, errs.NotFoundf("shipment %s", id)
	}
	if row.Status != shipdomain.ShipmentStatusActive {
		return nil, errs.Conflictf("shipment %s is %s, expected %s", id, row.Status, shipdomain.ShipmentStatusActive)
	}
	row.Status = shipdomain.ShipmentStatusCancelled
	row.CancellationReason = reason
	row.Version++
	if penalty != nil {
		s.penalties[id] = copyPenalty(penalty)
	}
	return copyShipment(row), nil
}

// ExpireShipment transitions ACTIVE -> EXPIRED.
func (s *MemoryStore) ExpireShipment(ctx context.Context, id string) (*shipdomain.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.shipments[id]
	if !ok {
		return nil, errs.NotFoundf("shipment %s", id)
	}
	if row.Status != shipdomain.ShipmentStatusActive {
		return nil, errs.Conflictf("shipment %s is %s, expected %s", id, row.Status, shipdomain.ShipmentStatusActive)
	}
	row.Status = shipdomain.ShipmentStatusExpired
	row.Version++
	return copyShipment(row), nil
}

// SettleShipment atomically accepts one offer and closes the shipment.
func (s *MemoryStore) SettleShipment(ctx context.Context, shipmentID, offerID string) (*Settlement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.shipments[shipmentID]
	if !ok {
		return nil, errs.NotFoundf("shipment %s", shipmentID)
	}
	offer, ok := s.offers[offerID]
	if !ok || offer.ShipmentID != shipmentID {
		return nil, errs.NotFoundf("offer %s for shipment %s", offerID, shipmentID)
	}
	if row.Status != shipdomain.ShipmentStatusActive {
		return nil, errs.Conflictf("shipment %s is %s, expected %s", shipmentID, row.Status, shipdomain.ShipmentStatusActive)
	}
	if offer.Status != offerdomain.OfferStatusPending {
		return nil, errs.Conflictf("offer %s is %s, expected %s", offerID, offer.Status, offerdomain.OfferStatusPending)
	}

	offer.Status = offerdomain.OfferStatusAccepted

	var rejected []string
	for _, sibling := range s.offers {
		if sibling.ShipmentID == shipmentID && sibling.ID != offerID && sibling.Status == offerdomain.OfferStatusPending {
			sibling.Status = offerdomain.OfferStatusRejected
			rejected = append(rejected, sibling.ID)
		}
	}
	sort.Strings(rejected)

	row.Status = shipdomain.ShipmentStatusClosed
	acceptedID := offer.ID
	row.AcceptedOfferID = &acceptedID
	row.Version++

	return &Settlement{
		Shipment:    copyShipment(row),
		Accepted:    copyOffer(offer),
		RejectedIDs: rejected,
	}, nil
}

// ListExpirable returns ids of overdue ACTIVE shipments.
func (s *MemoryStore) ListExpirable(ctx context.Context, now time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, row := range s.shipments {
		if row.Status == shipdomain.ShipmentStatusActive && row.AcceptedOfferID == nil && row.ExpirationDate.Before(now) {
			ids = append(ids, row.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateOffer persists a copy of the offer. The shipment must still be
// ACTIVE at insertion time: the check runs under the same lock as the
// terminal transitions, so an offer can never land on a settled shipment.
func (s *MemoryStore) CreateOffer(ctx context.Context, offer *offerdomain.Offer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[offer.ID]; ok {
		return errs.Conflictf("offer %s already exists", offer.ID)
	}
	row, ok := s.shipments[offer.ShipmentID]
	if !ok {
		return errs.NotFoundf("shipment %s", offer.ShipmentID)
	}
	if row.Status != shipdomain.ShipmentStatusActive {
		return errs.Conflictf("shipment %s is %s, expected %s", offer.ShipmentID, row.Status, shipdomain.ShipmentStatusActive)
	}
	s.offers[offer.ID] = copyOffer(offer)
	return nil
}

// GetOffer loads an offer by id.
func (s *MemoryStore) GetOffer(ctx context.Context, id string) (*offerdomain.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	offer, ok := s.offers[id]
	if !ok {
		return nil, errs.NotFoundf("offer %s", id)
	}
	return copyOffer(offer), nil
}

// ListOffersByShipment returns every offer for a shipment, oldest first.
func (s *MemoryStore) ListOffersByShipment(ctx context.Context, shipmentID string) ([]*offerdomain.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var offers []*offerdomain.Offer
	for _, offer := range s.offers {
		if offer.ShipmentID == shipmentID {
			offers = append(offers, copyOffer(offer))
		}
	}
	sortOffers(offers)
	return offers, nil
}

// RejectOffer transitions PENDING -> REJECTED.
func (s *MemoryStore) RejectOffer(ctx context.Context, id, reason string) (*offerdomain.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[id]
	if !ok {
		return nil, errs.NotFoundf("offer %s", id)
	}
	if offer.Status != offerdomain.OfferStatusPending {
		return nil, errs.Conflictf("offer %s is %s, expected %s", id, offer.Status, offerdomain.OfferStatusPending)
	}
	offer.Status = offerdomain.OfferStatusRejected
	offer.RejectionReason = reason
	return copyOffer(offer), nil
}

// GetPenalty loads the cancellation penalty for a shipment.
func (s *MemoryStore) GetPenalty(ctx context.Context, shipmentID string) (*shipdomain.Penalty, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	penalty, ok := s.penalties[shipmentID]
	if !ok {
		return nil, errs.NotFoundf("penalty for shipment %s", shipmentID)
	}
	return copyPenalty(penalty), nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) shipmentLocked(id string) (*shipdomain.Shipment, error) {
	row, ok := s.shipments[id]
	if !ok {
		return nil, errs.NotFoundf("shipment %s", id)
	}
	return copyShipment(row), nil
}

func copyShipment(s *shipdomain.Shipment) *shipdomain.Shipment {
	c := *s
	if s.AcceptedOfferID != nil {
		id := *s.AcceptedOfferID
		c.AcceptedOfferID = &id
	}
	if s.ShippingDate != nil {
		d := *s.ShippingDate
		c.ShippingDate = &d
	}
	return &c
}

func copyOffer(o *offerdomain.Offer) *offerdomain.Offer {
	c := *o
	return &c
}

func copyPenalty(p *shipdomain.Penalty) *shipdomain.Penalty {
	c := *p
	return &c
}
