package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freight-auction/internal/core/clock"
	"freight-auction/internal/core/errs"
	"freight-auction/internal/core/events"
	"freight-auction/internal/features/shipments/domain"
	"freight-auction/internal/features/shipments/ports"
	"freight-auction/internal/storage"
)

var (
	// ErrShipmentNotActive is returned when a lifecycle operation targets a
	// shipment that already reached a terminal state.
	ErrShipmentNotActive = fmt.Errorf("%w: shipment is not active", errs.ErrInvalidState)
	// ErrEmptyCancellationReason is returned when a cancellation omits the reason.
	ErrEmptyCancellationReason = fmt.Errorf("%w: cancellation reason is required", errs.ErrValidation)
)

// Registry implements ports.ShipmentRegistry on the transactional store.
type Registry struct {
	store          storage.Store
	clock          clock.Clock
	events         events.Sink
	penaltyPercent float64
}

// NewRegistry creates a Registry. penaltyPercent is the cancellation charge
// as a percentage of the shipment value.
func NewRegistry(store storage.Store, clk clock.Clock, sink events.Sink, penaltyPercent float64) *Registry {
	return &Registry{
		store:          store,
		clock:          clk,
		events:         sink,
		penaltyPercent: penaltyPercent,
	}
}

// Create validates the input and persists a new ACTIVE shipment.
func (r *Registry) Create(ctx context.Context, in domain.CreateShipmentInput) (*domain.Shipment, error) {
	shipment, err := domain.NewShipment(in, r.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := r.store.CreateShipment(ctx, shipment); err != nil {
		return nil, fmt.Errorf("service: failed to create shipment: %w", err)
	}
	return shipment, nil
}

// Get loads a shipment by id.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Shipment, error) {
	shipment, err := r.store.GetShipment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get shipment: %w", err)
	}
	return shipment, nil
}

// ExtendDeadline moves the offer deadline (and optionally the shipping date)
// of a still-ACTIVE shipment forward.
func (r *Registry) ExtendDeadline(ctx context.Context, id string, newExpiration time.Time, newShipping *time.Time) (*domain.Shipment, error) {
	shipment, err := r.store.GetShipment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get shipment: %w", err)
	}
	if shipment.Terminal() {
		return nil, fmt.Errorf("extend shipment %s (%s): %w", id, shipment.Status, ErrShipmentNotActive)
	}
	if err := shipment.ValidateExtension(newExpiration, newShipping); err != nil {
		return nil, err
	}

	updated, err := r.store.ExtendShipment(ctx, id, newExpiration, newShipping)
	if err != nil {
		return nil, fmt.Errorf("service: failed to extend shipment: %w", err)
	}
	return updated, nil
}

// Cancel transitions ACTIVE -> CANCELLED. A shipment that already received
// offers costs the owner a penalty, persisted with the cancellation.
func (r *Registry) Cancel(ctx context.Context, id, reason string) (*ports.CancelResult, error) {
	if reason == "" {
		return nil, fmt.Errorf("cancel shipment %s: %w", id, ErrEmptyCancellationReason)
	}

	shipment, err := r.store.GetShipment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get shipment: %w", err)
	}
	if shipment.Terminal() {
		return nil, fmt.Errorf("cancel shipment %s (%s): %w", id, shipment.Status, ErrShipmentNotActive)
	}

	offers, err := r.store.ListOffersByShipment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list offers: %w", err)
	}
	var penalty *domain.Penalty
	if len(offers) > 0 {
		penalty = domain.NewPenalty(shipment, r.penaltyPercent, reason, r.clock.Now())
	}

	cancelled, err := r.store.CancelShipment(ctx, id, reason, penalty)
	if err != nil {
		return nil, fmt.Errorf("service: failed to cancel shipment: %w", err)
	}

	r.events.Dispatch(ctx, events.Envelope{
		Type:       events.TypeShipmentCancelled,
		ShipmentID: cancelled.ID,
		OccurredAt: r.clock.Now(),
		Payload:    cancellationPayload{Shipment: cancelled, Penalty: penalty},
	})

	return &ports.CancelResult{Shipment: cancelled, Penalty: penalty}, nil
}

// MarkExpired transitions ACTIVE -> EXPIRED under the status guard. Safe to
// retry and safe to race against acceptance: losing the guard to another
// terminal transition surfaces as a conflict, and an already-expired
// shipment is a no-op.
func (r *Registry) MarkExpired(ctx context.Context, id string) error {
	expired, err := r.store.ExpireShipment(ctx, id)
	if errors.Is(err, errs.ErrConflict) {
		current, getErr := r.store.GetShipment(ctx, id)
		if getErr == nil && current.Status == domain.ShipmentStatusExpired {
			return nil
		}
		return fmt.Errorf("service: failed to expire shipment: %w", err)
	}
	if err != nil {
		return fmt.Errorf("service: failed to expire shipment: %w", err)
	}

	r.events.Dispatch(ctx, events.Envelope{
		Type:       events.TypeShipmentExpired,
		ShipmentID: expired.ID,
		OccurredAt: r.clock.Now(),
		Payload:    expirationPayload{Shipment: expired},
	})
	return nil
}

// cancellationPayload is the event body for shipment.cancelled.
type cancellationPayload struct {
	Shipment *domain.Shipment `json:"shipment"`
	Penalty  *domain.Penalty  `json:"penalty,omitempty"`
}

// expirationPayload is the event body for shipment.expired.
type expirationPayload struct {
	Shipment *domain.Shipment `json:"shipment"`
}
