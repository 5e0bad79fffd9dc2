package domain

import (
	"time"

	"freight-auction/internal/core/errs"

	"github.com/google/uuid"
)

// ShipmentStatus represents the current state of a shipment auction.
type ShipmentStatus string

const (
	// ShipmentStatusActive indicates the auction is open for offers.
	ShipmentStatusActive ShipmentStatus = "ACTIVE"
	// ShipmentStatusClosed indicates an offer was accepted and the auction settled.
	ShipmentStatusClosed ShipmentStatus = "CLOSED"
	// ShipmentStatusCancelled indicates the owner withdrew the shipment.
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
	// ShipmentStatusExpired indicates the closing deadline passed with no acceptance.
	ShipmentStatusExpired ShipmentStatus = "EXPIRED"
)

// ShippingType represents the transport mode of a shipment.
type ShippingType string

const (
	ShippingTypeMaritime ShippingType = "MARITIME"
	ShippingTypeAir      ShippingType = "AIR"
	ShippingTypeLand     ShippingType = "LAND"
)

// ComexType represents the foreign-trade direction of a shipment.
type ComexType string

const (
	ComexTypeImport ComexType = "IMPORT"
	ComexTypeExport ComexType = "EXPORT"
)

// MinShippingLead is the minimum gap between the offer deadline and the
// shipping date: the winning agent needs at least one day to arrange pickup.
const MinShippingLead = 24 * time.Hour

// Merchandise describes the cargo being auctioned.
type Merchandise struct {
	// Description is a free-form summary of the cargo.
	Description string `json:"description"`
	// WeightKg is the gross weight in kilograms.
	WeightKg float64 `json:"weight_kg"`
	// VolumeM3 is the volume in cubic meters.
	VolumeM3 float64 `json:"volume_m3"`
	// Dangerous marks cargo subject to hazardous-goods handling.
	Dangerous bool `json:"dangerous"`
}

// Shipment represents an owner's freight-transport request, open for
// competitive offers until it reaches a terminal state.
type Shipment struct {
	// ID is the unique identifier for the shipment.
	ID string `json:"shipment_id"`
	// MarketID scopes which owners and agents may interact with this shipment.
	MarketID string `json:"market_id"`
	// OwnerID identifies the importer/exporter who posted the request.
	OwnerID string `json:"owner_id"`
	// ShippingType is the transport mode (MARITIME, AIR, LAND).
	ShippingType ShippingType `json:"shipping_type"`
	// Origin is a reference to the departure location.
	Origin string `json:"origin"`
	// Destination is a reference to the arrival location.
	Destination string `json:"destination"`
	// ComexType is the trade direction (IMPORT, EXPORT).
	ComexType ComexType `json:"comex_type"`
	// Merchandise describes the cargo.
	Merchandise Merchandise `json:"merchandise"`
	// Value is the declared cargo value, in Currency units.
	Value float64 `json:"value"`
	// Currency is the ISO-4217 code for Value and offer prices.
	Currency string `json:"currency"`
	// Status is the current auction state.
	Status ShipmentStatus `json:"status"`
	// AcceptedOfferID is set exactly when Status is CLOSED.
	AcceptedOfferID *string `json:"accepted_offer_id,omitempty"`
	// CancellationReason is set exactly when Status is CANCELLED.
	CancellationReason string `json:"cancellation_reason,omitempty"`
	// ExpirationDate is the deadline for receiving and accepting offers.
	ExpirationDate time.Time `json:"expiration_date"`
	// ShippingDate is the planned departure, at least one day after the deadline.
	ShippingDate *time.Time `json:"shipping_date,omitempty"`
	// InsertedAt is the creation timestamp.
	InsertedAt time.Time `json:"inserted_at"`
	// Version increments on every write, backing the optimistic guard.
	Version int64 `json:"version"`
}

// Penalty is the charge applied when an owner cancels a shipment that
// already received offers.
type Penalty struct {
	// ID is the unique identifier for the penalty record.
	ID string `json:"penalty_id"`
	// ShipmentID is the cancelled shipment this penalty belongs to.
	ShipmentID string `json:"shipment_id"`
	// Amount is the charge, in the shipment's currency.
	Amount float64 `json:"amount"`
	// Reason is the owner-provided cancellation reason.
	Reason string `json:"reason"`
	// CreatedAt is the timestamp of the cancellation.
	CreatedAt time.Time `json:"created_at"`
}

// CreateShipmentInput carries the owner-provided fields for a new shipment.
type CreateShipmentInput struct {
	MarketID       string       `json:"market_id"`
	OwnerID        string       `json:"owner_id"`
	ShippingType   ShippingType `json:"shipping_type"`
	Origin         string       `json:"origin"`
	Destination    string       `json:"destination"`
	ComexType      ComexType    `json:"comex_type"`
	Merchandise    Merchandise  `json:"merchandise"`
	Value          float64      `json:"value"`
	Currency       string       `json:"currency"`
	ExpirationDate time.Time    `json:"expiration_date"`
	ShippingDate   *time.Time   `json:"shipping_date,omitempty"`
}

// NewShipment validates the input and builds an ACTIVE shipment.
func NewShipment(in CreateShipmentInput, now time.Time) (*Shipment, error) {
	for field, value := range map[string]string{
		"market_id":   in.MarketID,
		"owner_id":    in.OwnerID,
		"origin":      in.Origin,
		"destination": in.Destination,
		"currency":    in.Currency,
	} {
		if value == "" {
			return nil, errs.Validationf("missing required field %s", field)
		}
	}

	if !validShippingType(in.ShippingType) {
		return nil, errs.Validationf("invalid shipping_type %q", in.ShippingType)
	}
	if in.ComexType != ComexTypeImport && in.ComexType != ComexTypeExport {
		return nil, errs.Validationf("invalid comex_type %q", in.ComexType)
	}
	if in.Value <= 0 {
		return nil, errs.Validationf("value must be positive, got %v", in.Value)
	}
	if !in.ExpirationDate.After(now) {
		return nil, errs.Validationf("expiration_date must be in the future")
	}
	if in.ShippingType == ShippingTypeMaritime && in.ShippingDate == nil {
		return nil, errs.Validationf("maritime shipments require a shipping_date")
	}
	if err := ValidateSchedule(in.ExpirationDate, in.ShippingDate); err != nil {
		return nil, err
	}

	return &Shipment{
		ID:             uuid.NewString(),
		MarketID:       in.MarketID,
		OwnerID:        in.OwnerID,
		ShippingType:   in.ShippingType,
		Origin:         in.Origin,
		Destination:    in.Destination,
		ComexType:      in.ComexType,
		Merchandise:    in.Merchandise,
		Value:          in.Value,
		Currency:       in.Currency,
		Status:         ShipmentStatusActive,
		ExpirationDate: in.ExpirationDate.UTC(),
		ShippingDate:   normalize(in.ShippingDate),
		InsertedAt:     now.UTC(),
		Version:        1,
	}, nil
}

// ValidateSchedule enforces the deadline/shipping ordering: when a shipping
// date is present it must leave at least MinShippingLead after the deadline.
func ValidateSchedule(expiration time.Time, shipping *time.Time) error {
	if shipping == nil {
		return nil
	}
	if shipping.Before(expiration.Add(MinShippingLead)) {
		return errs.Validationf("shipping_date must be at least one day after expiration_date")
	}
	return nil
}

// ValidateExtension enforces the rules for moving a shipment's deadline.
func (s *Shipment) ValidateExtension(newExpiration time.Time, newShipping *time.Time) error {
	if !newExpiration.After(s.ExpirationDate) {
		return errs.Validationf("new expiration_date must be after the current one")
	}
	shipping := newShipping
	if shipping == nil {
		shipping = s.ShippingDate
	}
	return ValidateSchedule(newExpiration, shipping)
}

// Terminal reports whether the shipment reached a final state.
func (s *Shipment) Terminal() bool {
	return s.Status != ShipmentStatusActive
}

// OfferWindowOpen reports whether new offers may still arrive.
func (s *Shipment) OfferWindowOpen(now time.Time) bool {
	return s.Status == ShipmentStatusActive && now.Before(s.ExpirationDate)
}

// NewPenalty builds the cancellation charge: a configurable percentage of
// the declared cargo value.
func NewPenalty(s *Shipment, percent float64, reason string, now time.Time) *Penalty {
	return &Penalty{
		ID:         uuid.NewString(),
		ShipmentID: s.ID,
		Amount:     s.Value * percent / 100,
		Reason:     reason,
		CreatedAt:  now.UTC(),
	}
}

func validShippingType(t ShippingType) bool {
	return t == ShippingTypeMaritime || t == ShippingTypeAir || t == ShippingTypeLand
}

func normalize(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
