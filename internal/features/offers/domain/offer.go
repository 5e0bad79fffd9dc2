package domain

import (
	"time"

	"freight-auction/internal/core/errs"

	"github.com/google/uuid"
)

// OfferStatus represents the current state of an offer.
type OfferStatus string

const (
	// OfferStatusPending indicates the offer awaits the owner's decision.
	OfferStatusPending OfferStatus = "PENDING"
	// OfferStatusAccepted indicates the offer won the auction.
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	// OfferStatusRejected indicates the offer was rejected, manually or
	// because a sibling was accepted.
	OfferStatusRejected OfferStatus = "REJECTED"
)

// FeeBreakdown itemizes an offer's price.
type FeeBreakdown struct {
	// FreightCost is the carrier cost portion.
	FreightCost float64 `json:"freight_cost"`
	// InsuranceCost is the cargo insurance portion.
	InsuranceCost float64 `json:"insurance_cost"`
	// HandlingFee is the agent's handling charge.
	HandlingFee float64 `json:"handling_fee"`
	// CustomsFee is the customs clearance charge.
	CustomsFee float64 `json:"customs_fee"`
	// Notes carries free-form remarks from the agent.
	Notes string `json:"notes,omitempty"`
}

// Offer represents an agent's priced proposal against a shipment.
type Offer struct {
	// ID is the unique identifier for the offer.
	ID string `json:"offer_id"`
	// ShipmentID is the shipment this offer bids on.
	ShipmentID string `json:"shipment_id"`
	// AgentID identifies the logistics agent submitting the offer.
	AgentID string `json:"agent_id"`
	// Price is the total proposed price in the shipment's currency.
	Price float64 `json:"price"`
	// Fees itemizes the price.
	Fees FeeBreakdown `json:"fees"`
	// Status is the current offer state.
	Status OfferStatus `json:"status"`
	// RejectionReason is set when the offer was manually rejected.
	RejectionReason string `json:"rejection_reason,omitempty"`
	// InsertedAt is the submission timestamp.
	InsertedAt time.Time `json:"inserted_at"`
}

// NewOffer validates the input and builds a PENDING offer.
func NewOffer(shipmentID, agentID string, price float64, fees FeeBreakdown, now time.Time) (*Offer, error) {
	if shipmentID == "" {
		return nil, errs.Validationf("missing required field shipment_id")
	}
	if agentID == "" {
		return nil, errs.Validationf("missing required field agent_id")
	}
	if price <= 0 {
		return nil, errs.Validationf("price must be positive, got %v", price)
	}

	return &Offer{
		ID:         uuid.NewString(),
		ShipmentID: shipmentID,
		AgentID:    agentID,
		Price:      price,
		Fees:       fees,
		Status:     OfferStatusPending,
		InsertedAt: now.UTC(),
	}, nil
}

// Pending reports whether the offer can still be accepted or rejected.
func (o *Offer) Pending() bool {
	return o.Status == OfferStatusPending
}
