package events

import (
	"context"
	"time"
)

// Type identifies the kind of lifecycle event being published.
type Type string

const (
	// TypeSettlementAccepted fires after an offer acceptance commits.
	TypeSettlementAccepted Type = "settlement.accepted"
	// TypeShipmentCancelled fires after an owner cancellation commits.
	TypeShipmentCancelled Type = "shipment.cancelled"
	// TypeShipmentExpired fires after the deadline sweep expires a shipment.
	TypeShipmentExpired Type = "shipment.expired"
)

// Envelope is the wire format shared by the notification and realtime
// publishers. Payload holds the event-specific body.
type Envelope struct {
	// Type is the event kind.
	Type Type `json:"type"`
	// ShipmentID keys the event to its shipment, also used as the partition key.
	ShipmentID string `json:"shipment_id"`
	// OccurredAt is the commit-side timestamp.
	OccurredAt time.Time `json:"occurred_at"`
	// Payload is the event-specific body.
	Payload interface{} `json:"payload"`
}

// Publisher is the port implemented by downstream sinks (Kafka notification
// dispatcher, Redis realtime feed). Publishes are best-effort and happen
// only after the owning transaction committed.
type Publisher interface {
	Publish(ctx context.Context, event Envelope) error
}

// Sink is the narrow interface core services use to emit events without
// blocking on downstream I/O.
type Sink interface {
	Dispatch(ctx context.Context, event Envelope)
}
