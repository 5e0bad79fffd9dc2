package service

import (
	"context"
	"testing"
	"time"

	"freight-auction/internal/core/clock"
	"freight-auction/internal/core/errs"
	"freight-auction/internal/core/events"
	offerdomain "freight-auction/internal/features/offers/domain"
	shipdomain "freight-auction/internal/features/shipments/domain"
	shipservice "freight-auction/internal/features/shipments/service"
	"freight-auction/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOverdueShipment(t *testing.T, store storage.Store, now time.Time) *shipdomain.Shipment {
	t.Helper()
	created := now.Add(-48 * time.Hour)
	expiration := now.Add(-time.Hour)
	shipping := expiration.Add(48 * time.Hour)
	s, err := shipdomain.NewShipment(shipdomain.CreateShipmentInput{
		MarketID:       "market-1",
		OwnerID:        "owner-1",
		ShippingType:   shipdomain.ShippingTypeMaritime,
		Origin:         "CNSHA",
		Destination:    "COBUN",
		ComexType:      shipdomain.ComexTypeImport,
		Value:          1000,
		Currency:       "USD",
		ExpirationDate: expiration,
		ShippingDate:   &shipping,
	}, created)
	require.NoError(t, err)
	require.NoError(t, store.CreateShipment(context.Background(), s))
	return s
}

func newTestScheduler(store storage.Store, now time.Time, sink events.Sink) *DeadlineScheduler {
	registry := shipservice.NewRegistry(store, clock.Fixed{T: now}, sink, 20)
	return NewDeadlineScheduler(store, registry, clock.Fixed{T: now}, time.Minute)
}

// TestScheduler_Tick_ExpiresOverdue verifies the sweep expires overdue
// shipments, leaves fresh ones alone, and never touches pending offers.
func TestScheduler_Tick_ExpiresOverdue(t *testing.T) {
	now := time.Now().UTC()
	store := storage.NewMemoryStore()
	sink := &recordingSink{}
	scheduler := newTestScheduler(store, now, sink)

	overdue := seedOverdueShipment(t, store, now)
	fresh := seedShipment(t, store, now)
	pending := seedOffer(t, store, overdue.ID, "agent-1", 900)

	n, err := scheduler.Tick(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expired, err := store.GetShipment(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, shipdomain.ShipmentStatusExpired, expired.Status)
	assert.Nil(t, expired.AcceptedOfferID)

	untouched, err := store.GetShipment(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, shipdomain.ShipmentStatusActive, untouched.Status)

	// Expiration never implicitly accepts or rejects offers.
	offer, err := store.GetOffer(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, offerdomain.OfferStatusPending, offer.Status)

	dispatched := sink.all()
	require.Len(t, dispatched, 1)
	assert.Equal(t, events.TypeShipmentExpired, dispatched[0].Type)
}

// TestScheduler_Tick_Idempotent verifies a second sweep finds nothing.
func TestScheduler_Tick_Idempotent(t *testing.T) {
	now := time.Now().UTC()
	store := storage.NewMemoryStore()
	scheduler := newTestScheduler(store, now, &recordingSink{})
	seedOverdueShipment(t, store, now)

	n, err := scheduler.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = scheduler.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// TestScheduler_Tick_SkipsSettled verifies a shipment accepted between the
// scan and the expiration attempt is skipped, not corrupted.
func TestScheduler_Tick_SkipsSettled(t *testing.T) {
	now := time.Now().UTC()
	store := storage.NewMemoryStore()
	scheduler := newTestScheduler(store, now, &recordingSink{})

	overdue := seedOverdueShipment(t, store, now)
	winner := seedOffer(t, store, overdue.ID, "agent-1", 900)

	// The owner accepts just before the sweep processes the shipment.
	_, err := store.SettleShipment(context.Background(), overdue.ID, winner.ID)
	require.NoError(t, err)

	n, err := scheduler.Tick(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 0, n)

	final, err := store.GetShipment(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, shipdomain.ShipmentStatusClosed, final.Status)
}

// TestScheduler_ExpiredShipmentRejectsAcceptance verifies the
// ordering where the sweep runs first and an acceptance arrives too late.
func TestScheduler_ExpiredShipmentRejectsAcceptance(t *testing.T) {
	now := time.Now().UTC()
	store := storage.NewMemoryStore()
	scheduler := newTestScheduler(store, now, &recordingSink{})
	coordinator := NewCoordinator(store, clock.Fixed{T: now}, &recordingSink{})

	overdue := seedOverdueShipment(t, store, now)
	offer := seedOffer(t, store, overdue.ID, "agent-1", 900)

	_, err := scheduler.Tick(context.Background(), now)
	require.NoError(t, err)

	_, err = coordinator.AcceptOffer(context.Background(), overdue.ID, offer.ID)

	assert.ErrorIs(t, err, ErrShipmentExpired)
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

// TestScheduler_Run_StopsOnContextCancel verifies clean shutdown.
func TestScheduler_Run_StopsOnContextCancel(t *testing.T) {
	now := time.Now().UTC()
	store := storage.NewMemoryStore()
	registry := shipservice.NewRegistry(store, clock.Fixed{T: now}, &recordingSink{}, 20)
	scheduler := NewDeadlineScheduler(store, registry, clock.Fixed{T: now}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
