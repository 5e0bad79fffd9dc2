package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"freight-auction/internal/core/errs"
	offerdomain "freight-auction/internal/features/offers/domain"
	shipdomain "freight-auction/internal/features/shipments/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestRedisStore_ParseURLError verifies bad URLs fail fast.
func TestRedisStore_ParseURLError(t *testing.T) {
	_, err := NewRedisStore("not-a-url")
	assert.Error(t, err)
}

// TestRedisStore_ShipmentRoundTrip verifies a shipment survives persist and
// reload with its invariant fields intact.
func TestRedisStore_ShipmentRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := seedShipment(t, store, time.Now().UTC().Add(24*time.Hour))

	loaded, err := store.GetShipment(ctx, s.ID)

	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, shipdomain.ShipmentStatusActive, loaded.Status)
	assert.Nil(t, loaded.AcceptedOfferID)
	assert.Equal(t, s.ExpirationDate.Unix(), loaded.ExpirationDate.Unix())
}

// TestRedisStore_Settle verifies the settlement invariant holds after a
// reload: exactly one accepted offer iff the shipment is CLOSED.
func TestRedisStore_Settle(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := seedShipment(t, store, time.Now().UTC().Add(24*time.Hour))
	winner := seedOffer(t, store, s.ID, "agent-1", 900)
	loser := seedOffer(t, store, s.ID, "agent-2", 850)

	result, err := store.SettleShipment(ctx, s.ID, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{loser.ID}, result.RejectedIDs)

	reloaded, err := store.GetShipment(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, shipdomain.ShipmentStatusClosed, reloaded.Status)
	require.NotNil(t, reloaded.AcceptedOfferID)
	assert.Equal(t, winner.ID, *reloaded.AcceptedOfferID)

	offers, err := store.ListOffersByShipment(ctx, s.ID)
	require.NoError(t, err)
	accepted := 0
	for _, o := range offers {
		switch o.Status {
		case offerdomain.OfferStatusAccepted:
			accepted++
		case offerdomain.OfferStatusRejected:
		default:
			t.Fatalf("offer %s left in status %s", o.ID, o.Status)
		}
	}
	assert.Equal(t, 1, accepted)
}

// TestRedisStore_Settle_Conflict verifies the guard on terminal shipments.
func TestRedisStore_Settle_Conflict(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := seedShipment(t, store, time.Now().UTC().Add(24*time.Hour))
	a := seedOffer(t, store, s.ID, "agent-1", 900)
	b := seedOffer(t, store, s.ID, "agent-2", 850)

	_, err := store.SettleShipment(ctx, s.ID, a.ID)
	require.NoError(t, err)

	_, err = store.SettleShipment(ctx, s.ID, b.ID)
	assert.ErrorIs(t, err, errs.ErrConflict)
}

// TestRedisStore_Settle_Concurrent races two settles: exactly one wins.
func TestRedisStore_Settle_Concurrent(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := seedShipment(t, store, time.Now().UTC().Add(24*time.Hour))
	a := seedOffer(t, store, s.ID, "agent-1", 900)
	b := seedOffer(t, store, s.ID, "agent-2", 850)

	var wg sync.WaitGroup
	outcomes := make([]error, 2)
	for i, offerID := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			_, outcomes[slot] = store.SettleShipment(ctx, s.ID, id)
		}(i, offerID)
	}
	wg.Wait()

	winners := 0
	for _, err := range outcomes {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, errs.ErrConflict)
		}
	}
	assert.Equal(t, 1, winners)
}

// TestRedisStore_RejectOffer verifies the pending guard on manual rejection.
func TestRedisStore_RejectOffer(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := seedShipment(t, store, time.Now().UTC().Add(24*time.Hour))
	o := seedOffer(t, store, s.ID, "agent-1", 900)

	rejected, err := store.RejectOffer(ctx, o.ID, "too slow")
	require.NoError(t, err)
	assert.Equal(t, offerdomain.OfferStatusRejected, rejected.Status)

	_, err = store.RejectOffer(ctx, o.ID, "again")
	assert.ErrorIs(t, err, errs.ErrConflict)
}

// TestRedisStore_CancelWithPenalty verifies cancellation persists the
// penalty in the same transaction and leaves the sweep set.
func TestRedisStore_CancelWithPenalty(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	s := seedShipment(t, store, now.Add(-time.Hour))
	penalty := shipdomain.NewPenalty(s, 20, "changed plans", now)

	_, err := store.CancelShipment(ctx, s.ID, "changed plans", penalty)
	require.NoError(t, err)

	stored, err := store.GetPenalty(ctx, s.ID)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, stored.Amount, 1e-9)

	ids, err := store.ListExpirable(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// TestRedisStore_ListExpirable verifies overdue filtering against the
// active set.
func TestRedisStore_ListExpirable(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	overdue := seedShipment(t, store, now.Add(-time.Hour))
	seedShipment(t, store, now.Add(24*time.Hour))

	ids, err := store.ListExpirable(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, []string{overdue.ID}, ids)
}

// TestRedisStore_CreateOffer_TerminalShipment verifies the offer insert
// re-checks the shipment status inside its transaction: after a settle, a
// late insert fails with a conflict instead of planting a PENDING offer.
func TestRedisStore_CreateOffer_TerminalShipment(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	s := seedShipment(t, store, time.Now().UTC().Add(24*time.Hour))
	winner := seedOffer(t, store, s.ID, "agent-1", 900)

	_, err := store.SettleShipment(ctx, s.ID, winner.ID)
	require.NoError(t, err)

	late, err := offerdomain.NewOffer(s.ID, "agent-2", 850, offerdomain.FeeBreakdown{}, time.Now().UTC())
	require.NoError(t, err)
	err = store.CreateOffer(ctx, late)
	assert.ErrorIs(t, err, errs.ErrConflict)

	offers, err := store.ListOffersByShipment(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, winner.ID, offers[0].ID)
}

// TestRedisStore_CreateOffer_UnknownShipment verifies offers cannot attach
// to missing shipments.
func TestRedisStore_CreateOffer_UnknownShipment(t *testing.T) {
	store := newTestRedisStore(t)
	o, err := offerdomain.NewOffer("missing", "agent-1", 900, offerdomain.FeeBreakdown{}, time.Now().UTC())
	require.NoError(t, err)

	err = store.CreateOffer(context.Background(), o)

	assert.ErrorIs(t, err, errs.ErrNotFound)
}
