package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"freight-auction/internal/core/clock"
	"freight-auction/internal/core/events"
	offerdomain "freight-auction/internal/features/offers/domain"
	offerservice "freight-auction/internal/features/offers/service"
	"freight-auction/internal/features/settlement/ports"
	"freight-auction/internal/features/settlement/service"
	shipdomain "freight-auction/internal/features/shipments/domain"
	"freight-auction/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopSink is a Sink that discards every event.
type noopSink struct{}

// Dispatch implements events.Sink.
func (noopSink) Dispatch(ctx context.Context, env events.Envelope) {}

// fixture wires a fiber app with the accept route plus a seeded shipment and two offers.
type fixture struct {
	app      *fiber.App
	store    storage.Store
	shipment *shipdomain.Shipment
	offers   []*offerdomain.Offer
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	clk := clock.Fixed{T: now}

	shipment, err := shipdomain.NewShipment(shipdomain.CreateShipmentInput{
		MarketID:       "market-co",
		OwnerID:        "owner-1",
		Origin:         "Barranquilla, CO",
		Destination:    "Hamburg, DE",
		ShippingType:   shipdomain.ShippingTypeAir,
		ComexType:      shipdomain.ComexTypeExport,
		Value:          80000,
		Currency:       "USD",
		ExpirationDate: now.Add(72 * time.Hour),
		Merchandise:    shipdomain.Merchandise{Description: "Flowers", WeightKg: 400},
	}, now)
	require.NoError(t, err)
	require.NoError(t, store.CreateShipment(context.Background(), shipment))

	ledger := offerservice.NewLedger(store, clk)
	first, err := ledger.Submit(context.Background(), shipment.ID, "agent-1", 9000, offerdomain.FeeBreakdown{})
	require.NoError(t, err)
	second, err := ledger.Submit(context.Background(), shipment.ID, "agent-2", 8500, offerdomain.FeeBreakdown{})
	require.NoError(t, err)

	h := NewSettlementHandler(service.NewCoordinator(store, clk, noopSink{}))
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Post("/shipments/:id/accept", h.AcceptOffer)

	return &fixture{app: app, store: store, shipment: shipment, offers: []*offerdomain.Offer{first, second}}
}

// TestSettlementHandler_AcceptOffer_Success verifies settlement over HTTP.
func TestSettlementHandler_AcceptOffer_Success(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(t, now)

	payload, err := json.Marshal(AcceptOfferRequest{OfferID: f.offers[0].ID})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/shipments/"+f.shipment.ID+"/accept", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result ports.SettlementResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, shipdomain.ShipmentStatusClosed, result.Shipment.Status)
	assert.Equal(t, offerdomain.OfferStatusAccepted, result.Accepted.Status)
	assert.Equal(t, []string{f.offers[1].ID}, result.RejectedIDs)
}

// TestSettlementHandler_AcceptOffer_MissingOfferID verifies the offer id is mandatory.
func TestSettlementHandler_AcceptOffer_MissingOfferID(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(t, now)

	payload, err := json.Marshal(AcceptOfferRequest{})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/shipments/"+f.shipment.ID+"/accept", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Message, "offer_id")
	assert.Equal(t, "test-ray-id", errResp.RayID)
}

// TestSettlementHandler_AcceptOffer_UnknownShipment verifies missing shipments map to 404.
func TestSettlementHandler_AcceptOffer_UnknownShipment(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(t, now)

	payload, err := json.Marshal(AcceptOfferRequest{OfferID: f.offers[0].ID})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/shipments/missing/accept", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

// TestSettlementHandler_AcceptOffer_AlreadyClosed verifies a second acceptance maps to 409.
func TestSettlementHandler_AcceptOffer_AlreadyClosed(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(t, now)

	payload, err := json.Marshal(AcceptOfferRequest{OfferID: f.offers[0].ID})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/shipments/"+f.shipment.ID+"/accept", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload, err = json.Marshal(AcceptOfferRequest{OfferID: f.offers[1].ID})
	require.NoError(t, err)
	req = httptest.NewRequest("POST", "/shipments/"+f.shipment.ID+"/accept", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = f.app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Message, "closed")
}

// TestSettlementHandler_AcceptOffer_ForeignOffer verifies an offer from another shipment maps to 409.
func TestSettlementHandler_AcceptOffer_ForeignOffer(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(t, now)

	other, err := shipdomain.NewShipment(shipdomain.CreateShipmentInput{
		MarketID:       "market-pe",
		OwnerID:        "owner-2",
		Origin:         "Callao, PE",
		Destination:    "Miami, US",
		ShippingType:   shipdomain.ShippingTypeAir,
		ComexType:      shipdomain.ComexTypeExport,
		Value:          30000,
		Currency:       "USD",
		ExpirationDate: now.Add(72 * time.Hour),
		Merchandise:    shipdomain.Merchandise{Description: "Fishmeal", WeightKg: 2000},
	}, now)
	require.NoError(t, err)
	require.NoError(t, f.store.CreateShipment(context.Background(), other))

	ledger := offerservice.NewLedger(f.store, clock.Fixed{T: now})
	foreign, err := ledger.Submit(context.Background(), other.ID, "agent-3", 4000, offerdomain.FeeBreakdown{})
	require.NoError(t, err)

	payload, err := json.Marshal(AcceptOfferRequest{OfferID: foreign.ID})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/shipments/"+f.shipment.ID+"/accept", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
