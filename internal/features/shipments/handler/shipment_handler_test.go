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
	"freight-auction/internal/features/shipments/domain"
	"freight-auction/internal/features/shipments/service"
	"freight-auction/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopSink is a Sink that discards every event.
type noopSink struct{}

// Dispatch implements events.Sink.
func (noopSink) Dispatch(ctx context.Context, env events.Envelope) {}

// newTestApp wires a fiber app with the shipment routes over an in-memory store.
func newTestApp(t *testing.T, now time.Time) (*fiber.App, storage.Store) {
	t.Helper()

	store := storage.NewMemoryStore()
	clk := clock.Fixed{T: now}
	registry := service.NewRegistry(store, clk, noopSink{}, 20)
	ledger := offerservice.NewLedger(store, clk)
	h := NewShipmentHandler(registry, ledger)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Post("/shipments", h.CreateShipment)
	app.Get("/shipments/:id", h.GetShipment)
	app.Patch("/shipments/:id/deadline", h.ExtendDeadline)
	app.Post("/shipments/:id/cancel", h.CancelShipment)

	return app, store
}

// validCreateBody builds a creation request with all required fields.
func validCreateBody(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"market_id":       "market-co",
		"owner_id":        "owner-1",
		"origin":          "Cartagena, CO",
		"destination":     "Rotterdam, NL",
		"shipping_type":   "AIR",
		"comex_type":      "EXPORT",
		"value":           125000.0,
		"currency":        "USD",
		"expiration_date": now.Add(72 * time.Hour).Format(time.RFC3339),
		"merchandise": map[string]interface{}{
			"description": "Coffee beans",
			"weight_kg":   1200.0,
		},
	}
}

// TestShipmentHandler_CreateShipment_Success verifies shipment creation over HTTP.
func TestShipmentHandler_CreateShipment_Success(t *testing.T) {
	now := time.Now().UTC()
	app, _ := newTestApp(t, now)

	payload, err := json.Marshal(validCreateBody(now))
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created domain.Shipment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.ShipmentStatusActive, created.Status)
	assert.Equal(t, "owner-1", created.OwnerID)
}

// TestShipmentHandler_CreateShipment_MissingField verifies field validation maps to 400.
func TestShipmentHandler_CreateShipment_MissingField(t *testing.T) {
	now := time.Now().UTC()
	app, _ := newTestApp(t, now)

	body := validCreateBody(now)
	delete(body, "origin")
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Message, "origin")
	assert.Equal(t, "test-ray-id", errResp.RayID)
}

// TestShipmentHandler_GetShipment_WithOffers verifies the shipment detail includes its offers.
func TestShipmentHandler_GetShipment_WithOffers(t *testing.T) {
	now := time.Now().UTC()
	app, store := newTestApp(t, now)

	payload, err := json.Marshal(validCreateBody(now))
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var created domain.Shipment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	ledger := offerservice.NewLedger(store, clock.Fixed{T: now})
	_, err = ledger.Submit(context.Background(), created.ID, "agent-1", 9800, offerdomain.FeeBreakdown{})
	require.NoError(t, err)

	req = httptest.NewRequest("GET", "/shipments/"+created.ID, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var detail struct {
		Shipment domain.Shipment          `json:"shipment"`
		Offers   []map[string]interface{} `json:"offers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, created.ID, detail.Shipment.ID)
	require.Len(t, detail.Offers, 1)
	assert.Equal(t, "agent-1", detail.Offers[0]["agent_id"])
}

// TestShipmentHandler_GetShipment_NotFound verifies unknown ids map to 404.
func TestShipmentHandler_GetShipment_NotFound(t *testing.T) {
	app, _ := newTestApp(t, time.Now().UTC())

	req := httptest.NewRequest("GET", "/shipments/missing", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

// TestShipmentHandler_ExtendDeadline_Success verifies the deadline moves forward.
func TestShipmentHandler_ExtendDeadline_Success(t *testing.T) {
	now := time.Now().UTC()
	app, _ := newTestApp(t, now)

	payload, err := json.Marshal(validCreateBody(now))
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var created domain.Shipment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	newDeadline := created.ExpirationDate.Add(48 * time.Hour)
	body, err := json.Marshal(ExtendDeadlineRequest{ExpirationDate: newDeadline})
	require.NoError(t, err)

	req = httptest.NewRequest("PATCH", "/shipments/"+created.ID+"/deadline", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated domain.Shipment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.True(t, updated.ExpirationDate.Equal(newDeadline))
}

// TestShipmentHandler_ExtendDeadline_Backwards verifies a shrinking deadline maps to 400.
func TestShipmentHandler_ExtendDeadline_Backwards(t *testing.T) {
	now := time.Now().UTC()
	app, _ := newTestApp(t, now)

	payload, err := json.Marshal(validCreateBody(now))
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var created domain.Shipment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	body, err := json.Marshal(ExtendDeadlineRequest{ExpirationDate: created.ExpirationDate.Add(-time.Hour)})
	require.NoError(t, err)

	req = httptest.NewRequest("PATCH", "/shipments/"+created.ID+"/deadline", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

// TestShipmentHandler_CancelShipment_WithPenalty verifies cancellation returns the penalty.
func TestShipmentHandler_CancelShipment_WithPenalty(t *testing.T) {
	now := time.Now().UTC()
	app, store := newTestApp(t, now)

	payload, err := json.Marshal(validCreateBody(now))
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var created domain.Shipment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	ledger := offerservice.NewLedger(store, clock.Fixed{T: now})
	_, err = ledger.Submit(context.Background(), created.ID, "agent-1", 9800, offerdomain.FeeBreakdown{})
	require.NoError(t, err)

	body, err := json.Marshal(CancelShipmentRequest{Reason: "route no longer needed"})
	require.NoError(t, err)
	req = httptest.NewRequest("POST", "/shipments/"+created.ID+"/cancel", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result CancelShipmentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, domain.ShipmentStatusCancelled, result.Shipment.Status)
	require.NotNil(t, result.Penalty)
	assert.InDelta(t, 25000, result.Penalty.Amount, 0.001)
}

// TestShipmentHandler_CancelShipment_EmptyReason verifies the reason is mandatory.
func TestShipmentHandler_CancelShipment_EmptyReason(t *testing.T) {
	now := time.Now().UTC()
	app, _ := newTestApp(t, now)

	payload, err := json.Marshal(validCreateBody(now))
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var created domain.Shipment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	body, err := json.Marshal(CancelShipmentRequest{Reason: ""})
	require.NoError(t, err)
	req = httptest.NewRequest("POST", "/shipments/"+created.ID+"/cancel", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

// TestShipmentHandler_CancelShipment_AlreadyCancelled verifies repeat cancellation maps to 409.
func TestShipmentHandler_CancelShipment_AlreadyCancelled(t *testing.T) {
	now := time.Now().UTC()
	app, _ := newTestApp(t, now)

	payload, err := json.Marshal(validCreateBody(now))
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var created domain.Shipment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	body, err := json.Marshal(CancelShipmentRequest{Reason: "route no longer needed"})
	require.NoError(t, err)
	req = httptest.NewRequest("POST", "/shipments/"+created.ID+"/cancel", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("POST", "/shipments/"+created.ID+"/cancel", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
