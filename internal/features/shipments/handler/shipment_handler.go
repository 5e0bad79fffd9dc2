package handler

import (
	"errors"
	"net/http"
	"time"

	"freight-auction/internal/core/errs"
	"freight-auction/internal/core/logger"
	offerports "freight-auction/internal/features/offers/ports"
	"freight-auction/internal/features/shipments/domain"
	"freight-auction/internal/features/shipments/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ShipmentHandler handles HTTP requests for the shipment lifecycle.
type ShipmentHandler struct {
	registry ports.ShipmentRegistry
	offers   offerports.OfferLedger
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(registry ports.ShipmentRegistry, offers offerports.OfferLedger) *ShipmentHandler {
	return &ShipmentHandler{
		registry: registry,
		offers:   offers,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// ExtendDeadlineRequest represents the request body for a deadline extension.
type ExtendDeadlineRequest struct {
	// ExpirationDate is the new offer deadline, after the current one.
	ExpirationDate time.Time `json:"expiration_date"`
	// ShippingDate optionally moves the planned departure as well.
	ShippingDate *time.Time `json:"shipping_date,omitempty"`
}

// CancelShipmentRequest represents the request body for a cancellation.
type CancelShipmentRequest struct {
	// Reason is the mandatory cancellation reason.
	Reason string `json:"reason"`
}

// CancelShipmentResponse carries the cancelled shipment and any penalty.
type CancelShipmentResponse struct {
	Shipment *domain.Shipment `json:"shipment"`
	Penalty  *domain.Penalty  `json:"penalty,omitempty"`
}

// CreateShipment godoc
// @Summary Post a new shipment
// @Description Creates a new freight-transport request, open for offers until its deadline.
// @Tags shipments
// @Accept json
// @Produce json
// @Param shipment body domain.CreateShipmentInput true "Shipment details"
// @Success 201 {object} domain.Shipment
// @Failure 400 {object} ErrorResponse
// @Router /shipments [post]
func (h *ShipmentHandler) CreateShipment(c *fiber.Ctx) error {
	var in domain.CreateShipmentInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, errs.Validationf("invalid request body"))
	}

	shipment, err := h.registry.Create(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(shipment)
}

// GetShipment godoc
// @Summary Get a shipment with its offers
// @Description Retrieves a shipment and every offer submitted against it.
// @Tags shipments
// @Produce json
// @Param id path string true "Shipment ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /shipments/{id} [get]
func (h *ShipmentHandler) GetShipment(c *fiber.Ctx) error {
	id := c.Params("id")

	shipment, err := h.registry.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	offers, err := h.offers.ListByShipment(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"shipment": shipment,
		"offers":   offers,
	})
}

// ExtendDeadline godoc
// @Summary Extend a shipment's deadline
// @Description Moves the offer deadline (and optionally the shipping date) of an active shipment forward.
// @Tags shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param dates body ExtendDeadlineRequest true "New dates"
// @Success 200 {object} domain.Shipment
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /shipments/{id}/deadline [patch]
func (h *ShipmentHandler) ExtendDeadline(c *fiber.Ctx) error {
	var req ExtendDeadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errs.Validationf("invalid request body"))
	}

	shipment, err := h.registry.ExtendDeadline(c.Context(), c.Params("id"), req.ExpirationDate, req.ShippingDate)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(shipment)
}

// CancelShipment godoc
// @Summary Cancel a shipment
// @Description Cancels an active shipment. A shipment that already received offers incurs a penalty.
// @Tags shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param cancellation body CancelShipmentRequest true "Cancellation reason"
// @Success 200 {object} CancelShipmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /shipments/{id}/cancel [post]
func (h *ShipmentHandler) CancelShipment(c *fiber.Ctx) error {
	var req CancelShipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errs.Validationf("invalid request body"))
	}

	result, err := h.registry.Cancel(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(CancelShipmentResponse{
		Shipment: result.Shipment,
		Penalty:  result.Penalty,
	})
}

// respondError maps error kinds to HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	rayID, _ := c.Locals("requestid").(string)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidState), errors.Is(err, errs.ErrConflict):
		status = http.StatusConflict
	default:
		logger.Get().Error("Unhandled shipment error", zap.Error(err))
	}
	return c.Status(status).JSON(ErrorResponse{Message: err.Error(), RayID: rayID})
}
