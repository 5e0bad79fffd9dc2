package handler

import (
	"errors"
	"net/http"

	"freight-auction/internal/core/errs"
	"freight-auction/internal/core/logger"
	"freight-auction/internal/features/settlement/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SettlementHandler handles HTTP requests for closing auctions.
type SettlementHandler struct {
	coordinator ports.SettlementCoordinator
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(coordinator ports.SettlementCoordinator) *SettlementHandler {
	return &SettlementHandler{coordinator: coordinator}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// AcceptOfferRequest represents the request body for accepting an offer.
type AcceptOfferRequest struct {
	// OfferID is the pending offer the customer accepts.
	OfferID string `json:"offer_id"`
}

// AcceptOffer godoc
// @Summary Accept an offer and close the auction
// @Description Atomically closes the shipment, accepts the chosen offer and rejects every sibling offer.
// @Tags settlement
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param acceptance body AcceptOfferRequest true "Offer to accept"
// @Success 200 {object} ports.SettlementResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /shipments/{id}/accept [post]
func (h *SettlementHandler) AcceptOffer(c *fiber.Ctx) error {
	var req AcceptOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errs.Validationf("invalid request body"))
	}
	if req.OfferID == "" {
		return respondError(c, errs.Validationf("offer_id is required"))
	}

	result, err := h.coordinator.AcceptOffer(c.Context(), c.Params("id"), req.OfferID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(result)
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
		logger.Get().Error("Unhandled settlement error", zap.Error(err))
	}
	return c.Status(status).JSON(ErrorResponse{Message: err.Error(), RayID: rayID})
}
