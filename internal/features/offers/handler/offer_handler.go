package handler

import (
	"errors"
	"net/http"

	"freight-auction/internal/core/errs"
	"freight-auction/internal/core/logger"
	"freight-auction/internal/features/offers/domain"
	"freight-auction/internal/features/offers/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OfferHandler handles HTTP requests for the offer ledger.
type OfferHandler struct {
	ledger ports.OfferLedger
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(ledger ports.OfferLedger) *OfferHandler {
	return &OfferHandler{ledger: ledger}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// SubmitOfferRequest represents the request body for a new offer.
type SubmitOfferRequest struct {
	// AgentID identifies the logistics agent making the offer.
	AgentID string `json:"agent_id"`
	// Price is the total quoted price, must be positive.
	Price float64 `json:"price"`
	// Fees is the itemized fee breakdown behind the price.
	Fees domain.FeeBreakdown `json:"fees"`
}

// RejectOfferRequest represents the request body for a manual rejection.
type RejectOfferRequest struct {
	// Reason optionally explains the rejection.
	Reason string `json:"reason"`
}

// SubmitOffer godoc
// @Summary Submit an offer against a shipment
// @Description Records a pending offer from a logistics agent while the shipment's offer window is open.
// @Tags offers
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param offer body SubmitOfferRequest true "Offer details"
// @Success 201 {object} domain.Offer
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /shipments/{id}/offers [post]
func (h *OfferHandler) SubmitOffer(c *fiber.Ctx) error {
	var req SubmitOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errs.Validationf("invalid request body"))
	}

	offer, err := h.ledger.Submit(c.Context(), c.Params("id"), req.AgentID, req.Price, req.Fees)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(offer)
}

// RejectOffer godoc
// @Summary Reject a pending offer
// @Description Marks a pending offer as rejected without closing the shipment.
// @Tags offers
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param rejection body RejectOfferRequest true "Rejection reason"
// @Success 200 {object} domain.Offer
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /offers/{id}/reject [post]
func (h *OfferHandler) RejectOffer(c *fiber.Ctx) error {
	var req RejectOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errs.Validationf("invalid request body"))
	}

	offer, err := h.ledger.Reject(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(offer)
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
		logger.Get().Error("Unhandled offer error", zap.Error(err))
	}
	return c.Status(status).JSON(ErrorResponse{Message: err.Error(), RayID: rayID})
}
