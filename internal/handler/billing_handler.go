package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/dto"
	"github.com/noah-isme/lms-go-api/internal/service"
	"github.com/noah-isme/lms-go-api/internal/utils"
)

// BillingHandler serves course checkout and the Midtrans notification callback.
type BillingHandler struct {
	service service.BillingService
	logger  zerolog.Logger
}

// NewBillingHandler constructs a billing handler.
func NewBillingHandler(service service.BillingService, logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{
		service: service,
		logger:  logger.With().Str("component", "billing_handler").Logger(),
	}
}

// Checkout handles POST /lms/:lmsId/checkout.
func (h *BillingHandler) Checkout(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	lmsID, err := parseUUIDParam(c, "lmsId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	result, err := h.service.Checkout(requestContext(c), actor, lmsID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	message := "enrollment activated"
	if result.Invoice != nil {
		message = "checkout created"
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, message, result)
}

// Notification handles the unauthenticated Midtrans HTTP notification.
func (h *BillingHandler) Notification(c *fiber.Ctx) error {
	var payload dto.MidtransNotification
	if err := bindJSON(c, &payload); err != nil {
		return respondError(c, h.logger, err)
	}

	invoice, err := h.service.HandleNotification(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Str("order_id", invoice.OrderID).
		Str("transaction_status", payload.TransactionStatus).
		Str("invoice_status", invoice.Status).
		Msg("payment notification processed")
	return utils.SendSuccess(c, "notification processed", invoice)
}

// Invoices handles GET /billing/invoices.
func (h *BillingHandler) Invoices(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	invoices, err := h.service.ListInvoices(requestContext(c), actor)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "invoices retrieved", invoices)
}
