package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const signatureHeader = "X-Webhook-Signature"

// Handler accepts payment gateway webhook deliveries.
type Handler struct {
	gateway Gateway
	service *Service
}

// NewHandler builds the webhook handler.
func NewHandler(gateway Gateway, service *Service) *Handler {
	return &Handler{gateway: gateway, service: service}
}

// PaymentWebhook verifies and applies a payment-succeeded event. The
// endpoint always acknowledges verified duplicates so the gateway stops
// redelivering them.
func (h *Handler) PaymentWebhook(c *fiber.Ctx) error {
	event, err := h.gateway.VerifyEvent(c.Body(), c.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			return fiber.NewError(http.StatusUnauthorized, "invalid signature")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.service.HandlePaymentSucceeded(c.UserContext(), event)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"received":       true,
		"transaction_id": entry.ID,
	})
}
