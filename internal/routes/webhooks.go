package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lamont703/XRWebsites-sub000/internal/funding"
)

// RegisterWebhookRoutes wires payment gateway webhook intake.
func RegisterWebhookRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/webhooks/payments", h.PaymentWebhook)
}
