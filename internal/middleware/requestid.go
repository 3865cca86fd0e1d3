package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID attaches a request identifier to every request, reusing the
// inbound header when the caller supplied one.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDHeader, id)
		c.Set(requestIDHeader, id)
		return c.Next()
	}
}
