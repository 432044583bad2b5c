package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CorrelationHeader carries the request identifier in and out of the service.
const CorrelationHeader = "X-Correlation-ID"

const correlationLocal = "correlation_id"

// maxCorrelationLength bounds client supplied identifiers before they reach log lines.
const maxCorrelationLength = 64

// CorrelationID tags every request with an identifier echoed back in the response headers.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(CorrelationHeader))
		if id == "" || len(id) > maxCorrelationLength {
			id = uuid.NewString()
		}

		c.Locals(correlationLocal, id)
		c.Set(CorrelationHeader, id)
		return c.Next()
	}
}

// GetCorrelationID returns the identifier attached by CorrelationID, or "" outside of it.
func GetCorrelationID(c *fiber.Ctx) string {
	id, _ := c.Locals(correlationLocal).(string)
	return id
}
