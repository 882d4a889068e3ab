package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/ManuelReschke/contracts/internal/pkg/payment"
)

// RequestIDHeader carries the id of a request in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a uuid unless the caller sent one.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:    RequestIDHeader,
		Generator: uuid.NewString,
	})
}

// RequestCache opens the request-scoped payment listing cache on the
// request's user context.
func RequestCache(c *fiber.Ctx) error {
	c.SetUserContext(payment.WithRequestCache(c.UserContext()))
	return c.Next()
}
