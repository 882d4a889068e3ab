package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/contractfile"
	"github.com/ManuelReschke/contracts/internal/pkg/lock"
)

// parseID reads a positive integer route parameter.
func parseID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	return id, err == nil && id > 0
}

// queryID reads an optional non-negative integer query parameter.
func queryID(c *fiber.Ctx, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id >= 0
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

// handleError writes the JSON error body matching err.
func handleError(c *fiber.Ctx, err error) error {
	var validation *apperror.ValidationError
	switch {
	case errors.As(err, &validation):
		body := fiber.Map{"error": "validation_failed", "message": validation.Message}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
	case apperror.IsNotFound(err), errors.Is(err, contractfile.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, lock.ErrLocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "locked", "message": "The contract is being modified by another request, try again later"})
	case apperror.IsUnsupported(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unsupported", "message": err.Error()})
	case apperror.IsExternalWrite(err):
		log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "external_write_failed", "message": err.Error()})
	default:
		log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Request failed"})
	}
}
