package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/contractfile"
	"github.com/ManuelReschke/contracts/internal/pkg/lock"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", apperror.Validation("iban", "Please enter a valid IBAN"), fiber.StatusUnprocessableEntity, `"field":"iban"`},
		{"transition", apperror.IllegalTransition("Paused", "cancel"), fiber.StatusUnprocessableEntity, `Cannot cancel a contract with status 'Paused'.`},
		{"not found", apperror.NotFound("Contract", 7, nil), fiber.StatusNotFound, `"error":"not_found"`},
		{"file", contractfile.ErrNotFound, fiber.StatusNotFound, `"error":"not_found"`},
		{"locked", fmt.Errorf("acquire: %w", lock.ErrLocked), fiber.StatusConflict, `"error":"locked"`},
		{"unsupported", apperror.Unsupported("frequency unit", "week"), fiber.StatusUnprocessableEntity, `"error":"unsupported"`},
		{"write", apperror.WriteFailed("update", "Contract", 7, errors.New("boom")), fiber.StatusBadGateway, `"error":"external_write_failed"`},
		{"other", errors.New("boom"), fiber.StatusInternalServerError, `"message":"Request failed"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return handleError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, string(body), tt.body)
		})
	}
}

func TestParseID(t *testing.T) {
	app := fiber.New()
	app.Get("/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return badRequest(c, "Invalid contract id")
		}
		return c.JSON(fiber.Map{"id": id})
	})

	for path, status := range map[string]int{"/12": fiber.StatusOK, "/0": fiber.StatusBadRequest, "/-3": fiber.StatusBadRequest, "/x": fiber.StatusBadRequest} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, path)
	}
}
