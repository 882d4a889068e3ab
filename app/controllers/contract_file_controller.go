package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/contracts/internal/pkg/contractfile"
)

// ContractFileController streams scanned contract documents.
type ContractFileController struct {
	files *contractfile.Store
}

// NewContractFileController creates a contract file controller.
func NewContractFileController(files *contractfile.Store) *ContractFileController {
	return &ContractFileController{files: files}
}

// HandleDownload sends the named contract file as an attachment.
func (fc *ContractFileController) HandleDownload(c *fiber.Ctx) error {
	name := c.Params("name")
	f, err := fc.files.Open(c.UserContext(), name)
	switch {
	case errors.Is(err, contractfile.ErrDisabled):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Contract files are not configured"})
	case errors.Is(err, contractfile.ErrInvalidName):
		return badRequest(c, "Invalid file name")
	case err != nil:
		return handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, f.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+f.Name+`"`)
	size := -1
	if f.Size > 0 {
		size = int(f.Size)
	}
	return c.SendStream(f.Body, size)
}
