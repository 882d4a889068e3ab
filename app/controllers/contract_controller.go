package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/contracts/internal/pkg/contract"
)

// ContractController serves contract modifications and their history.
type ContractController struct {
	service *contract.Service
}

// NewContractController creates a contract controller.
func NewContractController(service *contract.Service) *ContractController {
	return &ContractController{service: service}
}

// HandleModify records a modification and runs the contract's due changes.
func (cc *ContractController) HandleModify(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid contract id")
	}
	var req contract.ModifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.ContractID = id

	result, err := cc.service.Modify(c.UserContext(), req)
	if err != nil {
		return handleError(c, err)
	}
	status := fiber.StatusCreated
	if result.Process.Failed != nil && result.Process.Failed.ChangeID == result.ChangeID {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(result)
}

// HandleProcess runs the contract's due scheduled changes.
func (cc *ContractController) HandleProcess(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid contract id")
	}
	result, err := cc.service.ProcessScheduled(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(result)
}

// HandleModificationCounts returns the number of open changes.
func (cc *ContractController) HandleModificationCounts(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid contract id")
	}
	counts, err := cc.service.OpenModificationCounts(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(counts)
}

// HandleChanges lists the contract's change records, newest first.
func (cc *ContractController) HandleChanges(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid contract id")
	}
	history, err := cc.service.History(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"changes": history})
}

// HandleCurrentPayment renders the recurring contribution of the contract.
func (cc *ContractController) HandleCurrentPayment(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid contract id")
	}
	rendered, err := cc.service.CurrentPayment(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	if rendered == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Contract has no recurring payment"})
	}
	return c.JSON(rendered)
}
