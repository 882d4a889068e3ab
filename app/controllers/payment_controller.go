package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/contracts/internal/pkg/payment"
)

// PaymentController serves recurring contribution listings.
type PaymentController struct {
	payments *payment.Service
}

// NewPaymentController creates a payment controller.
func NewPaymentController(payments *payment.Service) *PaymentController {
	return &PaymentController{payments: payments}
}

// HandleListForContact lists the eligible recurring payments of a contact.
func (pc *PaymentController) HandleListForContact(c *fiber.Ctx) error {
	contactID, ok := parseID(c, "cid")
	if !ok {
		return badRequest(c, "Invalid contact id")
	}
	contractID, ok := queryID(c, "contract_id")
	if !ok {
		return badRequest(c, "Invalid contract_id")
	}
	excludeUsed := c.QueryBool("exclude_used", false)

	list, err := pc.payments.ListForContact(c.UserContext(), contactID, excludeUsed, contractID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"payments": list})
}

// HandleAssignable reports whether a recurring payment may be attached to
// the given contract.
func (pc *PaymentController) HandleAssignable(c *fiber.Ctx) error {
	paymentID, ok := parseID(c, "rid")
	if !ok {
		return badRequest(c, "Invalid recurring payment id")
	}
	contractID, ok := queryID(c, "contract_id")
	if !ok {
		return badRequest(c, "Invalid contract_id")
	}

	assignable, err := pc.payments.IsAssignable(c.UserContext(), paymentID, contractID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"id": paymentID, "contract_id": contractID, "assignable": assignable})
}
