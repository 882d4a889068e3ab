package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/contracts/app/controllers"
)

// Pong is the ping response.
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface lists the v1 operations.
type ServerInterface interface {
	GetPing(c *fiber.Ctx) error
	PostContractModify(c *fiber.Ctx) error
	PostContractProcess(c *fiber.Ctx) error
	GetContractModificationCounts(c *fiber.Ctx) error
	GetContractChanges(c *fiber.Ctx) error
	GetContractPayment(c *fiber.Ctx) error
	GetContactRecurringPayments(c *fiber.Ctx) error
	GetRecurringPaymentAssignable(c *fiber.Ctx) error
	GetContractFile(c *fiber.Ctx) error
}

// RegisterHandlers installs the v1 routes on router.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get("/ping", si.GetPing)

	router.Post("/contracts/:id/modify", si.PostContractModify)
	router.Post("/contracts/:id/process", si.PostContractProcess)
	router.Get("/contracts/:id/modifications/counts", si.GetContractModificationCounts)
	router.Get("/contracts/:id/changes", si.GetContractChanges)
	router.Get("/contracts/:id/payment", si.GetContractPayment)

	router.Get("/contacts/:cid/recurring-payments", si.GetContactRecurringPayments)
	router.Get("/recurring-payments/:rid/assignable", si.GetRecurringPaymentAssignable)

	router.Get("/contract-files/:name", si.GetContractFile)
}

// APIServer implements the ServerInterface
type APIServer struct {
	contracts *controllers.ContractController
	payments  *controllers.PaymentController
	files     *controllers.ContractFileController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(contracts *controllers.ContractController, payments *controllers.PaymentController, files *controllers.ContractFileController) *APIServer {
	return &APIServer{contracts: contracts, payments: payments, files: files}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (s *APIServer) PostContractModify(c *fiber.Ctx) error {
	return s.contracts.HandleModify(c)
}

func (s *APIServer) PostContractProcess(c *fiber.Ctx) error {
	return s.contracts.HandleProcess(c)
}

func (s *APIServer) GetContractModificationCounts(c *fiber.Ctx) error {
	return s.contracts.HandleModificationCounts(c)
}

func (s *APIServer) GetContractChanges(c *fiber.Ctx) error {
	return s.contracts.HandleChanges(c)
}

func (s *APIServer) GetContractPayment(c *fiber.Ctx) error {
	return s.contracts.HandleCurrentPayment(c)
}

func (s *APIServer) GetContactRecurringPayments(c *fiber.Ctx) error {
	return s.payments.HandleListForContact(c)
}

func (s *APIServer) GetRecurringPaymentAssignable(c *fiber.Ctx) error {
	return s.payments.HandleAssignable(c)
}

// GetContractFile streams a scanned contract document.
func (s *APIServer) GetContractFile(c *fiber.Ctx) error {
	return s.files.HandleDownload(c)
}
