package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/contracts/app/controllers"
	apiv1 "github.com/ManuelReschke/contracts/internal/api/v1"
	"github.com/ManuelReschke/contracts/internal/pkg/contract"
	"github.com/ManuelReschke/contracts/internal/pkg/contractfile"
	"github.com/ManuelReschke/contracts/internal/pkg/middleware"
)

// Dependencies are the services behind the API.
type Dependencies struct {
	Contracts *contract.Service
	Files     *contractfile.Store
	APIKeys   []string
	// RateLimit is the number of requests per minute and client; zero
	// disables the limiter.
	RateLimit int
}

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	handlers := []fiber.Handler{middleware.RequestID(), middleware.RequestCache}
	if h.deps.RateLimit > 0 {
		handlers = append(handlers, limiter.New(limiter.Config{Max: h.deps.RateLimit}))
	}
	api := app.Group("/api", handlers...)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware(h.deps.APIKeys))
	apiServer := apiv1.NewAPIServer(
		controllers.NewContractController(h.deps.Contracts),
		controllers.NewPaymentController(h.deps.Contracts.Payments()),
		controllers.NewContractFileController(h.deps.Files),
	)
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
