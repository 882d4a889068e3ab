package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router installs a group of routes.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter installs the API routes served by deps.
func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
