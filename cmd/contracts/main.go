package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/contracts/internal/pkg/change"
	"github.com/ManuelReschke/contracts/internal/pkg/contract"
	"github.com/ManuelReschke/contracts/internal/pkg/env"
	"github.com/ManuelReschke/contracts/internal/pkg/metrics"
	"github.com/ManuelReschke/contracts/internal/pkg/middleware"
	"github.com/ManuelReschke/contracts/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	ctx := context.Background()

	backend := env.GetEnv("ENTITY_BACKEND", BackendDatabase)
	gateway, settings := setupBackend(backend)

	deps := change.NewDeps(gateway)
	deps.CreditorID = creditorID()
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := deps.Warm(warmCtx); err != nil {
		// Lookups load lazily on first use when the host is not ready yet.
		log.Printf("Warning: Could not preload contract lookups: %v", err)
	}
	cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	service := contract.NewService(deps, newLocker(), settings, metrics.NewChanges(registry))

	files := setupContractFiles(ctx)

	basePath := findBasePath()
	app := fiber.New(fiber.Config{
		AppName:           "contracts",
		EnablePrintRoutes: env.IsDev(),
		JSONEncoder:       jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:       jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} ${path} | ${locals:requestid}\n",
	}))

	// prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// SWAGGER / OPENAPI
	if basePath != "" {
		openAPICfg := swagger.Config{
			BasePath: "/docs/api/",
			FilePath: basePath + "docs/v1/openapi.yml",
			Path:     "v1",
		}
		app.Use(swagger.New(openAPICfg))
	}

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Contracts: service,
		Files:     files,
		APIKeys:   middleware.ParseAPIKeys(env.GetEnv("CONTRACTS_API_KEYS", "")),
		RateLimit: int(env.GetInt64("API_RATE_LIMIT", 120)),
	})

	log.Printf("Contract service ready (entity backend: %s)", backend)
	return app
}
