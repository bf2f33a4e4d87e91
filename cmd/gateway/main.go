package main

import (
	"fmt"
	"time"

	"plot-planner/internal/common/config"
	"plot-planner/internal/common/logging"
	"plot-planner/internal/common/middleware"
	"plot-planner/internal/gateway/handlers"
	"plot-planner/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/sirupsen/logrus"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	log := logging.Service(logger, "gateway")

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Plot Planner Gateway",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.Logger(log))

	// ============================================================
	// Health Check Routes
	// ============================================================

	readiness := handlers.NewReadiness(map[string]string{
		"plots":     cfg.PlotsURL,
		"converter": cfg.ConverterURL,
	})

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", readiness.ReadinessProbe)
	app.Get("/health/startup", handlers.StartupProbe)

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec("docs/plot-planner.openapi.yaml"))

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Plot Planner API v1",
			"status":  "ok",
		})
	})

	p := proxy.New(log)

	// Converter Service
	api.Post("/convert", p.To(cfg.ConverterURL+"/convert"))
	api.Post("/render", p.To(cfg.ConverterURL+"/render"))

	// Plot Service
	ventures := p.Mount(cfg.PlotsURL, "/ventures")
	api.All("/ventures", ventures)
	api.All("/ventures/*", ventures)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.WithFields(logrus.Fields{
		"addr":      addr,
		"env":       cfg.Environment,
		"plots":     cfg.PlotsURL,
		"converter": cfg.ConverterURL,
	}).Info("starting gateway")

	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: cfg.IsProduction()}); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
