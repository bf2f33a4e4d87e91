package main

import (
	"fmt"
	"time"

	"plot-planner/internal/common/config"
	"plot-planner/internal/common/logging"
	"plot-planner/internal/common/middleware"
	"plot-planner/internal/converter/handlers"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Converter Service
// ============================================================

func main() {
	cfg := config.Load()
	cfg.Port = cfg.PortOr("3001")

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	log := logging.Service(logger, "converter")

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Converter Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger(log))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Converter Routes
	// ============================================================

	converter := handlers.NewConverterHandler(log)
	app.Post("/convert", converter.ConvertSVG)
	app.Post("/render", converter.RenderSVG)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.WithField("addr", addr).WithField("env", cfg.Environment).Info("starting converter service")

	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: cfg.IsProduction()}); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
