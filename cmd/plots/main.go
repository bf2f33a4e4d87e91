package main

import (
	"context"
	"fmt"
	"time"

	"plot-planner/internal/common/config"
	"plot-planner/internal/common/logging"
	"plot-planner/internal/common/middleware"
	"plot-planner/internal/engine/geometry"
	"plot-planner/internal/plots/handlers"
	"plot-planner/internal/plots/repository"
	"plot-planner/internal/plots/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/sirupsen/logrus"
)

// ============================================================
// Plot Service
// ============================================================

func main() {
	cfg := config.Load()
	cfg.Port = cfg.PortOr("3002")

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	log := logging.Service(logger, "plots")

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background(), cfg.MigrationsPath); err != nil {
		log.WithError(err).Fatal("init db")
	}

	fileStorage := service.NewFileStorage(cfg.StorageRoot)
	box := geometry.Box{MaxWidth: cfg.MaxDisplayWidth, MaxHeight: cfg.MaxDisplayHeight}
	plotsHandler := handlers.NewPlotsHandler(repo, fileStorage, box, log)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Plot Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger(log))

	// ============================================================
	// Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	plotsHandler.Register(app)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.WithFields(logrus.Fields{
		"addr": addr,
		"env":  cfg.Environment,
		"db":   cfg.DBPath,
	}).Info("starting plot service")

	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: cfg.IsProduction()}); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
