package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/sirupsen/logrus"
)

// ============================================================
// Logger Middleware
// ============================================================

// Logger возвращает настроенный middleware для логирования запросов.
// Запись уходит в структурированный лог сервиса, а не в stdout.
func Logger(log logrus.FieldLogger) fiber.Handler {
	return logger.New(logger.Config{
		// ${latency} в формате включает замер Start/Stop.
		Format: "${status} - ${latency} ${method} ${path}\n",
		LoggerFunc: func(c fiber.Ctx, data *logger.Data, _ *logger.Config) error {
			status := c.Response().StatusCode()
			entry := log.WithFields(logrus.Fields{
				"method":       c.Method(),
				"path":         c.Path(),
				"status":       status,
				"latency":      data.Stop.Sub(data.Start).String(),
				"content_type": c.Get(fiber.HeaderContentType),
			})

			switch {
			case data.ChainErr != nil:
				entry.WithError(data.ChainErr).Warn("request failed")
			case status >= fiber.StatusInternalServerError:
				entry.Error("request")
			default:
				entry.Debug("request")
			}
			return nil
		},
	})
}
