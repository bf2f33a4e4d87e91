package handlers

import (
	"encoding/json"
	"net/http"

	"plot-planner/internal/converter/mapper"
	"plot-planner/internal/converter/models"
	"plot-planner/internal/engine/geometry"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Render Handler
// ============================================================

// RenderSVG рисует {width, height, plots}; ?maxWidth=&maxHeight= ограничивают размер.
func (h *ConverterHandler) RenderSVG(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "body required",
		})
	}

	var doc models.PlotDocument
	if err := json.Unmarshal(c.Body(), &doc); err != nil {
		h.log.WithError(err).Debug("render: decode")
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON payload",
		})
	}

	box := geometry.Box{
		MaxWidth:  fiber.Query[int](c, "maxWidth"),
		MaxHeight: fiber.Query[int](c, "maxHeight"),
	}

	svg, err := mapper.NewRenderer(box).Render(&doc)
	if err != nil {
		h.log.WithError(err).Warn("render: failed")
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}
