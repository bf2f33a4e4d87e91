package handlers

import (
	"bytes"
	"io"
	"net/http"

	"plot-planner/internal/converter/mapper"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// ============================================================
// Convert Handler
// ============================================================

type ConverterHandler struct {
	log logrus.FieldLogger
}

func NewConverterHandler(log logrus.FieldLogger) *ConverterHandler {
	return &ConverterHandler{log: log}
}

// ConvertSVG превращает размеченный SVG плана в список участков.
func (h *ConverterHandler) ConvertSVG(c fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		h.log.WithError(err).Debug("convert: no file")
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "file required in multipart/form-data",
		})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to open file",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read file",
		})
	}

	doc, err := mapper.New().Convert(bytes.NewReader(data))
	if err != nil {
		h.log.WithError(err).WithField("file", file.Filename).Warn("convert: failed")
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.log.WithFields(logrus.Fields{
		"file":    file.Filename,
		"plots":   len(doc.Plots),
		"skipped": len(doc.Skipped),
	}).Info("convert: done")

	return c.JSON(doc)
}
