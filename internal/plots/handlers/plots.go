package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"

	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/engine/capture"
	"plot-planner/internal/engine/geometry"
	"plot-planner/internal/engine/overlay"
	"plot-planner/internal/plots/models"
	"plot-planner/internal/plots/repository"
	"plot-planner/internal/plots/service"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ============================================================
// Plots Handler
// ============================================================

type PlotsHandler struct {
	repo    *repository.Repository
	storage *service.FileStorage
	box     geometry.Box
	log     logrus.FieldLogger
}

func NewPlotsHandler(repo *repository.Repository, storage *service.FileStorage, box geometry.Box, log logrus.FieldLogger) *PlotsHandler {
	return &PlotsHandler{
		repo:    repo,
		storage: storage,
		box:     box,
		log:     log,
	}
}

// Register вешает маршруты сервиса на роутер.
func (h *PlotsHandler) Register(r fiber.Router) {
	r.Get("/health/ready", h.Ready)

	r.Post("/ventures", h.CreateVenture)
	r.Get("/ventures", h.ListVentures)
	r.Get("/ventures/:id", h.GetVenture)
	r.Get("/ventures/:id/image", h.GetImage)
	r.Get("/ventures/:id/overlay.svg", h.Overlay)
	r.Get("/ventures/:id/preview.png", h.Preview)

	r.Get("/ventures/:id/calibration", h.GetCalibration)
	r.Put("/ventures/:id/calibration", h.SaveCalibration)

	r.Get("/ventures/:id/plots", h.ListPlots)
	r.Post("/ventures/:id/plots", h.SavePlot)
	r.Get("/ventures/:id/plots/at", h.PlotAt)
	r.Get("/ventures/:id/plots/:plotId", h.GetPlot)
	r.Get("/ventures/:id/plots/:plotId/area", h.PlotArea)
	r.Delete("/ventures/:id/plots/:plotId", h.DeletePlot)
}

// Ready проверяет доступность базы.
func (h *PlotsHandler) Ready(c fiber.Ctx) error {
	if err := h.repo.Ping(c.Context()); err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "db unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// ============================================================
// Ventures
// ============================================================

// CreateVenture принимает multipart: name + file (изображение плана).
func (h *PlotsHandler) CreateVenture(c fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "file required in multipart/form-data"})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}

	probe, err := service.ProbeBytes(data)
	if err != nil {
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	id := uuid.NewString()
	imageName := service.ImageName(file.Filename)
	if err := h.storage.SaveFile(id, h.storage.ImagePath(id, imageName), data); err != nil {
		h.log.WithError(err).Error("save venture image")
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store image"})
	}

	v := &models.Venture{
		ID:          id,
		Name:        name,
		ImageFile:   imageName,
		Width:       probe.Dimensions.Width,
		Height:      probe.Dimensions.Height,
		Calibration: calibration.DefaultRecord(),
	}
	if err := h.repo.CreateVenture(c.Context(), v); err != nil {
		_ = h.storage.RemoveVenture(id)
		h.log.WithError(err).Error("create venture")
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create venture"})
	}

	h.log.WithFields(logrus.Fields{
		"venture": id,
		"format":  probe.Format,
		"width":   v.Width,
		"height":  v.Height,
	}).Info("venture created")

	return c.Status(http.StatusCreated).JSON(v)
}

func (h *PlotsHandler) ListVentures(c fiber.Ctx) error {
	list, err := h.repo.ListVentures(c.Context())
	if err != nil {
		return h.internal(c, "list ventures", err)
	}
	return c.JSON(models.VentureList{Ventures: list})
}

func (h *PlotsHandler) GetVenture(c fiber.Ctx) error {
	v, ok, err := h.venture(c)
	if !ok {
		return err
	}
	return c.JSON(v)
}

// GetImage отдаёт исходное изображение плана.
func (h *PlotsHandler) GetImage(c fiber.Ctx) error {
	v, ok, err := h.venture(c)
	if !ok {
		return err
	}
	if v.ImageFile == "" {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "image not found"})
	}
	return c.SendFile(h.storage.ImagePath(v.ID, v.ImageFile))
}

// ============================================================
// Calibration
// ============================================================

func (h *PlotsHandler) GetCalibration(c fiber.Ctx) error {
	v, ok, err := h.venture(c)
	if !ok {
		return err
	}
	return c.JSON(v.Calibration)
}

// SaveCalibration заменяет запись калибровки целиком.
func (h *PlotsHandler) SaveCalibration(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return reject(c, http.StatusBadRequest, "empty body")
	}

	var req models.SaveCalibrationPayload
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return reject(c, http.StatusBadRequest, "invalid json")
	}
	if err := req.Scale.Validate(); err != nil {
		return reject(c, http.StatusBadRequest, err.Error())
	}

	rec := calibration.Record{Origin: req.Origin, Scale: req.Scale, Calibrated: true}
	ventureID := c.Params("id")
	if err := h.repo.UpdateCalibration(c.Context(), ventureID, rec); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reject(c, http.StatusNotFound, "venture not found")
		}
		h.log.WithError(err).WithField("venture", ventureID).Error("update calibration")
		return reject(c, http.StatusInternalServerError, "failed to save calibration")
	}

	h.log.WithField("venture", ventureID).Info("calibration saved")
	return c.JSON(models.SaveResponse{Success: true})
}

// ============================================================
// Plots
// ============================================================

func (h *PlotsHandler) ListPlots(c fiber.Ctx) error {
	v, ok, err := h.venture(c)
	if !ok {
		return err
	}
	plots, err := h.repo.ListPlots(c.Context(), v.ID)
	if err != nil {
		return h.internal(c, "list plots", err)
	}
	return c.JSON(models.PlotList{Plots: plots})
}

func (h *PlotsHandler) GetPlot(c fiber.Ctx) error {
	p, ok, err := h.plot(c)
	if !ok {
		return err
	}
	return c.JSON(p)
}

// SavePlot принимает {ventureId, geometry, ...attributes}.
func (h *PlotsHandler) SavePlot(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return reject(c, http.StatusBadRequest, "empty body")
	}

	var req models.SavePlotPayload
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return reject(c, http.StatusBadRequest, "invalid json")
	}

	ventureID := c.Params("id")
	if req.VentureID != "" && req.VentureID != ventureID {
		return reject(c, http.StatusBadRequest, "ventureId does not match path")
	}
	if err := req.Geometry.Validate(); err != nil {
		return reject(c, http.StatusBadRequest, err.Error())
	}

	if _, err := h.repo.GetVenture(c.Context(), ventureID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reject(c, http.StatusNotFound, "venture not found")
		}
		return h.internal(c, "get venture", err)
	}

	p := &models.Plot{
		ID:         uuid.NewString(),
		VentureID:  ventureID,
		Geometry:   req.Geometry,
		Attributes: req.Attributes,
	}
	if err := h.repo.CreatePlot(c.Context(), p); err != nil {
		h.log.WithError(err).WithField("venture", ventureID).Error("create plot")
		return reject(c, http.StatusInternalServerError, "failed to save plot")
	}

	h.log.WithFields(logrus.Fields{"venture": ventureID, "plot": p.ID}).Info("plot saved")
	return c.Status(http.StatusCreated).JSON(models.SaveResponse{Success: true, ID: p.ID})
}

func (h *PlotsHandler) DeletePlot(c fiber.Ctx) error {
	err := h.repo.DeletePlot(c.Context(), c.Params("id"), c.Params("plotId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reject(c, http.StatusNotFound, "plot not found")
		}
		return h.internal(c, "delete plot", err)
	}
	return c.JSON(models.SaveResponse{Success: true})
}

// PlotArea: площадь в пикселях изображения и в единицах калибровки.
func (h *PlotsHandler) PlotArea(c fiber.Ctx) error {
	v, ok, err := h.venture(c)
	if !ok {
		return err
	}
	p, found, err := h.plot(c)
	if !found {
		return err
	}

	pixels, err := p.Geometry.PixelArea()
	if err != nil {
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(models.PlotArea{
		PlotID:     p.ID,
		PixelArea:  pixels,
		Area:       v.Calibration.AreaToUnits(pixels),
		Unit:       v.Calibration.Unit(),
		Calibrated: v.Calibration.Calibrated,
	})
}

// PlotAt ищет участок под точкой изображения: ?x=&y=.
func (h *PlotsHandler) PlotAt(c fiber.Ctx) error {
	x, errX := strconv.ParseFloat(c.Query("x"), 64)
	y, errY := strconv.ParseFloat(c.Query("y"), 64)
	if errX != nil || errY != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "x and y query parameters required"})
	}

	v, ok, err := h.venture(c)
	if !ok {
		return err
	}
	saved, ok, err := h.savedPlots(c, v.ID)
	if !ok {
		return err
	}

	hit, ok := overlay.NewIndex(saved).At(geometry.ImagePoint{X: x, Y: y})
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "no plot at point"})
	}
	p, err := h.repo.GetPlot(c.Context(), v.ID, hit.ID)
	if err != nil {
		return h.internal(c, "get plot", err)
	}
	return c.JSON(p)
}

// Overlay рисует сохранённые участки в размере области отображения
// (?maxWidth=&maxHeight=, по умолчанию из конфигурации).
func (h *PlotsHandler) Overlay(c fiber.Ctx) error {
	_, scene, ok, err := h.scene(c)
	if !ok {
		return err
	}
	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(overlay.RenderSVG(scene))
}

// Preview отдаёт PNG: уменьшенный план с наложенным оверлеем.
func (h *PlotsHandler) Preview(c fiber.Ctx) error {
	v, scene, ok, err := h.scene(c)
	if !ok {
		return err
	}

	var base image.Image
	if v.ImageFile != "" {
		base, err = service.DecodeImage(h.storage.ImagePath(v.ID, v.ImageFile))
		if err != nil {
			h.log.WithError(err).WithField("venture_id", v.ID).Warn("preview without base image")
		}
	}

	img, err := service.RenderPreview(base, overlay.RenderSVG(scene), scene.Display)
	if err != nil {
		return h.internal(c, "render preview", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return h.internal(c, "encode preview", err)
	}
	c.Set("Content-Type", "image/png")
	return c.Send(buf.Bytes())
}

// scene собирает сохранённые участки и маркеры калибровки в размере отображения.
func (h *PlotsHandler) scene(c fiber.Ctx) (*models.Venture, overlay.Scene, bool, error) {
	box, ok, err := h.displayBox(c)
	if !ok {
		return nil, overlay.Scene{}, false, err
	}
	v, ok, err := h.venture(c)
	if !ok {
		return nil, overlay.Scene{}, false, err
	}
	saved, ok, err := h.savedPlots(c, v.ID)
	if !ok {
		return nil, overlay.Scene{}, false, err
	}

	vp := geometry.NewViewport(v.Dimensions(), box)

	return v, overlay.Scene{
		Display: vp.Display(),
		Plots:   overlay.SavedPolygons(saved, vp),
		Markers: overlay.RecordMarkers(v.Calibration, vp),
	}, true, nil
}

// ============================================================
// Helpers
// ============================================================

// displayBox читает maxWidth/maxHeight. Значения больше настроенной области
// обрезаются до неё; не положительные отклоняются.
func (h *PlotsHandler) displayBox(c fiber.Ctx) (geometry.Box, bool, error) {
	box := geometry.Box{
		MaxWidth:  fiber.Query[int](c, "maxWidth", h.box.MaxWidth),
		MaxHeight: fiber.Query[int](c, "maxHeight", h.box.MaxHeight),
	}
	if box.MaxWidth <= 0 || box.MaxHeight <= 0 {
		return geometry.Box{}, false, reject(c, http.StatusBadRequest, "maxWidth and maxHeight must be positive")
	}
	box.MaxWidth = min(box.MaxWidth, h.box.MaxWidth)
	box.MaxHeight = min(box.MaxHeight, h.box.MaxHeight)
	return box, true, nil
}

// Хелперы поиска: при ok == false ответ уже записан, err: результат записи.

func (h *PlotsHandler) venture(c fiber.Ctx) (*models.Venture, bool, error) {
	v, err := h.repo.GetVenture(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "venture not found"})
		}
		return nil, false, h.internal(c, "get venture", err)
	}
	return v, true, nil
}

func (h *PlotsHandler) plot(c fiber.Ctx) (*models.Plot, bool, error) {
	p, err := h.repo.GetPlot(c.Context(), c.Params("id"), c.Params("plotId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "plot not found"})
		}
		return nil, false, h.internal(c, "get plot", err)
	}
	return p, true, nil
}

// savedPlots декодирует кольца; битые записи пропускаются с предупреждением.
func (h *PlotsHandler) savedPlots(c fiber.Ctx, ventureID string) ([]capture.SavedPlot, bool, error) {
	plots, err := h.repo.ListPlots(c.Context(), ventureID)
	if err != nil {
		return nil, false, h.internal(c, "list plots", err)
	}

	out := make([]capture.SavedPlot, 0, len(plots))
	for _, p := range plots {
		sp, err := capture.DecodePlot(p.ID, p.Geometry, p.Attributes)
		if err != nil {
			h.log.WithError(err).WithField("venture", ventureID).Warn("skip plot")
			continue
		}
		out = append(out, sp)
	}
	return out, true, nil
}

func (h *PlotsHandler) internal(c fiber.Ctx, op string, err error) error {
	h.log.WithError(err).Error(op)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

func reject(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(models.SaveResponse{Success: false, Message: message})
}
