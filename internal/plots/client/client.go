package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/engine/capture"
	"plot-planner/internal/plots/models"

	"github.com/gofiber/fiber/v3/client"
	"github.com/sirupsen/logrus"
)

// ============================================================
// Plots Service Client
// ============================================================

var ErrUnexpectedStatus = errors.New("plots: unexpected response status")

// Client ходит в сервис участков. Реализует capture.PlotStore и calibration.Store.
type Client struct {
	http *client.Client
	log  logrus.FieldLogger
}

var (
	_ capture.PlotStore = (*Client)(nil)
	_ calibration.Store = (*Client)(nil)
)

func New(baseURL string, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	hc := client.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15 * time.Second)
	return &Client{http: hc, log: log}
}

// SavePlot отправляет {ventureId, geometry, ...attributes}.
// Отказ сервиса ({success:false}) возвращается результатом, а не ошибкой.
func (c *Client) SavePlot(ctx context.Context, req capture.SavePlotRequest) (capture.SavePlotResult, error) {
	resp, err := c.http.Post("/ventures/:id/plots", client.Config{
		Ctx:       ctx,
		PathParam: map[string]string{"id": req.VentureID},
		Body: models.SavePlotPayload{
			VentureID:  req.VentureID,
			Geometry:   req.Geometry,
			Attributes: req.Attributes,
		},
	})
	if err != nil {
		return capture.SavePlotResult{}, fmt.Errorf("save plot: %w", err)
	}
	defer resp.Close()

	var out models.SaveResponse
	if err := resp.JSON(&out); err != nil {
		return capture.SavePlotResult{}, fmt.Errorf("save plot: status %d: %w", resp.StatusCode(), err)
	}

	c.log.WithFields(logrus.Fields{
		"venture": req.VentureID,
		"status":  resp.StatusCode(),
		"success": out.Success,
	}).Debug("plots: save plot")

	return capture.SavePlotResult{Success: out.Success, ID: out.ID, Message: out.Message}, nil
}

// SaveCalibration заменяет запись калибровки плана.
func (c *Client) SaveCalibration(ctx context.Context, ventureID string, rec calibration.Record) (calibration.SaveResult, error) {
	resp, err := c.http.Put("/ventures/:id/calibration", client.Config{
		Ctx:       ctx,
		PathParam: map[string]string{"id": ventureID},
		Body:      models.SaveCalibrationPayload{Origin: rec.Origin, Scale: rec.Scale},
	})
	if err != nil {
		return calibration.SaveResult{}, fmt.Errorf("save calibration: %w", err)
	}
	defer resp.Close()

	var out models.SaveResponse
	if err := resp.JSON(&out); err != nil {
		return calibration.SaveResult{}, fmt.Errorf("save calibration: status %d: %w", resp.StatusCode(), err)
	}
	return calibration.SaveResult{Success: out.Success, Message: out.Message}, nil
}

func (c *Client) GetVenture(ctx context.Context, ventureID string) (*models.Venture, error) {
	resp, err := c.http.Get("/ventures/:id", client.Config{
		Ctx:       ctx,
		PathParam: map[string]string{"id": ventureID},
	})
	if err != nil {
		return nil, fmt.Errorf("get venture: %w", err)
	}
	defer resp.Close()

	if err := expect(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("get venture %s: %w", ventureID, err)
	}

	var v models.Venture
	if err := resp.JSON(&v); err != nil {
		return nil, fmt.Errorf("get venture: %w", err)
	}
	return &v, nil
}

// ListPlots возвращает участки плана, готовые к показу.
func (c *Client) ListPlots(ctx context.Context, ventureID string) ([]capture.SavedPlot, error) {
	resp, err := c.http.Get("/ventures/:id/plots", client.Config{
		Ctx:       ctx,
		PathParam: map[string]string{"id": ventureID},
	})
	if err != nil {
		return nil, fmt.Errorf("list plots: %w", err)
	}
	defer resp.Close()

	if err := expect(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("list plots %s: %w", ventureID, err)
	}

	var list models.PlotList
	if err := resp.JSON(&list); err != nil {
		return nil, fmt.Errorf("list plots: %w", err)
	}

	out := make([]capture.SavedPlot, 0, len(list.Plots))
	for _, p := range list.Plots {
		sp, err := capture.DecodePlot(p.ID, p.Geometry, p.Attributes)
		if err != nil {
			c.log.WithError(err).WithField("venture", ventureID).Warn("plots: skip plot")
			continue
		}
		out = append(out, sp)
	}
	return out, nil
}

// CreateVenture загружает изображение плана с диска.
func (c *Client) CreateVenture(ctx context.Context, name, imagePath string) (*models.Venture, error) {
	file := client.AcquireFile(
		client.SetFileFieldName("file"),
		client.SetFileName(filepath.Base(imagePath)),
		client.SetFilePath(imagePath),
	)

	// client.Config не умеет FormData и File одновременно: собираем multipart явно.
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData("name", name).
		AddFiles(file).
		Post("/ventures")
	if err != nil {
		return nil, fmt.Errorf("create venture: %w", err)
	}
	defer resp.Close()

	if err := expect(resp, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("create venture: %w", err)
	}

	var v models.Venture
	if err := resp.JSON(&v); err != nil {
		return nil, fmt.Errorf("create venture: %w", err)
	}
	return &v, nil
}

func expect(resp *client.Response, status int) error {
	if resp.StatusCode() == status {
		return nil
	}
	return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
}
