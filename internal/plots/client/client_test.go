package client

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"testing"

	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/engine/capture"
	"plot-planner/internal/engine/codec"
	"plot-planner/internal/engine/geometry"
	"plot-planner/internal/plots/handlers"
	"plot-planner/internal/plots/models"
	"plot-planner/internal/plots/repository"
	"plot-planner/internal/plots/service"

	"github.com/gofiber/fiber/v3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrations = "../../../migrations/001_init_plots.sql"

func startServer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	db, err := repository.OpenSQLite(filepath.Join(dir, "db", "plots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background(), migrations))

	logger, _ := test.NewNullLogger()
	app := fiber.New()
	handlers.NewPlotsHandler(repo, service.NewFileStorage(filepath.Join(dir, "ventures")), geometry.DefaultBox, logger).Register(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String()
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	path := filepath.Join(t.TempDir(), "site.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func newVenture(t *testing.T, c *Client, w, h int) *models.Venture {
	t.Helper()
	v, err := c.CreateVenture(context.Background(), "Green Acres", writePNG(t, w, h))
	require.NoError(t, err)
	return v
}

func TestCaptureRoundTrip(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := New(startServer(t), logger)
	ctx := context.Background()

	v := newVenture(t, c, 2000, 1000)
	assert.Equal(t, geometry.ImageDimensions{Width: 2000, Height: 1000}, v.Dimensions())

	vp := geometry.NewViewport(v.Dimensions(), geometry.DefaultBox)
	require.Equal(t, geometry.DisplaySize{Width: 900, Height: 450}, vp.Display())

	s := capture.NewSession(c, capture.WithLogger(logger))
	s.SwitchVenture(v.ID, vp, nil)

	for _, p := range []geometry.DisplayPoint{{X: 90, Y: 45}, {X: 450, Y: 45}, {X: 450, Y: 225}} {
		require.NoError(t, s.AddVertex(p))
	}
	require.NoError(t, s.Complete())

	res, err := s.Save(ctx, map[string]any{"name": "Lot 1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, capture.Empty, s.State())
	assert.Len(t, s.Existing(), 1)

	plots, err := c.ListPlots(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, plots, 1)
	assert.Equal(t, res.ID, plots[0].ID)
	assert.Equal(t, "Lot 1", plots[0].Attributes["name"])

	want := []geometry.ImagePoint{{X: 200, Y: 100}, {X: 1000, Y: 100}, {X: 1000, Y: 500}}
	require.Len(t, plots[0].Ring, len(want))
	for i, p := range want {
		assert.True(t, plots[0].Ring[i].ApproxEqual(p, 1e-6), "vertex %d: %v", i, plots[0].Ring[i])
	}
}

func TestCaptureSaveRejected(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := New(startServer(t), logger)

	vp := geometry.NewViewport(geometry.ImageDimensions{Width: 800, Height: 600}, geometry.DefaultBox)
	s := capture.NewSession(c, capture.WithLogger(logger))
	s.SwitchVenture("missing", vp, nil)

	for _, p := range []geometry.DisplayPoint{{X: 10, Y: 10}, {X: 100, Y: 10}, {X: 100, Y: 100}} {
		require.NoError(t, s.AddVertex(p))
	}
	require.NoError(t, s.Complete())

	_, err := s.Save(context.Background(), nil)
	var saveErr *capture.SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, "venture not found", saveErr.Message)
	assert.Equal(t, capture.AwaitingDetails, s.State())
	assert.Equal(t, 3, s.Draft().Len())
}

func TestSavePlotInvalidGeometry(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := New(startServer(t), logger)
	v := newVenture(t, c, 400, 400)

	g, err := codec.Encode([]geometry.ImagePoint{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})
	require.NoError(t, err)

	res, err := c.SavePlot(context.Background(), capture.SavePlotRequest{VentureID: v.ID, Geometry: codec.Geometry{Type: "Point"}})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)

	res, err = c.SavePlot(context.Background(), capture.SavePlotRequest{VentureID: v.ID, Geometry: g})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestCalibrationRoundTrip(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := New(startServer(t), logger)
	ctx := context.Background()

	v := newVenture(t, c, 2000, 1000)
	assert.False(t, v.Calibration.Calibrated)

	vp := geometry.NewViewport(v.Dimensions(), geometry.DefaultBox)
	s := calibration.NewSession(c, calibration.WithLogger(logger))
	s.SwitchVenture(v.ID, vp, v.Calibration)

	require.NoError(t, s.Open())
	require.NoError(t, s.Click(geometry.DisplayPoint{X: 45, Y: 45}))
	require.NoError(t, s.Next())
	require.NoError(t, s.Click(geometry.DisplayPoint{X: 0, Y: 0}))
	require.NoError(t, s.Click(geometry.DisplayPoint{X: 135, Y: 0}))
	require.NoError(t, s.SetReferenceDistance("30"))
	require.NoError(t, s.SetUnit(calibration.Feet))
	require.NoError(t, s.Next())

	rec, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300.0, rec.Scale.ReferencePixels)
	_, open := s.Wizard()
	assert.False(t, open)

	got, err := c.GetVenture(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, got.Calibration.Calibrated)
	assert.Equal(t, calibration.Scale{ReferencePixels: 300, ReferenceUnits: 30, Unit: calibration.Feet}, got.Calibration.Scale)
	assert.True(t, got.Calibration.Origin.ApproxEqual(geometry.ImagePoint{X: 100, Y: 100}, 1e-6))
	assert.InDelta(t, 0.1, got.Calibration.UnitsPerPixel(), 1e-12)
}

func TestGetVentureNotFound(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := New(startServer(t), logger)

	_, err := c.GetVenture(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestCreateVentureSendsMultipart(t *testing.T) {
	var (
		contentType string
		fileName    string
		fileSize    int64
		name        string
	)

	app := fiber.New()
	app.Post("/ventures", func(c fiber.Ctx) error {
		contentType = c.Get(fiber.HeaderContentType)
		name = c.FormValue("name")
		fh, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("no file")
		}
		fileName, fileSize = fh.Filename, fh.Size
		return c.Status(fiber.StatusCreated).JSON(models.Venture{ID: "v1", Name: name, Width: 40, Height: 20})
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	t.Cleanup(func() { _ = app.Shutdown() })

	logger, _ := test.NewNullLogger()
	c := New("http://"+ln.Addr().String(), logger)

	path := writePNG(t, 40, 20)
	info, err := os.Stat(path)
	require.NoError(t, err)

	v, err := c.CreateVenture(context.Background(), "Riverside", path)
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)

	assert.Contains(t, contentType, "multipart/form-data")
	assert.Equal(t, "Riverside", name)
	assert.Equal(t, "site.png", fileName)
	assert.Equal(t, info.Size(), fileSize)
}
