package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/engine/codec"
	"plot-planner/internal/engine/geometry"
	"plot-planner/internal/plots/models"
	"plot-planner/internal/plots/repository"
	"plot-planner/internal/plots/service"

	"github.com/gofiber/fiber/v3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrations = "../../../migrations/001_init_plots.sql"

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	dir := t.TempDir()

	db, err := repository.OpenSQLite(filepath.Join(dir, "db", "plots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background(), migrations))

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := NewPlotsHandler(repo, service.NewFileStorage(filepath.Join(dir, "ventures")), geometry.DefaultBox, logger)
	app := fiber.New()
	h.Register(app)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func jsonRequest(method, target string, payload any) *http.Request {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadVenture(t *testing.T, app *fiber.App, name string, w, h int) models.Venture {
	t.Helper()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, w, h))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", name))
	part, err := mw.CreateFormFile("file", "site.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ventures", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, data := do(t, app, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var v models.Venture
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func square(t *testing.T, x0, y0, size float64) codec.Geometry {
	t.Helper()
	g, err := codec.Encode([]geometry.ImagePoint{
		{X: x0, Y: y0}, {X: x0 + size, Y: y0}, {X: x0 + size, Y: y0 + size}, {X: x0, Y: y0 + size},
	})
	require.NoError(t, err)
	return g
}

func savePlot(t *testing.T, app *fiber.App, ventureID string, g codec.Geometry, attrs map[string]any) string {
	t.Helper()
	payload := models.SavePlotPayload{VentureID: ventureID, Geometry: g, Attributes: attrs}
	resp, data := do(t, app, jsonRequest(http.MethodPost, "/ventures/"+ventureID+"/plots", payload))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var res models.SaveResponse
	require.NoError(t, json.Unmarshal(data, &res))
	require.True(t, res.Success)
	require.NotEmpty(t, res.ID)
	return res.ID
}

func TestCreateVenture(t *testing.T) {
	app := newApp(t)

	v := uploadVenture(t, app, "Sunrise Estate", 2000, 1000)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "Sunrise Estate", v.Name)
	assert.Equal(t, geometry.ImageDimensions{Width: 2000, Height: 1000}, v.Dimensions())
	assert.Equal(t, calibration.DefaultRecord(), v.Calibration)

	resp, data := do(t, app, httptest.NewRequest(http.MethodGet, "/ventures", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list models.VentureList
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list.Ventures, 1)
	assert.Equal(t, v.ID, list.Ventures[0].ID)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateVentureValidation(t *testing.T) {
	app := newApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "No File"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/ventures", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, _ := do(t, app, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body.Reset()
	mw = multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Garbage"))
	part, err := mw.CreateFormFile("file", "plan.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/ventures", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, _ = do(t, app, req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUnknownVenture(t *testing.T) {
	app := newApp(t)

	for _, target := range []string{
		"/ventures/missing",
		"/ventures/missing/plots",
		"/ventures/missing/calibration",
		"/ventures/missing/overlay.svg",
	} {
		resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, target)
	}

	g := square(t, 0, 0, 10)
	resp, data := do(t, app, jsonRequest(http.MethodPost, "/ventures/missing/plots",
		models.SavePlotPayload{VentureID: "missing", Geometry: g}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(data), `"success":false`)
}

func TestPlotLifecycle(t *testing.T) {
	app := newApp(t)
	v := uploadVenture(t, app, "Lakeside", 1800, 1200)

	id := savePlot(t, app, v.ID, square(t, 100, 100, 200), map[string]any{"name": "Lot 7", "price": 1200.5})

	resp, data := do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/plots", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list models.PlotList
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list.Plots, 1)
	assert.Equal(t, id, list.Plots[0].ID)
	assert.Equal(t, "Lot 7", list.Plots[0].Attributes["name"])
	assert.Equal(t, 1200.5, list.Plots[0].Attributes["price"])

	resp, data = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/plots/"+id, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p models.Plot
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, codec.TypePolygon, p.Geometry.Type)
	assert.Len(t, p.Geometry.Ring(), 5)
	assert.NoError(t, p.Geometry.Validate())

	resp, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/ventures/"+v.ID+"/plots/"+id, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/ventures/"+v.ID+"/plots/"+id, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/plots/"+id, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSavePlotRejectsBadInput(t *testing.T) {
	app := newApp(t)
	v := uploadVenture(t, app, "Hillside", 400, 300)
	target := "/ventures/" + v.ID + "/plots"

	tooFew := codec.EncodeRing([]geometry.ImagePoint{{X: 0, Y: 0}, {X: 5, Y: 5}}, true)
	cases := map[string]*http.Request{
		"empty body":     httptest.NewRequest(http.MethodPost, target, nil),
		"invalid json":   httptest.NewRequest(http.MethodPost, target, strings.NewReader("{")),
		"too few points": jsonRequest(http.MethodPost, target, models.SavePlotPayload{VentureID: v.ID, Geometry: tooFew}),
		"venture mismatch": jsonRequest(http.MethodPost, target,
			models.SavePlotPayload{VentureID: "other", Geometry: square(t, 0, 0, 10)}),
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			resp, data := do(t, app, req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var res models.SaveResponse
			require.NoError(t, json.Unmarshal(data, &res))
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestPlotAt(t *testing.T) {
	app := newApp(t)
	v := uploadVenture(t, app, "Grid", 1000, 1000)

	first := savePlot(t, app, v.ID, square(t, 0, 0, 100), map[string]any{"name": "A"})
	second := savePlot(t, app, v.ID, square(t, 200, 200, 100), map[string]any{"name": "B"})

	resp, data := do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/plots/at?x=50&y=50", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p models.Plot
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, first, p.ID)

	resp, data = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/plots/at?x=250.5&y=260", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, second, p.ID)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/plots/at?x=150&y=150", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/plots/at?x=abc", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalibrationAndArea(t *testing.T) {
	app := newApp(t)
	v := uploadVenture(t, app, "Meadows", 1200, 800)
	id := savePlot(t, app, v.ID, square(t, 0, 0, 200), nil)

	areaURL := "/ventures/" + v.ID + "/plots/" + id + "/area"

	resp, data := do(t, app, httptest.NewRequest(http.MethodGet, areaURL, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var area models.PlotArea
	require.NoError(t, json.Unmarshal(data, &area))
	assert.InDelta(t, 40000, area.PixelArea, 1e-9)
	// Запись по умолчанию: 100 px = 10 m.
	assert.InDelta(t, 400, area.Area, 1e-9)
	assert.Equal(t, calibration.Meters, area.Unit)
	assert.False(t, area.Calibrated)

	payload := models.SaveCalibrationPayload{
		Origin: geometry.ImagePoint{X: 10, Y: 20},
		Scale:  calibration.Scale{ReferencePixels: 200, ReferenceUnits: 50, Unit: calibration.Feet},
	}
	resp, data = do(t, app, jsonRequest(http.MethodPut, "/ventures/"+v.ID+"/calibration", payload))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/calibration", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec calibration.Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.True(t, rec.Calibrated)
	assert.Equal(t, payload.Origin, rec.Origin)
	assert.Equal(t, payload.Scale, rec.Scale)

	_, data = do(t, app, httptest.NewRequest(http.MethodGet, areaURL, nil))
	require.NoError(t, json.Unmarshal(data, &area))
	assert.InDelta(t, 2500, area.Area, 1e-9)
	assert.Equal(t, calibration.Feet, area.Unit)
	assert.True(t, area.Calibrated)
}

func TestSaveCalibrationValidation(t *testing.T) {
	app := newApp(t)
	v := uploadVenture(t, app, "Ridge", 300, 300)

	bad := models.SaveCalibrationPayload{
		Scale: calibration.Scale{ReferencePixels: 0, ReferenceUnits: 10, Unit: calibration.Meters},
	}
	resp, data := do(t, app, jsonRequest(http.MethodPut, "/ventures/"+v.ID+"/calibration", bad))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), `"success":false`)

	good := models.SaveCalibrationPayload{
		Scale: calibration.Scale{ReferencePixels: 100, ReferenceUnits: 10, Unit: calibration.Meters},
	}
	resp, _ = do(t, app, jsonRequest(http.MethodPut, "/ventures/missing/calibration", good))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOverlay(t *testing.T) {
	app := newApp(t)
	v := uploadVenture(t, app, "Overlay", 2000, 1000)
	id := savePlot(t, app, v.ID, square(t, 0, 0, 1000), map[string]any{"name": "Lot <1>"})

	resp, data := do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/overlay.svg", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))

	svg := string(data)
	assert.Contains(t, svg, `width="900" height="450"`)
	assert.Contains(t, svg, `id="`+id+`"`)
	assert.Contains(t, svg, "Lot &lt;1&gt;")
	assert.Contains(t, svg, "M 0.00 0.00 L 450.00 0.00 L 450.00 450.00 L 0.00 450.00 Z")

	_, data = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/overlay.svg?maxWidth=400&maxHeight=400", nil))
	assert.Contains(t, string(data), `width="400" height="200"`)
}

func TestPreview(t *testing.T) {
	app := newApp(t)
	v := uploadVenture(t, app, "Preview", 2000, 1000)
	savePlot(t, app, v.ID, square(t, 0, 0, 1000), nil)

	resp, data := do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/preview.png?maxWidth=400", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 200), img.Bounds())

	// Участок окрашен поверх чёрного плана, за его пределами план как есть.
	_, _, inside, _ := img.At(100, 100).RGBA()
	_, _, outside, _ := img.At(300, 100).RGBA()
	assert.Greater(t, inside, outside)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/missing/preview.png", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// oversizedPNG: крошечный PNG, чей заголовок заявляет width×height.
func oversizedPNG(t *testing.T, width, height uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()

	// IHDR: 8 байт сигнатуры, 4 длины, 4 типа, затем width и height.
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestPreviewDisplayBoxIsBounded(t *testing.T) {
	app := newApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Huge"))
	part, err := mw.CreateFormFile("file", "huge.png")
	require.NoError(t, err)
	_, err = part.Write(oversizedPNG(t, 100000, 100000))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ventures", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, data := do(t, app, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var v models.Venture
	require.NoError(t, json.Unmarshal(data, &v))
	assert.Equal(t, 100000, v.Width)

	resp, data = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/preview.png?maxWidth=1000000&maxHeight=1000000", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 600, 600), img.Bounds())

	_, data = do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+"/overlay.svg?maxWidth=1000000", nil))
	assert.Contains(t, string(data), `width="600" height="600"`)
}

func TestDisplayBoxRejectsNonPositive(t *testing.T) {
	app := newApp(t)
	v := uploadVenture(t, app, "Box", 200, 100)

	for _, query := range []string{"maxWidth=-5", "maxHeight=0", "maxWidth=0&maxHeight=-1"} {
		for _, route := range []string{"/preview.png?", "/overlay.svg?"} {
			resp, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/ventures/"+v.ID+route+query, nil))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, route+query)
		}
	}
}
