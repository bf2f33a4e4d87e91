package digitize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/engine/capture"
	"plot-planner/internal/engine/geometry"
	"plot-planner/internal/engine/overlay"
	"plot-planner/internal/plots/client"
	"plot-planner/internal/plots/models"

	"github.com/sirupsen/logrus"
)

// ============================================================
// Digitizer
// ============================================================
//
// Проигрывает клики оператора (в координатах отображения) через те же
// сессии, что и интерактивный клиент, и сохраняет результат в сервисе участков.

var (
	ErrNoVenture        = errors.New("digitize: venture id or image to upload is required")
	ErrCalibrationInput = errors.New(`digitize: calibration must be "ox,oy;x0,y0;x1,y1"`)
)

type Options struct {
	VentureID   string
	Upload      string // путь к изображению нового плана
	VentureName string
	Box         geometry.Box

	// Калибровка: origin и два конца эталонного отрезка.
	Calibrate []geometry.DisplayPoint
	Distance  string
	Unit      calibration.Unit

	Clicks   []geometry.DisplayPoint
	PlotName string

	OverlayPath string
}

// Report: итог прогона.
type Report struct {
	Venture     models.Venture
	Display     geometry.DisplaySize
	Calibration calibration.Record
	PlotID      string
	PixelArea   float64
	Area        float64
	Unit        calibration.Unit
}

type Runner struct {
	client *client.Client
	log    logrus.FieldLogger
}

func NewRunner(c *client.Client, log logrus.FieldLogger) *Runner {
	return &Runner{client: c, log: log}
}

func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	v, err := r.loadVenture(ctx, opts)
	if err != nil {
		return nil, err
	}

	vp := geometry.NewViewport(v.Dimensions(), opts.Box)
	report := &Report{
		Venture:     *v,
		Display:     vp.Display(),
		Calibration: v.Calibration,
	}

	cal := calibration.NewSession(r.client, calibration.WithLogger(r.log))
	cal.SwitchVenture(v.ID, vp, v.Calibration)

	if len(opts.Calibrate) > 0 {
		rec, err := r.calibrate(ctx, cal, opts)
		if err != nil {
			return nil, err
		}
		report.Calibration = rec
	}

	existing, err := r.client.ListPlots(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	cs := capture.NewSession(r.client, capture.WithLogger(r.log))
	cs.SwitchVenture(v.ID, vp, existing)

	if len(opts.Clicks) > 0 {
		if err := r.capture(ctx, cs, opts, report); err != nil {
			return nil, err
		}
	}

	if opts.OverlayPath != "" {
		svg := overlay.RenderSVG(overlay.Build(cs, cal))
		if err := os.WriteFile(opts.OverlayPath, []byte(svg), 0o644); err != nil {
			return nil, fmt.Errorf("write overlay: %w", err)
		}
	}

	return report, nil
}

func (r *Runner) loadVenture(ctx context.Context, opts Options) (*models.Venture, error) {
	if opts.Upload != "" {
		name := opts.VentureName
		if name == "" {
			name = "Untitled venture"
		}
		return r.client.CreateVenture(ctx, name, opts.Upload)
	}
	if opts.VentureID == "" {
		return nil, ErrNoVenture
	}
	return r.client.GetVenture(ctx, opts.VentureID)
}

func (r *Runner) calibrate(ctx context.Context, cal *calibration.Session, opts Options) (calibration.Record, error) {
	if len(opts.Calibrate) != 3 {
		return calibration.Record{}, ErrCalibrationInput
	}

	steps := []func() error{
		cal.Open,
		func() error { return cal.Click(opts.Calibrate[0]) },
		cal.Next,
		func() error { return cal.Click(opts.Calibrate[1]) },
		func() error { return cal.Click(opts.Calibrate[2]) },
		func() error { return cal.SetReferenceDistance(opts.Distance) },
		func() error { return cal.SetUnit(opts.Unit) },
		cal.Next,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return calibration.Record{}, err
		}
	}

	if w, ok := cal.Wizard(); ok {
		r.log.WithField("summary", w.Summary()).Debug("digitize: calibration summary")
	}
	return cal.Save(ctx)
}

func (r *Runner) capture(ctx context.Context, cs *capture.Session, opts Options, report *Report) error {
	for _, p := range opts.Clicks {
		if err := cs.AddVertex(p); err != nil {
			return err
		}
	}
	if err := cs.Complete(); err != nil {
		return err
	}

	g, err := cs.Draft().Geometry(cs.Viewport().Transform())
	if err != nil {
		return err
	}
	pixels, err := g.PixelArea()
	if err != nil {
		return err
	}

	attrs := map[string]any{}
	if opts.PlotName != "" {
		attrs["name"] = opts.PlotName
	}
	res, err := cs.Save(ctx, attrs)
	if err != nil {
		return err
	}

	report.PlotID = res.ID
	report.PixelArea = pixels
	report.Area = report.Calibration.AreaToUnits(pixels)
	report.Unit = report.Calibration.Unit()
	return nil
}

// ============================================================
// Flag parsing
// ============================================================

// ParsePoint: "x,y".
func ParsePoint(s string) (geometry.DisplayPoint, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return geometry.DisplayPoint{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geometry.DisplayPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geometry.DisplayPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	return geometry.DisplayPoint{X: x, Y: y}, nil
}

// ParseClicks: точки через пробел: "x,y x,y ...".
func ParseClicks(s string) ([]geometry.DisplayPoint, error) {
	var out []geometry.DisplayPoint
	for _, field := range strings.Fields(s) {
		p, err := ParsePoint(field)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseCalibration: "ox,oy;x0,y0;x1,y1".
func ParseCalibration(s string) ([]geometry.DisplayPoint, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	if len(parts) != 3 {
		return nil, ErrCalibrationInput
	}
	out := make([]geometry.DisplayPoint, 0, 3)
	for _, part := range parts {
		p, err := ParsePoint(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCalibrationInput, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseBox: "WxH".
func ParseBox(s string) (geometry.Box, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return geometry.Box{}, fmt.Errorf("display %q: want WxH", s)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return geometry.Box{}, fmt.Errorf("display %q: want positive WxH", s)
	}
	return geometry.Box{MaxWidth: width, MaxHeight: height}, nil
}
