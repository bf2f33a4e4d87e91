package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"plot-planner/internal/common/config"
	"plot-planner/internal/common/logging"
	"plot-planner/internal/digitize"
	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/plots/client"

	"github.com/sirupsen/logrus"
)

// ============================================================
// Digitize CLI
// ============================================================
//
// Пример:
//
//	digitize -upload site.png -venture-name Sunrise \
//	  -calibrate "45,45;0,0;135,0" -distance 30 -unit m \
//	  -clicks "90,45 450,45 450,225" -name "Lot 1" -overlay out.svg

func main() {
	cfg := config.Load()

	var (
		plotsURL    = flag.String("plots", cfg.PlotsURL, "plot service base URL")
		ventureID   = flag.String("venture", "", "existing venture id")
		upload      = flag.String("upload", "", "site plan image to upload as a new venture")
		ventureName = flag.String("venture-name", "", "name for the uploaded venture")
		display     = flag.String("display", fmt.Sprintf("%dx%d", cfg.MaxDisplayWidth, cfg.MaxDisplayHeight), "display box WxH")
		calibrate   = flag.String("calibrate", "", `origin and scale endpoints in display space: "ox,oy;x0,y0;x1,y1"`)
		distance    = flag.String("distance", "", "real-world length of the scale line")
		unit        = flag.String("unit", string(calibration.Meters), "scale unit: m, ft or yd")
		clicks      = flag.String("clicks", "", `polygon vertices in display space: "x,y x,y ..."`)
		name        = flag.String("name", "", "plot name attribute")
		overlayPath = flag.String("overlay", "", "write the resulting SVG overlay to this file")
		timeout     = flag.Duration("timeout", 30*time.Second, "overall timeout")
	)
	flag.Parse()

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	log := logging.Service(logger, "digitize")

	box, err := digitize.ParseBox(*display)
	if err != nil {
		log.WithError(err).Fatal("bad -display")
	}
	calPoints, err := digitize.ParseCalibration(*calibrate)
	if err != nil {
		log.WithError(err).Fatal("bad -calibrate")
	}
	u, err := calibration.ParseUnit(*unit)
	if err != nil {
		log.WithError(err).Fatal("bad -unit")
	}
	points, err := digitize.ParseClicks(*clicks)
	if err != nil {
		log.WithError(err).Fatal("bad -clicks")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	runner := digitize.NewRunner(client.New(*plotsURL, log), log)
	report, err := runner.Run(ctx, digitize.Options{
		VentureID:   *ventureID,
		Upload:      *upload,
		VentureName: *ventureName,
		Box:         box,
		Calibrate:   calPoints,
		Distance:    *distance,
		Unit:        u,
		Clicks:      points,
		PlotName:    *name,
		OverlayPath: *overlayPath,
	})
	if err != nil {
		log.WithError(err).Fatal("digitize failed")
	}

	log.WithFields(logrus.Fields{
		"venture": report.Venture.ID,
		"display": fmt.Sprintf("%dx%d", report.Display.Width, report.Display.Height),
	}).Info("done")

	fmt.Printf("venture   %s (%s) %dx%d\n", report.Venture.ID, report.Venture.Name, report.Venture.Width, report.Venture.Height)
	if report.Calibration.Calibrated {
		s := report.Calibration.Scale
		fmt.Printf("scale     %g px = %g %s\n", s.ReferencePixels, s.ReferenceUnits, s.Unit)
	}
	if report.PlotID != "" {
		fmt.Printf("plot      %s\n", report.PlotID)
		fmt.Printf("area      %.2f px² = %.2f %s²\n", report.PixelArea, report.Area, report.Unit)
	}
}
