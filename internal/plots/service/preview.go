package service

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strings"

	"plot-planner/internal/engine/geometry"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

// ============================================================
// Preview
// ============================================================

// RenderPreview масштабирует план до размера отображения и кладёт поверх
// растеризованный SVG-оверлей. base может быть nil: тогда фон белый.
func RenderPreview(base image.Image, overlaySVG string, display geometry.DisplaySize) (*image.RGBA, error) {
	if display.Empty() {
		return nil, fmt.Errorf("preview: empty display size")
	}
	w, h := display.Width, display.Height
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))

	if base != nil {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), base, base.Bounds(), draw.Src, nil)
	} else {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(overlaySVG), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("preview: parse overlay: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	scanner := rasterx.NewScannerGV(w, h, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	return canvas, nil
}

// MaxPreviewPixels ограничивает размер плана, который декодируется целиком.
const MaxPreviewPixels = 64 << 20

// DecodeImage читает изображение плана целиком (для превью). Размер сверяется
// по заголовку до декодирования.
func DecodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPreviewPixels {
		return nil, fmt.Errorf("%w: %dx%d is too large to decode", ErrUnsupportedImage, cfg.Width, cfg.Height)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}
