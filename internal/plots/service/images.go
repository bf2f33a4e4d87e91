package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"plot-planner/internal/engine/geometry"
)

// ============================================================
// Image Probe
// ============================================================

var ErrUnsupportedImage = errors.New("unsupported or corrupt image")

// ProbeResult: формат и собственный размер изображения.
type ProbeResult struct {
	Format     string
	Dimensions geometry.ImageDimensions
}

// Probe читает только заголовок изображения.
func Probe(r io.Reader) (ProbeResult, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	dims := geometry.ImageDimensions{Width: cfg.Width, Height: cfg.Height}
	if !dims.Valid() {
		return ProbeResult{}, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	return ProbeResult{Format: format, Dimensions: dims}, nil
}

func ProbeBytes(data []byte) (ProbeResult, error) {
	return Probe(bytes.NewReader(data))
}

// ProbeFile: размер изображения на диске.
func ProbeFile(path string) (ProbeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ProbeResult{}, err
	}
	defer f.Close()
	return Probe(f)
}
