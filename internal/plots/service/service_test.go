package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"plot-planner/internal/engine/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProbePNG(t *testing.T) {
	res, err := ProbeBytes(encodePNG(t, 180, 120))
	require.NoError(t, err)
	assert.Equal(t, "png", res.Format)
	assert.Equal(t, geometry.ImageDimensions{Width: 180, Height: 120}, res.Dimensions)
}

func TestProbeBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewGray(image.Rect(0, 0, 30, 70))))

	res, err := ProbeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "bmp", res.Format)
	assert.Equal(t, geometry.ImageDimensions{Width: 30, Height: 70}, res.Dimensions)
}

func TestProbeRejectsGarbage(t *testing.T) {
	_, err := ProbeBytes([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestFileStorage(t *testing.T) {
	root := t.TempDir()
	s := NewFileStorage(root)

	assert.Equal(t, "plan.png", ImageName("Site Plan.PNG"))
	assert.Equal(t, "plan.img", ImageName("noext"))

	target := s.ImagePath("v1", ImageName("a.png"))
	assert.Equal(t, filepath.Join(root, "v1", "plan.png"), target)

	data := encodePNG(t, 10, 20)
	require.NoError(t, s.SaveFile("v1", target, data))

	res, err := ProbeFile(target)
	require.NoError(t, err)
	assert.Equal(t, geometry.ImageDimensions{Width: 10, Height: 20}, res.Dimensions)

	require.NoError(t, s.RemoveVenture("v1"))
	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}
