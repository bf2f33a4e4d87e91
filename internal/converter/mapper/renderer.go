package mapper

import (
	"errors"
	"fmt"
	"math"

	"plot-planner/internal/converter/models"
	"plot-planner/internal/engine/capture"
	"plot-planner/internal/engine/geometry"
	"plot-planner/internal/engine/overlay"
)

// ============================================================
// Renderer
// ============================================================

var ErrEmptyDocument = errors.New("document has no size")

type Renderer struct {
	box geometry.Box
}

// NewRenderer: box ограничивает размер картинки; нулевой box рисует в исходном размере.
func NewRenderer(box geometry.Box) *Renderer {
	return &Renderer{box: box}
}

// Render рисует участки документа тем же рендером, что и оверлей плана.
func (r *Renderer) Render(doc *models.PlotDocument) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document is nil")
	}

	dims := geometry.ImageDimensions{
		Width:  int(math.Ceil(doc.Width)),
		Height: int(math.Ceil(doc.Height)),
	}
	if !dims.Valid() {
		return "", ErrEmptyDocument
	}

	box := r.box
	if box.MaxWidth <= 0 || box.MaxHeight <= 0 {
		box = geometry.Box{MaxWidth: dims.Width, MaxHeight: dims.Height}
	}
	vp := geometry.NewViewport(dims, box)

	saved := make([]capture.SavedPlot, 0, len(doc.Plots))
	for i, p := range doc.Plots {
		id := p.ID
		if id == "" {
			id = fmt.Sprintf("plot-%d", i+1)
		}
		sp, err := capture.DecodePlot(id, p.Geometry, map[string]any{"name": p.Name})
		if err != nil {
			return "", err
		}
		saved = append(saved, sp)
	}

	return overlay.RenderSVG(overlay.Scene{
		Display: vp.Display(),
		Plots:   overlay.SavedPolygons(saved, vp),
	}), nil
}
