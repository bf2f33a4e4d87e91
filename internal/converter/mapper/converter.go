package mapper

import (
	"errors"
	"fmt"
	"io"
	"math"

	"plot-planner/internal/converter/models"
	"plot-planner/internal/converter/parser"
	"plot-planner/internal/engine/codec"
	"plot-planner/internal/engine/geometry"
)

// ============================================================
// Converter
// ============================================================

var ErrUnknownGeometry = errors.New("unknown geometry type")

type Converter struct {
	elements []models.SVGElement
}

func New() *Converter {
	return &Converter{}
}

// Convert SVG → {width, height, plots}. Элементы, из которых не выходит
// корректное кольцо, попадают в Skipped и не прерывают разбор.
func (c *Converter) Convert(r io.Reader) (*models.PlotDocument, error) {
	doc, err := parser.ParseSVG(r)
	if err != nil {
		return nil, fmt.Errorf("parse SVG: %w", err)
	}
	c.elements = doc.Elements

	out := &models.PlotDocument{
		Width:  doc.Width,
		Height: doc.Height,
		Plots:  []models.ImportedPlot{},
	}

	var all geometry.Bounds
	haveBounds := false

	for _, elem := range c.elements {
		if elem.Type != models.KindPlot {
			continue
		}

		ring, err := c.getElementPoints(elem)
		if err != nil {
			out.Skipped = append(out.Skipped, models.Skipped{ID: elem.ID, Reason: err.Error()})
			continue
		}

		g, err := codec.Encode(ring)
		if err != nil {
			out.Skipped = append(out.Skipped, models.Skipped{ID: elem.ID, Reason: err.Error()})
			continue
		}

		out.Plots = append(out.Plots, models.ImportedPlot{
			ID:       elem.ID,
			Name:     parser.PlotName(elem.ID),
			Geometry: g,
		})

		if b, ok := geometry.RingBounds(ring); ok {
			all = extend(all, b, haveBounds)
			haveBounds = true
		}
	}

	// Документ без размеров: берём охват участков.
	if (out.Width <= 0 || out.Height <= 0) && haveBounds {
		out.Width = math.Ceil(all.MaxX)
		out.Height = math.Ceil(all.MaxY)
	}

	return out, nil
}

// ============================================================
// Geometry helpers
// ============================================================

func (c *Converter) getElementPoints(elem models.SVGElement) ([]geometry.ImagePoint, error) {
	switch geom := elem.Geometry.(type) {
	case models.PathGeometry:
		return parser.ParsePath(geom.D)
	case models.PolygonGeometry:
		return parser.ParsePoints(geom.Points)
	case models.RectGeometry:
		if geom.Width <= 0 || geom.Height <= 0 {
			return nil, fmt.Errorf("rect %s has empty size", elem.ID)
		}
		return []geometry.ImagePoint{
			{X: geom.X, Y: geom.Y},
			{X: geom.X + geom.Width, Y: geom.Y},
			{X: geom.X + geom.Width, Y: geom.Y + geom.Height},
			{X: geom.X, Y: geom.Y + geom.Height},
		}, nil
	}
	return nil, ErrUnknownGeometry
}

func extend(acc, b geometry.Bounds, have bool) geometry.Bounds {
	if !have {
		return b
	}
	return geometry.Bounds{
		MinX: math.Min(acc.MinX, b.MinX),
		MinY: math.Min(acc.MinY, b.MinY),
		MaxX: math.Max(acc.MaxX, b.MaxX),
		MaxY: math.Max(acc.MaxY, b.MaxY),
	}
}
