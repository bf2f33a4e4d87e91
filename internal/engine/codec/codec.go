package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"plot-planner/internal/engine/geometry"

	"github.com/peterstace/simplefeatures/geom"
)

// ============================================================
// Geometry Codec
// ============================================================

// TypePolygon: единственный тип геометрии участка.
const TypePolygon = "Polygon"

var (
	ErrTooFewVertices = errors.New("codec: polygon needs at least 3 distinct vertices")
	ErrNotPolygon     = errors.New("codec: geometry type is not Polygon")
	ErrEmptyGeometry  = errors.New("codec: geometry has no rings")
	ErrOpenRing       = errors.New("codec: ring is not closed")
)

// Geometry: GeoJSON-подобный полигон в пикселях изображения.
// Coordinates[0]: внешнее кольцо, первая и последняя точки совпадают.
type Geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// EncodeRing собирает геометрию из кольца без проверок.
// При closeRing к незамкнутому кольцу добавляется копия первой вершины.
func EncodeRing(ring []geometry.ImagePoint, closeRing bool) Geometry {
	coords := make([][2]float64, 0, len(ring)+1)
	for _, p := range ring {
		coords = append(coords, [2]float64{p.X, p.Y})
	}
	if closeRing && len(ring) > 0 && !IsClosed(ring) {
		coords = append(coords, [2]float64{ring[0].X, ring[0].Y})
	}
	return Geometry{Type: TypePolygon, Coordinates: [][][2]float64{coords}}
}

// Encode замыкает кольцо и проверяет, что в нём не меньше трёх различных вершин.
func Encode(ring []geometry.ImagePoint) (Geometry, error) {
	if DistinctCount(ring) < 3 {
		return Geometry{}, ErrTooFewVertices
	}
	return EncodeRing(ring, true), nil
}

// Decode возвращает открытое кольцо: замыкающий дубль отбрасывается,
// незамкнутый вход принимается как есть.
func Decode(g Geometry) ([]geometry.ImagePoint, error) {
	if g.Type != TypePolygon {
		return nil, fmt.Errorf("%w: %q", ErrNotPolygon, g.Type)
	}
	if len(g.Coordinates) == 0 {
		return nil, ErrEmptyGeometry
	}

	ring := g.Ring()
	if len(ring) > 1 && IsClosed(ring) {
		ring = ring[:len(ring)-1]
	}
	return ring, nil
}

// Ring возвращает внешнее кольцо как есть (копией).
func (g Geometry) Ring() []geometry.ImagePoint {
	if len(g.Coordinates) == 0 {
		return nil
	}
	out := make([]geometry.ImagePoint, len(g.Coordinates[0]))
	for i, c := range g.Coordinates[0] {
		out[i] = geometry.ImagePoint{X: c[0], Y: c[1]}
	}
	return out
}

// Validate проверяет инварианты сохранённой геометрии.
func (g Geometry) Validate() error {
	if g.Type != TypePolygon {
		return fmt.Errorf("%w: %q", ErrNotPolygon, g.Type)
	}
	if len(g.Coordinates) == 0 || len(g.Coordinates[0]) == 0 {
		return ErrEmptyGeometry
	}

	ring := g.Ring()
	if !IsClosed(ring) {
		return ErrOpenRing
	}
	if len(ring) < 4 || DistinctCount(ring) < 3 {
		return ErrTooFewVertices
	}
	return nil
}

// IsClosed: первая и последняя вершины побитово равны.
func IsClosed(ring []geometry.ImagePoint) bool {
	if len(ring) < 2 {
		return false
	}
	return ring[0].Equal(ring[len(ring)-1])
}

// DistinctCount считает различные вершины кольца.
func DistinctCount(ring []geometry.ImagePoint) int {
	seen := make(map[geometry.ImagePoint]struct{}, len(ring))
	for _, p := range ring {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// ============================================================
// WKT & Area
// ============================================================

// WKT сериализует внешнее кольцо, пропуская подряд идущие дубли.
func (g Geometry) WKT() string {
	ring := g.Ring()

	var b strings.Builder
	b.WriteString("POLYGON((")
	var prev geometry.ImagePoint
	written := 0
	for i, p := range ring {
		if i > 0 && p.Equal(prev) {
			continue
		}
		if written > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatFloat(p.X))
		b.WriteString(" ")
		b.WriteString(formatFloat(p.Y))
		prev = p
		written++
	}
	b.WriteString("))")
	return b.String()
}

// PixelArea: площадь полигона в квадратных пикселях изображения.
func (g Geometry) PixelArea() (float64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	parsed, err := geom.UnmarshalWKT(g.WKT())
	if err != nil {
		return 0, fmt.Errorf("codec: area: %w", err)
	}
	return parsed.Area(), nil
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
