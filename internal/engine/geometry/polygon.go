package geometry

import "math"

// ============================================================
// Ring helpers (image space)
// ============================================================

// Bounds: ограничивающий прямоугольник кольца.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// RingBounds возвращает ограничивающий прямоугольник; false для пустого кольца.
func RingBounds(ring []ImagePoint) (Bounds, bool) {
	if len(ring) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, p := range ring {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b, true
}

// RingContains: попадание точки в кольцо (луч вправо, чётность пересечений).
// Кольцо может быть как открытым, так и замкнутым.
func RingContains(ring []ImagePoint, p ImagePoint) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	inside := false
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}
