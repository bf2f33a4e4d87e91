package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// ============================================================
// Coordinate Spaces
// ============================================================

// DisplayPoint: точка в пикселях области отображения.
// Живёт только внутри одного viewport и никогда не сохраняется.
type DisplayPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImagePoint: точка в собственных пикселях изображения.
// Единственное пространство, которое пересекает границы компонентов.
type ImagePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance возвращает евклидово расстояние в пикселях отображения.
func (p DisplayPoint) Distance(o DisplayPoint) float64 {
	return floats.Distance([]float64{p.X, p.Y}, []float64{o.X, o.Y}, 2)
}

// Distance возвращает евклидово расстояние в пикселях изображения.
func (p ImagePoint) Distance(o ImagePoint) float64 {
	return floats.Distance([]float64{p.X, p.Y}, []float64{o.X, o.Y}, 2)
}

// Equal сравнивает точки побитово (используется для замыкания кольца).
func (p ImagePoint) Equal(o ImagePoint) bool {
	return p.X == o.X && p.Y == o.Y
}

// ApproxEqual сравнивает точки с абсолютным допуском.
func (p ImagePoint) ApproxEqual(o ImagePoint, tol float64) bool {
	return scalar.EqualWithinAbs(p.X, o.X, tol) && scalar.EqualWithinAbs(p.Y, o.Y, tol)
}

// ApproxEqual сравнивает точки с абсолютным допуском.
func (p DisplayPoint) ApproxEqual(o DisplayPoint, tol float64) bool {
	return scalar.EqualWithinAbs(p.X, o.X, tol) && scalar.EqualWithinAbs(p.Y, o.Y, tol)
}

// Round округляет координаты до целых пикселей.
// Применяется только на краях конвейера (показ пользователю, отчёты).
func (p ImagePoint) Round() ImagePoint {
	return ImagePoint{X: math.Round(p.X), Y: math.Round(p.Y)}
}

// ============================================================
// Dimensions
// ============================================================

// ImageDimensions: собственный размер изображения в пикселях.
type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid сообщает, загружено ли изображение с известным размером.
func (d ImageDimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// Contains проверяет, что точка лежит в пределах изображения.
func (d ImageDimensions) Contains(p ImagePoint) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= float64(d.Width) && p.Y <= float64(d.Height)
}

// DisplaySize: размер, в котором изображение показано пользователю.
type DisplaySize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty: состояние «нет изображения».
func (s DisplaySize) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Box: максимальная область отображения.
type Box struct {
	MaxWidth  int `json:"maxWidth"`
	MaxHeight int `json:"maxHeight"`
}

// DefaultBox: стандартная область редактора.
var DefaultBox = Box{MaxWidth: 900, MaxHeight: 600}
