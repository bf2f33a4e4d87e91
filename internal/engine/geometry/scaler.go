package geometry

import "math"

// ============================================================
// Display Scaler
// ============================================================

// Fit вписывает изображение в область с сохранением пропорций.
// Сначала подгоняется ширина (без увеличения), затем, если высота
// не помещается, высота. Обе стороны округляются до целых.
// Для неизвестного размера или пустой области возвращается нулевой размер.
func Fit(dims ImageDimensions, box Box) DisplaySize {
	if !dims.Valid() || box.MaxWidth <= 0 || box.MaxHeight <= 0 {
		return DisplaySize{}
	}

	ratio := float64(dims.Width) / float64(dims.Height)

	width := math.Min(float64(dims.Width), float64(box.MaxWidth))
	height := width / ratio

	if height > float64(box.MaxHeight) {
		height = float64(box.MaxHeight)
		width = height * ratio
	}

	return DisplaySize{
		Width:  int(math.Round(width)),
		Height: int(math.Round(height)),
	}
}

// ============================================================
// Scale Factors
// ============================================================

// ScaleFactors: отношение собственного размера к отображаемому по осям.
type ScaleFactors struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity: масштаб 1:1, используется как запасной вариант.
var Identity = ScaleFactors{X: 1, Y: 1}

// NewScaleFactors считает коэффициенты. Если отображаемый размер нулевой
// или результат не конечен и не положителен, оба коэффициента равны 1.
func NewScaleFactors(dims ImageDimensions, display DisplaySize) ScaleFactors {
	if !dims.Valid() || display.Empty() {
		return Identity
	}

	sx := float64(dims.Width) / float64(display.Width)
	sy := float64(dims.Height) / float64(display.Height)
	if !usable(sx) || !usable(sy) {
		return Identity
	}

	return ScaleFactors{X: sx, Y: sy}
}

// Valid сообщает, что оба коэффициента строго положительны и конечны.
func (s ScaleFactors) Valid() bool {
	return usable(s.X) && usable(s.Y)
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
