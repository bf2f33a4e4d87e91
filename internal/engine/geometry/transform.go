package geometry

// ============================================================
// Coordinate Transform
// ============================================================

// Transform: единственный способ перейти между пространствами
// отображения и изображения. Значение нельзя кэшировать надолго:
// получайте его из Viewport перед каждым использованием.
type Transform struct {
	scale ScaleFactors
}

// NewTransform строит преобразование; некорректный масштаб заменяется на 1:1.
func NewTransform(scale ScaleFactors) Transform {
	if !scale.Valid() {
		scale = Identity
	}
	return Transform{scale: scale}
}

// Scale возвращает действующие коэффициенты.
func (t Transform) Scale() ScaleFactors {
	if !t.scale.Valid() {
		return Identity
	}
	return t.scale
}

// ToImage переводит точку отображения в пиксели изображения.
func (t Transform) ToImage(p DisplayPoint) ImagePoint {
	s := t.Scale()
	return ImagePoint{X: p.X * s.X, Y: p.Y * s.Y}
}

// ToDisplay переводит пиксели изображения в точку отображения.
func (t Transform) ToDisplay(p ImagePoint) DisplayPoint {
	s := t.Scale()
	return DisplayPoint{X: p.X / s.X, Y: p.Y / s.Y}
}

// ToImageAll сохраняет порядок и длину.
func (t Transform) ToImageAll(points []DisplayPoint) []ImagePoint {
	out := make([]ImagePoint, len(points))
	for i, p := range points {
		out[i] = t.ToImage(p)
	}
	return out
}

// ToDisplayAll сохраняет порядок и длину.
func (t Transform) ToDisplayAll(points []ImagePoint) []DisplayPoint {
	out := make([]DisplayPoint, len(points))
	for i, p := range points {
		out[i] = t.ToDisplay(p)
	}
	return out
}
