package geometry

// ============================================================
// Viewport
// ============================================================

// Viewport связывает активное изображение с областью отображения.
// Размер, масштаб и преобразование вычисляются заново при каждом вызове,
// поэтому смена изображения или области сразу отражается во всех расчётах.
type Viewport struct {
	Image ImageDimensions `json:"image"`
	Box   Box             `json:"box"`
}

func NewViewport(image ImageDimensions, box Box) Viewport {
	return Viewport{Image: image, Box: box}
}

// HasImage: false, пока размер изображения неизвестен.
func (v Viewport) HasImage() bool {
	return v.Image.Valid()
}

func (v Viewport) Display() DisplaySize {
	return Fit(v.Image, v.Box)
}

func (v Viewport) Scale() ScaleFactors {
	return NewScaleFactors(v.Image, v.Display())
}

func (v Viewport) Transform() Transform {
	return NewTransform(v.Scale())
}

// WithBox возвращает копию с другой областью отображения.
func (v Viewport) WithBox(box Box) Viewport {
	v.Box = box
	return v
}

// WithImage возвращает копию с другим изображением.
func (v Viewport) WithImage(image ImageDimensions) Viewport {
	v.Image = image
	return v
}
