package capture

import (
	"plot-planner/internal/engine/codec"
	"plot-planner/internal/engine/geometry"
)

// ============================================================
// Polygon Draft
// ============================================================

// Draft: неизменяемый черновик контура в пикселях отображения.
// Каждый переход возвращает новое значение; исходное не меняется.
type Draft struct {
	vertices []geometry.DisplayPoint
	frozen   bool
}

func NewDraft() Draft {
	return Draft{}
}

func (d Draft) State() State {
	if d.frozen {
		return AwaitingDetails
	}
	switch n := len(d.vertices); {
	case n == 0:
		return Empty
	case n < MinVertices:
		return Drawing
	default:
		return ReadyToComplete
	}
}

func (d Draft) Len() int {
	return len(d.vertices)
}

// Vertices возвращает копию вершин.
func (d Draft) Vertices() []geometry.DisplayPoint {
	out := make([]geometry.DisplayPoint, len(d.vertices))
	copy(out, d.vertices)
	return out
}

// AddVertex добавляет вершину. Повторные точки не схлопываются.
func (d Draft) AddVertex(p geometry.DisplayPoint) (Draft, error) {
	if d.frozen {
		return d, ErrFrozen
	}
	next := make([]geometry.DisplayPoint, len(d.vertices), len(d.vertices)+1)
	copy(next, d.vertices)
	return Draft{vertices: append(next, p)}, nil
}

// Undo удаляет последнюю вершину.
func (d Draft) Undo() (Draft, error) {
	if d.frozen {
		return d, ErrFrozen
	}
	if len(d.vertices) == 0 {
		return d, ErrNothingToUndo
	}
	next := make([]geometry.DisplayPoint, len(d.vertices)-1)
	copy(next, d.vertices)
	return Draft{vertices: next}, nil
}

// Clear безусловно возвращает пустой черновик.
func (d Draft) Clear() Draft {
	return NewDraft()
}

// Complete замораживает черновик для ввода атрибутов.
func (d Draft) Complete() (Draft, error) {
	if d.frozen {
		return d, nil
	}
	if len(d.vertices) < MinVertices {
		return d, ErrTooFewVertices
	}
	return Draft{vertices: d.vertices, frozen: true}, nil
}

// ImageRing переводит открытый контур в пиксели изображения.
func (d Draft) ImageRing(t geometry.Transform) []geometry.ImagePoint {
	return t.ToImageAll(d.vertices)
}

// Geometry строит замкнутое кольцо для сохранения.
func (d Draft) Geometry(t geometry.Transform) (codec.Geometry, error) {
	return codec.Encode(d.ImageRing(t))
}

// Reproject пересчитывает вершины под новый viewport через пространство изображения.
func (d Draft) Reproject(from, to geometry.Transform) Draft {
	if len(d.vertices) == 0 {
		return d
	}
	return Draft{
		vertices: to.ToDisplayAll(from.ToImageAll(d.vertices)),
		frozen:   d.frozen,
	}
}
