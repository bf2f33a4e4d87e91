package overlay

import (
	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/engine/capture"
	"plot-planner/internal/engine/geometry"
)

// ============================================================
// Display-space derivations
// ============================================================
//
// Всё, что здесь возвращается, пересчитывается из пикселей изображения
// под текущий viewport и никогда не сохраняется.

type Polygon struct {
	ID     string                  `json:"id"`
	Label  string                  `json:"label,omitempty"`
	Points []geometry.DisplayPoint `json:"points"`
}

type Markers struct {
	Origin    *geometry.DisplayPoint  `json:"origin,omitempty"`
	ScaleLine []geometry.DisplayPoint `json:"scaleLine,omitempty"`
}

type Scene struct {
	Display     geometry.DisplaySize    `json:"display"`
	Draft       []geometry.DisplayPoint `json:"draft"`
	DraftClosed bool                    `json:"draftClosed"`
	Plots       []Polygon               `json:"plots"`
	Markers     Markers                 `json:"markers"`
}

// DraftPoints: вершины черновика в текущих координатах отображения.
func DraftPoints(d capture.Draft) []geometry.DisplayPoint {
	return d.Vertices()
}

// SavedPolygons переводит сохранённые кольца в координаты отображения.
func SavedPolygons(plots []capture.SavedPlot, vp geometry.Viewport) []Polygon {
	tr := vp.Transform()
	out := make([]Polygon, 0, len(plots))
	for _, p := range plots {
		out = append(out, Polygon{
			ID:     p.ID,
			Label:  label(p.Attributes),
			Points: tr.ToDisplayAll(p.Ring),
		})
	}
	return out
}

// CalibrationMarkers: маркеры открытого мастера: origin и эталонный отрезок.
func CalibrationMarkers(w calibration.Wizard, vp geometry.Viewport) Markers {
	tr := vp.Transform()

	var m Markers
	if origin, ok := w.Origin(); ok {
		d := tr.ToDisplay(origin)
		m.Origin = &d
	}
	for _, sp := range w.ScalePoints() {
		m.ScaleLine = append(m.ScaleLine, tr.ToDisplay(sp.Image))
	}
	return m
}

// RecordMarkers: маркер сохранённой калибровки (только origin).
func RecordMarkers(rec calibration.Record, vp geometry.Viewport) Markers {
	if !rec.Calibrated {
		return Markers{}
	}
	d := vp.Transform().ToDisplay(rec.Origin)
	return Markers{Origin: &d}
}

// Build собирает сцену для отрисовки из текущих сессий.
// cal может быть nil, если калибровка не используется.
func Build(cs *capture.Session, cal *calibration.Session) Scene {
	vp := cs.Viewport()
	draft := cs.Draft()

	scene := Scene{
		Display:     vp.Display(),
		Draft:       DraftPoints(draft),
		DraftClosed: draft.State() == capture.AwaitingDetails,
		Plots:       SavedPolygons(cs.Existing(), vp),
	}

	if cal != nil {
		if w, open := cal.Wizard(); open {
			scene.Markers = CalibrationMarkers(w, cal.Viewport())
		} else {
			scene.Markers = RecordMarkers(cal.Record(), cal.Viewport())
		}
	}
	return scene
}

func label(attrs map[string]any) string {
	for _, key := range []string{"name", "label", "number"} {
		if v, ok := attrs[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
