package models

import (
	"plot-planner/internal/engine/codec"
)

// ============================================================
// SVG Elements
// ============================================================

const KindPlot = "plot"

// SVGDocument: размер корневого <svg> и размеченные элементы в порядке документа.
type SVGDocument struct {
	Width    float64
	Height   float64
	Elements []SVGElement
}

type SVGElement struct {
	ID       string
	Type     string // plot
	Geometry interface{}
}

type RectGeometry struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type PathGeometry struct {
	D string
}

type PolygonGeometry struct {
	Points string
}

// ============================================================
// Import payloads
// ============================================================

// ImportedPlot: участок, готовый к сохранению в сервисе участков.
type ImportedPlot struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Geometry codec.Geometry `json:"geometry"`
}

// Skipped: элемент, который не удалось превратить в участок.
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// PlotDocument: {width, height, plots}; координаты в пикселях SVG.
type PlotDocument struct {
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	Plots   []ImportedPlot `json:"plots"`
	Skipped []Skipped      `json:"skipped,omitempty"`
}
