package models

import (
	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/engine/geometry"
)

// ============================================================
// Venture Model
// ============================================================

// Venture: план участков: изображение, его размер и калибровка.
type Venture struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	ImageFile   string             `json:"imageFile"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Calibration calibration.Record `json:"calibration"`
	CreatedAt   string             `json:"createdAt"`
}

func (v Venture) Dimensions() geometry.ImageDimensions {
	return geometry.ImageDimensions{Width: v.Width, Height: v.Height}
}
