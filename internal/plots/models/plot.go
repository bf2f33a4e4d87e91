package models

import (
	"encoding/json"
	"fmt"

	"plot-planner/internal/engine/calibration"
	"plot-planner/internal/engine/codec"
	"plot-planner/internal/engine/geometry"
)

// ============================================================
// Plot Model
// ============================================================

type Plot struct {
	ID         string         `json:"id"`
	VentureID  string         `json:"ventureId"`
	Geometry   codec.Geometry `json:"geometry"`
	Attributes map[string]any `json:"attributes"`
	CreatedAt  string         `json:"createdAt"`
}

// ============================================================
// Wire payloads
// ============================================================

// SavePlotPayload: {ventureId, geometry, ...attributes}: атрибуты лежат
// на верхнем уровне рядом с ventureId и geometry.
type SavePlotPayload struct {
	VentureID  string
	Geometry   codec.Geometry
	Attributes map[string]any
}

const (
	keyVentureID = "ventureId"
	keyGeometry  = "geometry"
)

func (p SavePlotPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Attributes)+2)
	for k, v := range p.Attributes {
		out[k] = v
	}
	out[keyVentureID] = p.VentureID
	out[keyGeometry] = p.Geometry
	return json.Marshal(out)
}

func (p *SavePlotPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = SavePlotPayload{Attributes: map[string]any{}}
	for key, value := range raw {
		switch key {
		case keyVentureID:
			if err := json.Unmarshal(value, &p.VentureID); err != nil {
				return fmt.Errorf("ventureId: %w", err)
			}
		case keyGeometry:
			if err := json.Unmarshal(value, &p.Geometry); err != nil {
				return fmt.Errorf("geometry: %w", err)
			}
		default:
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			p.Attributes[key] = v
		}
	}
	return nil
}

// SaveCalibrationPayload: {origin, scale}.
type SaveCalibrationPayload struct {
	Origin geometry.ImagePoint `json:"origin"`
	Scale  calibration.Scale   `json:"scale"`
}

// SaveResponse: {success, id?, message?}.
type SaveResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

type PlotList struct {
	Plots []Plot `json:"plots"`
}

type VentureList struct {
	Ventures []Venture `json:"ventures"`
}

// PlotArea: площадь участка в пикселях и в единицах калибровки.
type PlotArea struct {
	PlotID     string           `json:"plotId"`
	PixelArea  float64          `json:"pixelArea"`
	Area       float64          `json:"area"`
	Unit       calibration.Unit `json:"unit"`
	Calibrated bool             `json:"calibrated"`
}
