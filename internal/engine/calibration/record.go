package calibration

import (
	"errors"
	"fmt"
	"math"

	"plot-planner/internal/engine/geometry"
)

// ============================================================
// Units
// ============================================================

type Unit string

const (
	Meters Unit = "m"
	Feet   Unit = "ft"
	Yards  Unit = "yd"
)

var (
	ErrInvalidUnit              = errors.New("calibration: unknown unit")
	ErrInvalidReferencePixels   = errors.New("calibration: reference pixel distance must be positive")
	ErrInvalidReferenceDistance = errors.New("calibration: reference distance must be a positive number")
)

func (u Unit) Valid() bool {
	switch u {
	case Meters, Feet, Yards:
		return true
	}
	return false
}

func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if !u.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
	return u, nil
}

// ============================================================
// Calibration Record
// ============================================================

// Scale: referencePixels пикселей изображения соответствуют referenceUnits единиц.
type Scale struct {
	ReferencePixels float64 `json:"referencePixels"`
	ReferenceUnits  float64 `json:"referenceUnits"`
	Unit            Unit    `json:"unit"`
}

func (s Scale) Validate() error {
	if !positive(s.ReferencePixels) {
		return ErrInvalidReferencePixels
	}
	if !positive(s.ReferenceUnits) {
		return ErrInvalidReferenceDistance
	}
	if !s.Unit.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidUnit, s.Unit)
	}
	return nil
}

// Record: калибровка одного изображения. Хранится и заменяется целиком.
type Record struct {
	Origin     geometry.ImagePoint `json:"origin"`
	Scale      Scale               `json:"scale"`
	Calibrated bool                `json:"isCalibrated"`
}

// DefaultRecord: заглушка до первой калибровки: 100 px = 10 m.
func DefaultRecord() Record {
	return Record{
		Scale: Scale{ReferencePixels: 100, ReferenceUnits: 10, Unit: Meters},
	}
}

// UnitsPerPixel: реальных единиц на пиксель изображения.
// При некорректном масштабе используется масштаб по умолчанию.
func (r Record) UnitsPerPixel() float64 {
	s := r.Scale
	if s.Validate() != nil {
		s = DefaultRecord().Scale
	}
	return s.ReferenceUnits / s.ReferencePixels
}

// Unit возвращает единицу записи, по умолчанию метры.
func (r Record) Unit() Unit {
	if r.Scale.Unit.Valid() {
		return r.Scale.Unit
	}
	return Meters
}

// ToUnits переводит пиксельную длину в реальные единицы.
func (r Record) ToUnits(pixels float64) float64 {
	return pixels * r.UnitsPerPixel()
}

// AreaToUnits переводит площадь из квадратных пикселей в квадратные единицы.
func (r Record) AreaToUnits(pixelArea float64) float64 {
	upp := r.UnitsPerPixel()
	return pixelArea * upp * upp
}

// Locate возвращает смещение точки от начала координат в реальных единицах.
func (r Record) Locate(p geometry.ImagePoint) (float64, float64) {
	upp := r.UnitsPerPixel()
	return (p.X - r.Origin.X) * upp, (p.Y - r.Origin.Y) * upp
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
