package calibration

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"plot-planner/internal/engine/geometry"
)

// ============================================================
// Wizard Steps
// ============================================================

type Step int

const (
	OriginStep Step = iota
	ScaleStep
	ConfirmStep
)

func (s Step) String() string {
	switch s {
	case OriginStep:
		return "origin"
	case ScaleStep:
		return "scale"
	case ConfirmStep:
		return "confirm"
	default:
		return "unknown"
	}
}

var (
	ErrWrongStep   = errors.New("calibration: action not allowed at this step")
	ErrOriginUnset = errors.New("calibration: origin is not set")
)

// MaxScalePoints: концы эталонного отрезка.
const MaxScalePoints = 2

// ScalePoint хранит клик в обоих пространствах; расстояние считается по Image.
type ScalePoint struct {
	Display geometry.DisplayPoint `json:"display"`
	Image   geometry.ImagePoint   `json:"image"`
}

// ============================================================
// Wizard
// ============================================================

// Wizard: неизменяемое состояние мастера калибровки.
type Wizard struct {
	step          Step
	origin        geometry.ImagePoint
	originSet     bool
	scalePoints   []ScalePoint
	distanceInput string
	unit          Unit
}

// NewWizard открывает мастер; единица берётся из текущей записи.
func NewWizard(current Record) Wizard {
	return Wizard{step: OriginStep, unit: current.Unit()}
}

func (w Wizard) Step() Step            { return w.step }
func (w Wizard) Unit() Unit            { return w.unit }
func (w Wizard) DistanceInput() string { return w.distanceInput }

// Origin возвращает начало координат и признак того, что оно задано.
func (w Wizard) Origin() (geometry.ImagePoint, bool) {
	return w.origin, w.originSet
}

func (w Wizard) ScalePoints() []ScalePoint {
	out := make([]ScalePoint, len(w.scalePoints))
	copy(out, w.scalePoints)
	return out
}

// SetOrigin: последний клик побеждает.
func (w Wizard) SetOrigin(p geometry.DisplayPoint, t geometry.Transform) (Wizard, error) {
	if w.step != OriginStep {
		return w, ErrWrongStep
	}
	w.origin = t.ToImage(p)
	w.originSet = true
	return w, nil
}

// AddScalePoint добавляет конец отрезка. Третий клик игнорируется,
// пока точки не сброшены через ClearScalePoints.
func (w Wizard) AddScalePoint(p geometry.DisplayPoint, t geometry.Transform) (Wizard, error) {
	if w.step != ScaleStep {
		return w, ErrWrongStep
	}
	if len(w.scalePoints) >= MaxScalePoints {
		return w, nil
	}
	next := make([]ScalePoint, len(w.scalePoints), len(w.scalePoints)+1)
	copy(next, w.scalePoints)
	w.scalePoints = append(next, ScalePoint{Display: p, Image: t.ToImage(p)})
	return w, nil
}

func (w Wizard) ClearScalePoints() (Wizard, error) {
	if w.step != ScaleStep {
		return w, ErrWrongStep
	}
	w.scalePoints = nil
	return w, nil
}

func (w Wizard) SetReferenceDistance(input string) (Wizard, error) {
	if w.step != ScaleStep {
		return w, ErrWrongStep
	}
	w.distanceInput = input
	return w, nil
}

func (w Wizard) SetUnit(u Unit) (Wizard, error) {
	if w.step != ScaleStep {
		return w, ErrWrongStep
	}
	if !u.Valid() {
		return w, ErrInvalidUnit
	}
	w.unit = u
	return w, nil
}

// Next двигает мастер вперёд. Из OriginStep нельзя уйти без origin.
func (w Wizard) Next() (Wizard, error) {
	switch w.step {
	case OriginStep:
		if !w.originSet {
			return w, ErrOriginUnset
		}
		w.step = ScaleStep
	case ScaleStep:
		w.step = ConfirmStep
	default:
		return w, ErrWrongStep
	}
	return w, nil
}

// Back всегда разрешён и ничего не теряет.
func (w Wizard) Back() Wizard {
	if w.step > OriginStep {
		w.step--
	}
	return w
}

// PixelDistance: длина эталонного отрезка в пикселях изображения, округлённая до целого.
// Ноль, пока не заданы обе точки.
func (w Wizard) PixelDistance() float64 {
	if len(w.scalePoints) < MaxScalePoints {
		return 0
	}
	return math.Round(w.scalePoints[0].Image.Distance(w.scalePoints[1].Image))
}

// ReferenceDistance разбирает введённое расстояние; false для нечисла или не положительного значения.
func (w Wizard) ReferenceDistance() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(w.distanceInput), 64)
	if err != nil || !positive(v) {
		return 0, false
	}
	return v, true
}

// Summary: данные экрана подтверждения.
type Summary struct {
	Origin                 geometry.ImagePoint `json:"origin"`
	OriginSet              bool                `json:"originSet"`
	PixelDistance          float64             `json:"pixelDistance"`
	ReferenceDistanceInput string              `json:"referenceDistanceInput"`
	Unit                   Unit                `json:"unit"`
}

func (w Wizard) Summary() Summary {
	return Summary{
		Origin:                 w.origin,
		OriginSet:              w.originSet,
		PixelDistance:          w.PixelDistance(),
		ReferenceDistanceInput: w.distanceInput,
		Unit:                   w.unit,
	}
}

// Commit собирает новую запись. Нулевое расстояние в пикселях или
// некорректный ввод заменяются значениями из prior, если prior откалиброван;
// иначе возвращается ошибка валидации.
func (w Wizard) Commit(prior Record) (Record, error) {
	if w.step != ConfirmStep {
		return Record{}, ErrWrongStep
	}
	if !w.originSet {
		return Record{}, ErrOriginUnset
	}

	pixels := w.PixelDistance()
	if !positive(pixels) {
		if !prior.Calibrated || !positive(prior.Scale.ReferencePixels) {
			return Record{}, ErrInvalidReferencePixels
		}
		pixels = prior.Scale.ReferencePixels
	}

	units, ok := w.ReferenceDistance()
	if !ok {
		if !prior.Calibrated || !positive(prior.Scale.ReferenceUnits) {
			return Record{}, ErrInvalidReferenceDistance
		}
		units = prior.Scale.ReferenceUnits
	}

	return Record{
		Origin:     w.origin,
		Scale:      Scale{ReferencePixels: pixels, ReferenceUnits: units, Unit: w.unit},
		Calibrated: true,
	}, nil
}
