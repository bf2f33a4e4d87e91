package calibration

import (
	"context"
	"errors"

	"plot-planner/internal/engine/geometry"

	"github.com/sirupsen/logrus"
)

// ============================================================
// Persistence Contract
// ============================================================

// SaveResult: {success, message?}.
type SaveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type Store interface {
	SaveCalibration(ctx context.Context, ventureID string, rec Record) (SaveResult, error)
}

var (
	ErrNotOpen = errors.New("calibration: wizard is not open")
	ErrNoImage = errors.New("calibration: no image loaded")
	ErrNoStore = errors.New("calibration: store is not configured")
)

// SaveError: отказ хранилища; мастер остаётся на шаге подтверждения.
type SaveError struct {
	Message string
	Err     error
}

func (e *SaveError) Error() string {
	msg := "calibration: save"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Message == "" && e.Err == nil {
		msg += " rejected"
	}
	return msg
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// ============================================================
// Calibration Session
// ============================================================

type Option func(*Session)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// Session держит запись калибровки активного изображения и открытый мастер.
type Session struct {
	ventureID string
	viewport  geometry.Viewport
	record    Record
	wizard    *Wizard
	store     Store
	log       logrus.FieldLogger
}

func NewSession(store Store, opts ...Option) *Session {
	s := &Session{
		store:  store,
		record: DefaultRecord(),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) VentureID() string           { return s.ventureID }
func (s *Session) Viewport() geometry.Viewport { return s.viewport }
func (s *Session) Record() Record              { return s.record }

// Wizard возвращает открытый мастер.
func (s *Session) Wizard() (Wizard, bool) {
	if s.wizard == nil {
		return Wizard{}, false
	}
	return *s.wizard, true
}

// SwitchVenture закрывает мастер и подменяет изображение и запись.
func (s *Session) SwitchVenture(ventureID string, vp geometry.Viewport, rec Record) {
	s.ventureID = ventureID
	s.viewport = vp
	s.record = rec
	s.wizard = nil
}

func (s *Session) SetViewport(vp geometry.Viewport) {
	if vp.Image != s.viewport.Image {
		s.wizard = nil
	}
	s.viewport = vp
}

// Open начинает новый мастер; предыдущий незавершённый отбрасывается.
func (s *Session) Open() error {
	if !s.viewport.HasImage() {
		return ErrNoImage
	}
	w := NewWizard(s.record)
	s.wizard = &w
	s.log.WithField("venture", s.ventureID).Debug("calibration: wizard opened")
	return nil
}

func (s *Session) Cancel() {
	s.wizard = nil
}

// Click направляет клик по текущему шагу: origin или точка отрезка.
func (s *Session) Click(p geometry.DisplayPoint) error {
	return s.update(func(w Wizard) (Wizard, error) {
		switch w.Step() {
		case OriginStep:
			return w.SetOrigin(p, s.viewport.Transform())
		case ScaleStep:
			return w.AddScalePoint(p, s.viewport.Transform())
		default:
			return w, ErrWrongStep
		}
	})
}

func (s *Session) ClearScalePoints() error {
	return s.update(Wizard.ClearScalePoints)
}

func (s *Session) SetReferenceDistance(input string) error {
	return s.update(func(w Wizard) (Wizard, error) {
		return w.SetReferenceDistance(input)
	})
}

func (s *Session) SetUnit(u Unit) error {
	return s.update(func(w Wizard) (Wizard, error) {
		return w.SetUnit(u)
	})
}

func (s *Session) Next() error {
	return s.update(Wizard.Next)
}

func (s *Session) Back() error {
	return s.update(func(w Wizard) (Wizard, error) {
		return w.Back(), nil
	})
}

// Save фиксирует запись в хранилище. При успехе мастер закрывается.
func (s *Session) Save(ctx context.Context) (Record, error) {
	if s.wizard == nil {
		return Record{}, ErrNotOpen
	}
	if s.store == nil {
		return Record{}, ErrNoStore
	}

	rec, err := s.wizard.Commit(s.record)
	if err != nil {
		return Record{}, err
	}

	res, err := s.store.SaveCalibration(ctx, s.ventureID, rec)
	if err != nil {
		s.log.WithError(err).WithField("venture", s.ventureID).Warn("calibration: save failed")
		return Record{}, &SaveError{Message: res.Message, Err: err}
	}
	if !res.Success {
		s.log.WithField("venture", s.ventureID).WithField("message", res.Message).Warn("calibration: save rejected")
		return Record{}, &SaveError{Message: res.Message}
	}

	s.record = rec
	s.wizard = nil
	s.log.WithFields(logrus.Fields{
		"venture":         s.ventureID,
		"referencePixels": rec.Scale.ReferencePixels,
		"referenceUnits":  rec.Scale.ReferenceUnits,
		"unit":            rec.Scale.Unit,
	}).Info("calibration: saved")
	return rec, nil
}

func (s *Session) update(fn func(Wizard) (Wizard, error)) error {
	if s.wizard == nil {
		return ErrNotOpen
	}
	prev := s.wizard.Step()
	next, err := fn(*s.wizard)
	if err != nil {
		return err
	}
	s.wizard = &next
	if cur := next.Step(); cur != prev {
		s.log.WithFields(logrus.Fields{"from": prev, "to": cur}).Debug("calibration: step")
	}
	return nil
}
