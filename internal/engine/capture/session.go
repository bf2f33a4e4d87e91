package capture

import (
	"context"
	"errors"
	"fmt"

	"plot-planner/internal/engine/codec"
	"plot-planner/internal/engine/geometry"

	"github.com/sirupsen/logrus"
)

// ============================================================
// Persistence Contract
// ============================================================

// SavePlotRequest: {ventureId, geometry, attributes...}.
type SavePlotRequest struct {
	VentureID  string
	Geometry   codec.Geometry
	Attributes map[string]any
}

// SavePlotResult: {success, id?, message?}.
type SavePlotResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

type PlotStore interface {
	SavePlot(ctx context.Context, req SavePlotRequest) (SavePlotResult, error)
}

// SavedPlot: уже сохранённый участок, кольцо открыто и в пикселях изображения.
type SavedPlot struct {
	ID         string
	Ring       []geometry.ImagePoint
	Attributes map[string]any
}

// DecodePlot готовит сохранённую геометрию к показу.
func DecodePlot(id string, g codec.Geometry, attrs map[string]any) (SavedPlot, error) {
	ring, err := codec.Decode(g)
	if err != nil {
		return SavedPlot{}, fmt.Errorf("decode plot %s: %w", id, err)
	}
	return SavedPlot{ID: id, Ring: ring, Attributes: attrs}, nil
}

// ============================================================
// Capture Session
// ============================================================

type Listener func(prev, next State)

type Option func(*Session)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = l
	}
}

func WithListener(fn Listener) Option {
	return func(s *Session) {
		s.listeners = append(s.listeners, fn)
	}
}

// Session держит текущий черновик активного участка и его окружение.
// Не потокобезопасна: рассчитана на один цикл обработки событий.
type Session struct {
	ventureID string
	viewport  geometry.Viewport
	draft     Draft
	existing  []SavedPlot
	store     PlotStore
	log       logrus.FieldLogger
	listeners []Listener
}

func NewSession(store PlotStore, opts ...Option) *Session {
	s := &Session{
		store: store,
		draft: NewDraft(),
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) VentureID() string           { return s.ventureID }
func (s *Session) Viewport() geometry.Viewport { return s.viewport }
func (s *Session) Draft() Draft                { return s.draft }
func (s *Session) State() State                { return s.draft.State() }

// Existing возвращает копию списка сохранённых участков.
func (s *Session) Existing() []SavedPlot {
	out := make([]SavedPlot, len(s.existing))
	copy(out, s.existing)
	return out
}

// SwitchVenture сбрасывает черновик и подменяет изображение и участки.
func (s *Session) SwitchVenture(ventureID string, vp geometry.Viewport, existing []SavedPlot) {
	s.ventureID = ventureID
	s.viewport = vp
	s.existing = append([]SavedPlot(nil), existing...)
	s.apply(s.draft.Clear())

	s.log.WithFields(logrus.Fields{
		"venture": ventureID,
		"image":   fmt.Sprintf("%dx%d", vp.Image.Width, vp.Image.Height),
		"plots":   len(existing),
	}).Debug("capture: venture switched")
}

// SetViewport меняет область отображения, не сдвигая черновик на изображении.
func (s *Session) SetViewport(vp geometry.Viewport) {
	prev := s.viewport
	s.viewport = vp
	if !prev.HasImage() || !vp.HasImage() || prev.Image != vp.Image {
		s.apply(s.draft.Clear())
		return
	}
	s.draft = s.draft.Reproject(prev.Transform(), vp.Transform())
}

func (s *Session) AddVertex(p geometry.DisplayPoint) error {
	if !s.viewport.HasImage() {
		return ErrNoImage
	}
	next, err := s.draft.AddVertex(p)
	if err != nil {
		return err
	}
	s.apply(next)
	return nil
}

func (s *Session) Undo() error {
	next, err := s.draft.Undo()
	if err != nil {
		return err
	}
	s.apply(next)
	return nil
}

func (s *Session) Clear() {
	s.apply(s.draft.Clear())
}

func (s *Session) Complete() error {
	if !s.viewport.HasImage() {
		return ErrNoImage
	}
	next, err := s.draft.Complete()
	if err != nil {
		return err
	}
	s.apply(next)
	return nil
}

// Save отправляет замороженный контур в хранилище. При успехе черновик
// очищается, а участок попадает в Existing; при отказе остаётся AwaitingDetails.
// Complete считает клики, а не различные вершины: контур из совпадающих точек
// замораживается, но не кодируется (ErrDegenerateDraft), и выйти из него можно
// только через Clear.
func (s *Session) Save(ctx context.Context, attrs map[string]any) (SavePlotResult, error) {
	if s.draft.State() != AwaitingDetails {
		return SavePlotResult{}, ErrNotAwaitingDetails
	}
	if !s.viewport.HasImage() {
		return SavePlotResult{}, ErrNoImage
	}
	if s.store == nil {
		return SavePlotResult{}, ErrNoStore
	}

	ring := s.draft.ImageRing(s.viewport.Transform())
	g, err := codec.Encode(ring)
	if errors.Is(err, codec.ErrTooFewVertices) {
		return SavePlotResult{}, fmt.Errorf("%w: %w", ErrDegenerateDraft, err)
	}
	if err != nil {
		return SavePlotResult{}, err
	}

	res, err := s.store.SavePlot(ctx, SavePlotRequest{
		VentureID:  s.ventureID,
		Geometry:   g,
		Attributes: attrs,
	})
	if err != nil {
		s.log.WithError(err).WithField("venture", s.ventureID).Warn("capture: save failed")
		return res, &SaveError{Message: res.Message, Err: err}
	}
	if !res.Success {
		s.log.WithField("venture", s.ventureID).WithField("message", res.Message).Warn("capture: save rejected")
		return res, &SaveError{Message: res.Message}
	}

	s.existing = append(s.existing, SavedPlot{ID: res.ID, Ring: ring, Attributes: attrs})
	s.apply(s.draft.Clear())

	s.log.WithFields(logrus.Fields{"venture": s.ventureID, "plot": res.ID}).Info("capture: plot saved")
	return res, nil
}

func (s *Session) apply(next Draft) {
	prev := s.draft.State()
	s.draft = next
	if cur := next.State(); cur != prev {
		s.log.WithFields(logrus.Fields{"from": prev, "to": cur}).Debug("capture: transition")
		for _, fn := range s.listeners {
			fn(prev, cur)
		}
	}
}
