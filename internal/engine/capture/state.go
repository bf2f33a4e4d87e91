package capture

import "errors"

// ============================================================
// Capture States
// ============================================================

type State int

const (
	Empty State = iota
	Drawing
	ReadyToComplete
	AwaitingDetails
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Drawing:
		return "drawing"
	case ReadyToComplete:
		return "ready_to_complete"
	case AwaitingDetails:
		return "awaiting_details"
	default:
		return "unknown"
	}
}

// MinVertices: минимальное число вершин для завершения контура.
const MinVertices = 3

var (
	ErrTooFewVertices     = errors.New("capture: at least 3 vertices are required")
	ErrFrozen             = errors.New("capture: draft is completed, clear or save it first")
	ErrNothingToUndo      = errors.New("capture: draft is empty")
	ErrNotAwaitingDetails = errors.New("capture: draft is not completed")
	ErrNoImage            = errors.New("capture: no image loaded")
	ErrNoStore            = errors.New("capture: plot store is not configured")
	ErrDegenerateDraft    = errors.New("capture: completed draft has fewer than 3 distinct vertices, clear it and redraw")
)

// SaveError: отказ хранилища; черновик при этом сохраняется для повтора.
type SaveError struct {
	Message string
	Err     error
}

func (e *SaveError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return "capture: save plot: " + e.Message + ": " + e.Err.Error()
	case e.Err != nil:
		return "capture: save plot: " + e.Err.Error()
	case e.Message != "":
		return "capture: save plot: " + e.Message
	default:
		return "capture: save plot rejected"
	}
}

func (e *SaveError) Unwrap() error {
	return e.Err
}
