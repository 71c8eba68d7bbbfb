package selection

import (
	"log"

	"snipper/src/geometry"
	"snipper/src/settings"
)

// State of a selection session. Confirmed, Cancelled and FullScreen are terminal.
type State int

const (
	Idle State = iota
	Dragging
	Confirmed
	Cancelled
	FullScreen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	case FullScreen:
		return "full-screen"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool { return s >= Confirmed }

// Key is a keyboard input the overlay forwards to the machine.
type Key int

const (
	KeyOther Key = iota
	KeyEscape
	KeyEnter
	KeyLeft
	KeyRight
)

// KeyResult tells the overlay what a key did.
type KeyResult int

const (
	// KeyIgnored: not ours, let it through.
	KeyIgnored KeyResult = iota
	KeyHandled
	// KeyRejected: ours, but nothing to act on (Enter with no selection). The overlay beeps.
	KeyRejected
)

// Outcome is the single terminal result of a session.
type Outcome struct {
	State State
	Rect  geometry.Rect
}

// Captures reports whether the outcome asks for a capture. Cancelled and
// zero-area confirmations are equivalent no-ops.
func (o Outcome) Captures() bool {
	switch o.State {
	case FullScreen:
		return true
	case Confirmed:
		return !o.Rect.Empty()
	default:
		return false
	}
}

// ModeStore is the part of the settings store the machine needs.
type ModeStore interface {
	CaptureMode() settings.Mode
	SetCaptureMode(settings.Mode) error
}

// Machine tracks one drag lifecycle. It is not safe for concurrent use; the overlay
// serializes input.
type Machine struct {
	modes   ModeStore
	state   State
	anchor  geometry.Point
	live    geometry.Point
	outcome Outcome
}

func New(modes ModeStore) *Machine {
	return &Machine{modes: modes}
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Done() bool { return m.state.Terminal() }

// Outcome returns the terminal outcome, or a zero Outcome with State set while pending.
func (m *Machine) Outcome() Outcome {
	if !m.Done() {
		return Outcome{State: m.state}
	}
	return m.outcome
}

// Cursor is the last known pointer location.
func (m *Machine) Cursor() geometry.Point { return m.live }

// Selection returns the live rectangle while dragging.
func (m *Machine) Selection() (geometry.Rect, bool) {
	if m.state != Dragging {
		return geometry.Rect{}, false
	}
	return geometry.RectFromPoints(m.anchor, m.live), true
}

// Press starts a drag at p.
func (m *Machine) Press(p geometry.Point) {
	if m.Done() {
		return
	}
	m.anchor = p
	m.live = p
	m.state = Dragging
}

// Move updates the live point. Outside a drag it only moves the crosshair.
func (m *Machine) Move(p geometry.Point) {
	if m.Done() {
		return
	}
	m.live = p
}

// Release ends the drag. A zero-area span returns to Idle so the drag can be re-initiated.
func (m *Machine) Release(p geometry.Point) {
	if m.state != Dragging {
		return
	}
	m.live = p
	r := geometry.RectFromPoints(m.anchor, m.live)
	if r.Empty() {
		m.state = Idle
		return
	}
	m.finish(Confirmed, r)
}

// Cancel ends the session from any non-terminal state with the zero rect.
func (m *Machine) Cancel() {
	if m.Done() {
		return
	}
	m.finish(Cancelled, geometry.Rect{})
}

// Key handles keyboard input.
func (m *Machine) Key(k Key) KeyResult {
	if m.Done() {
		return KeyIgnored
	}
	switch k {
	case KeyEscape:
		m.Cancel()
		return KeyHandled
	case KeyLeft:
		m.setMode(settings.ModeArea)
		return KeyHandled
	case KeyRight:
		m.setMode(settings.ModeFull)
		return KeyHandled
	case KeyEnter:
		if m.mode() == settings.ModeFull {
			m.finish(FullScreen, geometry.Rect{})
			return KeyHandled
		}
		if r, ok := m.Selection(); ok && !r.Empty() {
			m.finish(Confirmed, r)
			return KeyHandled
		}
		return KeyRejected
	default:
		return KeyIgnored
	}
}

func (m *Machine) mode() settings.Mode {
	if m.modes == nil {
		return settings.ModeArea
	}
	return m.modes.CaptureMode()
}

func (m *Machine) setMode(mode settings.Mode) {
	if m.modes == nil {
		return
	}
	if err := m.modes.SetCaptureMode(mode); err != nil {
		log.Printf("selection: failed to persist capture mode %s: %v", mode, err)
	}
}

func (m *Machine) finish(s State, r geometry.Rect) {
	m.state = s
	m.outcome = Outcome{State: s, Rect: r.Standardize()}
}
