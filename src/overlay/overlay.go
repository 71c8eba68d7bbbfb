package overlay

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"sync/atomic"

	"snipper/src/geometry"
	"snipper/src/selection"
)

// Selector defines a synchronous region-selection API owned by the event loop.
// The returned outcome's rect is in global screen points (UI convention).
type Selector interface {
	Select(ctx context.Context) (selection.Outcome, error)
}

var (
	ErrSessionActive = errors.New("selection session already active")
	ErrSurfaceLost   = errors.New("overlay surface closed")
)

type EventKind int

const (
	EventMove EventKind = iota
	EventPress
	EventRelease
	EventKey
	EventFocusLost
)

// Event is input from the surface. Points are view-local.
type Event struct {
	Kind  EventKind
	Point geometry.Point
	Key   selection.Key
}

// Surface is the platform window the overlay draws into.
type Surface interface {
	// Open shows a borderless window over frame and returns the screen rect it actually
	// covers plus its input stream. The stream is closed when the window goes away.
	Open(frame geometry.Rect) (covered geometry.Rect, events <-chan Event, err error)
	// Present replaces the window contents. One call per redraw. img is reused by the
	// caller, so it must not be retained after Present returns.
	Present(img *image.RGBA)
	SetPointerHidden(hidden bool)
	// Activate brings the app to the front and returns a function restoring the prior state.
	Activate() (restore func())
	// Pointer is the last known pointer location, view-local.
	Pointer() (geometry.Point, bool)
	Close()
}

// Controller owns one selection session at a time.
type Controller struct {
	Surface  Surface
	Displays func() ([]geometry.Display, error)
	// Snapshot captures the given screen rect for the dimmed background. Optional.
	Snapshot func(ctx context.Context, frame geometry.Rect) (image.Image, error)
	Modes    selection.ModeStore
	Beep     func()
	Style    Style

	active atomic.Bool

	mu     sync.Mutex
	cancel chan struct{}
}

func NewController(surface Surface, displays func() ([]geometry.Display, error), modes selection.ModeStore) *Controller {
	return &Controller{Surface: surface, Displays: displays, Modes: modes, Style: DefaultStyle}
}

// Cancel ends the active session, if any, as if the user pressed Escape.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
}

// Active reports whether a session is running.
func (c *Controller) Active() bool { return c.active.Load() }

// Select runs one session to its terminal outcome. Pointer visibility, activation state and
// the surface are restored on every exit path.
func (c *Controller) Select(ctx context.Context) (selection.Outcome, error) {
	if !c.active.CompareAndSwap(false, true) {
		return selection.Outcome{}, ErrSessionActive
	}
	defer c.active.Store(false)

	cancelled := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancelled
	c.mu.Unlock()
	defer c.Cancel()

	var displays []geometry.Display
	if c.Displays != nil {
		ds, err := c.Displays()
		if err != nil {
			return selection.Outcome{}, err
		}
		displays = ds
	}
	union := geometry.UnionFrame(displays)
	if union.Empty() {
		return selection.Outcome{}, errors.New("overlay: no display to cover")
	}

	// Background is taken before the window exists so the overlay is not in it.
	var bg image.Image
	if c.Snapshot != nil {
		img, err := c.Snapshot(ctx, union)
		if err != nil {
			log.Printf("overlay: background snapshot failed, dimming without it: %v", err)
		} else {
			bg = img
		}
	}

	restoreActivation := c.Surface.Activate()
	covered, events, err := c.Surface.Open(union)
	if err != nil {
		if restoreActivation != nil {
			restoreActivation()
		}
		return selection.Outcome{}, err
	}
	defer func() {
		c.Surface.SetPointerHidden(false)
		c.Surface.Close()
		if restoreActivation != nil {
			restoreActivation()
		}
	}()
	c.Surface.SetPointerHidden(true)

	s := &session{
		machine: selection.New(c.Modes),
		style:   c.Style,
		canvas:  image.NewRGBA(image.Rect(0, 0, int(covered.W), int(covered.H))),
		bg:      fitBackground(bg, union, covered),
	}
	if p, ok := c.Surface.Pointer(); ok {
		s.machine.Move(p)
	} else {
		s.machine.Move(geometry.Point{X: covered.W / 2, Y: covered.H / 2})
	}
	c.Surface.Present(s.render())

	var loopErr error
loop:
	for !s.machine.Done() {
		select {
		case <-ctx.Done():
			s.machine.Cancel()
			loopErr = ctx.Err()
			break loop
		case <-cancelled:
			log.Printf("overlay: session cancelled externally")
			s.machine.Cancel()
		case ev, ok := <-events:
			if !ok {
				s.machine.Cancel()
				loopErr = ErrSurfaceLost
				break loop
			}
			if s.handle(ev) == selection.KeyRejected && c.Beep != nil {
				c.Beep()
			}
			c.Surface.Present(s.render())
		}
	}

	out := s.machine.Outcome()
	if out.State == selection.Confirmed {
		out.Rect = geometry.ToScreenRect(out.Rect, geometry.Point{}, geometry.Point{X: covered.X, Y: covered.Y})
	}
	log.Printf("overlay: session ended %s %s", out.State, out.Rect)
	return out, loopErr
}

// session is the per-invocation state, dropped when Select returns.
type session struct {
	machine *selection.Machine
	style   Style
	canvas  *image.RGBA
	bg      image.Image
}

func (s *session) handle(ev Event) selection.KeyResult {
	switch ev.Kind {
	case EventPress:
		s.machine.Press(ev.Point)
	case EventMove:
		s.machine.Move(ev.Point)
	case EventRelease:
		s.machine.Release(ev.Point)
	case EventKey:
		return s.machine.Key(ev.Key)
	case EventFocusLost:
		s.machine.Cancel()
	}
	return selection.KeyHandled
}

func (s *session) render() *image.RGBA {
	sel, dragging := s.machine.Selection()
	var selPtr *geometry.Rect
	if dragging {
		selPtr = &sel
	}
	Render(s.canvas, s.bg, selPtr, s.machine.Cursor(), s.style)
	return s.canvas
}
