package overlay

import (
	"image"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"snipper/src/geometry"
	"snipper/src/selection"
)

const eventBuffer = 128

// FyneSurface draws the overlay in one borderless fyne window stretched over the union of
// all displays. When the native window cannot be placed it falls back to full screen on the
// primary display, since fyne puts full-screen windows on a single display.
type FyneSurface struct {
	app      fyne.App
	displays func() ([]geometry.Display, error)

	// Place moves the native window (an NSWindow handle on macOS) over frame.
	Place func(handle uintptr, frame geometry.Rect) bool
	// Cursor reports the pointer in global top-left points.
	Cursor func() (geometry.Point, bool)
	// Activator brings the app to the front and returns the undo.
	Activator func() (restore func())

	mu         sync.Mutex
	win        fyne.Window
	view       *inputView
	events     chan Event
	closeOnce  *sync.Once
	hidden     bool
	pointer    geometry.Point
	hasPointer bool
}

func NewFyneSurface(a fyne.App, displays func() ([]geometry.Display, error)) *FyneSurface {
	s := &FyneSurface{app: a, displays: displays}
	a.Lifecycle().SetOnExitedForeground(func() {
		s.send(Event{Kind: EventFocusLost})
	})
	return s
}

func (s *FyneSurface) Open(frame geometry.Rect) (geometry.Rect, <-chan Event, error) {
	events := make(chan Event, eventBuffer)
	once := &sync.Once{}
	s.mu.Lock()
	s.events = events
	s.closeOnce = once
	s.pointer, s.hasPointer = geometry.Point{}, false
	s.mu.Unlock()

	placed := false
	fyne.DoAndWait(func() {
		var w fyne.Window
		if drv, ok := s.app.Driver().(desktop.Driver); ok {
			w = drv.CreateSplashWindow()
		} else {
			w = s.app.NewWindow("Snipper")
		}
		view := newInputView(s)
		w.SetPadded(false)
		w.SetContent(view)
		w.Resize(fyne.NewSize(float32(frame.W), float32(frame.H)))
		w.Canvas().SetOnTypedKey(s.typedKey)
		w.SetOnClosed(func() { s.finish(events, once) })
		w.Show()
		if placed = s.place(w, frame); !placed {
			w.SetFullScreen(true)
		}
		w.RequestFocus()

		s.mu.Lock()
		s.win = w
		s.view = view
		s.mu.Unlock()
	})

	covered := frame
	if !placed {
		covered = s.primaryFrame(frame)
	}
	if p, ok := viewPointer(s.Cursor, covered); ok {
		s.mu.Lock()
		if !s.hasPointer {
			s.pointer, s.hasPointer = p, true
		}
		s.mu.Unlock()
	}
	log.Printf("overlay: window open over %s (placed=%v)", covered, placed)
	return covered, events, nil
}

// place runs on the main thread, after Show, once the native window exists.
func (s *FyneSurface) place(w fyne.Window, frame geometry.Rect) bool {
	nw, ok := w.(driver.NativeWindow)
	if !ok || s.Place == nil {
		return false
	}
	placed := false
	nw.RunNative(func(ctx any) {
		if mac, ok := ctx.(driver.MacWindowContext); ok {
			placed = s.Place(mac.NSWindow, frame)
		}
	})
	return placed
}

func (s *FyneSurface) primaryFrame(fallback geometry.Rect) geometry.Rect {
	if s.displays == nil {
		return fallback
	}
	ds, err := s.displays()
	if err != nil {
		return fallback
	}
	if d, ok := geometry.NewMapper(ds).Primary(); ok {
		return d.Frame
	}
	return fallback
}

// viewPointer turns the global cursor into a point local to covered.
func viewPointer(cursor func() (geometry.Point, bool), covered geometry.Rect) (geometry.Point, bool) {
	if cursor == nil {
		return geometry.Point{}, false
	}
	p, ok := cursor()
	if !ok || !covered.Contains(p) {
		return geometry.Point{}, false
	}
	return geometry.Point{X: p.X - covered.X, Y: p.Y - covered.Y}, true
}

func (s *FyneSurface) Present(img *image.RGBA) {
	frame := image.NewRGBA(img.Bounds())
	copy(frame.Pix, img.Pix)

	s.mu.Lock()
	view := s.view
	s.mu.Unlock()
	if view == nil {
		return
	}
	fyne.Do(func() {
		view.raster.Image = frame
		view.raster.Refresh()
	})
}

func (s *FyneSurface) SetPointerHidden(hidden bool) {
	s.mu.Lock()
	s.hidden = hidden
	s.mu.Unlock()
}

// Activate fronts the app on the main thread. Without an Activator the window still takes
// focus when shown, but the previously frontmost app is not reactivated afterwards.
func (s *FyneSurface) Activate() func() {
	if s.Activator == nil {
		return func() {}
	}
	var restore func()
	fyne.DoAndWait(func() { restore = s.Activator() })
	if restore == nil {
		return func() {}
	}
	return func() { fyne.DoAndWait(restore) }
}

func (s *FyneSurface) Pointer() (geometry.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointer, s.hasPointer
}

func (s *FyneSurface) Close() {
	s.mu.Lock()
	w, events, once := s.win, s.events, s.closeOnce
	s.win, s.view = nil, nil
	s.mu.Unlock()
	if w != nil {
		fyne.DoAndWait(w.Close)
	}
	if events != nil {
		s.finish(events, once)
	}
}

func (s *FyneSurface) finish(events chan Event, once *sync.Once) {
	once.Do(func() {
		s.mu.Lock()
		if s.events == events {
			s.events = nil
		}
		s.mu.Unlock()
		close(events)
	})
}

// send drops input once the buffer is full; the controller drains it continuously.
func (s *FyneSurface) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		return
	}
	if ev.Kind != EventKey && ev.Kind != EventFocusLost {
		s.pointer, s.hasPointer = ev.Point, true
	}
	select {
	case s.events <- ev:
	default:
		log.Printf("overlay: input buffer full, dropping event %d", ev.Kind)
	}
}

func (s *FyneSurface) typedKey(ev *fyne.KeyEvent) {
	var k selection.Key
	switch ev.Name {
	case fyne.KeyEscape:
		k = selection.KeyEscape
	case fyne.KeyReturn, fyne.KeyEnter:
		k = selection.KeyEnter
	case fyne.KeyLeft:
		k = selection.KeyLeft
	case fyne.KeyRight:
		k = selection.KeyRight
	default:
		return
	}
	s.send(Event{Kind: EventKey, Key: k})
}

func (s *FyneSurface) pointerHidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden
}

// inputView is the single full-window widget: it shows the rendered frame and turns
// pointer input into overlay events.
type inputView struct {
	widget.BaseWidget
	surface *FyneSurface
	raster  *canvas.Image
}

func newInputView(s *FyneSurface) *inputView {
	img := canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleFastest
	v := &inputView{surface: s, raster: img}
	v.ExtendBaseWidget(v)
	return v
}

func (v *inputView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

func (v *inputView) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button == desktop.MouseButtonPrimary {
		v.surface.send(Event{Kind: EventPress, Point: toPoint(ev.Position)})
	}
}

func (v *inputView) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button == desktop.MouseButtonPrimary {
		v.surface.send(Event{Kind: EventRelease, Point: toPoint(ev.Position)})
	}
}

func (v *inputView) MouseIn(ev *desktop.MouseEvent) {
	v.surface.send(Event{Kind: EventMove, Point: toPoint(ev.Position)})
}

func (v *inputView) MouseMoved(ev *desktop.MouseEvent) {
	v.surface.send(Event{Kind: EventMove, Point: toPoint(ev.Position)})
}

func (v *inputView) MouseOut() {}

func (v *inputView) Dragged(ev *fyne.DragEvent) {
	v.surface.send(Event{Kind: EventMove, Point: toPoint(ev.Position)})
}

func (v *inputView) DragEnd() {}

func (v *inputView) Cursor() desktop.Cursor {
	if v.surface.pointerHidden() {
		return desktop.HiddenCursor
	}
	return desktop.CrosshairCursor
}

func toPoint(p fyne.Position) geometry.Point {
	return geometry.Point{X: float64(p.X), Y: float64(p.Y)}
}

var (
	_ Surface            = (*FyneSurface)(nil)
	_ desktop.Mouseable  = (*inputView)(nil)
	_ desktop.Hoverable  = (*inputView)(nil)
	_ desktop.Cursorable = (*inputView)(nil)
	_ fyne.Draggable     = (*inputView)(nil)
)
