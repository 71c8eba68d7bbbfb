package capture

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"snipper/src/geometry"
)

// State of the pipeline for the current run.
type State int

const (
	StateIdle State = iota
	StatePermissionCheck
	StateCapturing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePermissionCheck:
		return "permission-check"
	case StateCapturing:
		return "capturing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Target is what the user asked for. Area rects are in UI-convention screen points.
type Target struct {
	Full bool
	Rect geometry.Rect
}

func FullScreen() Target { return Target{Full: true} }

func Area(r geometry.Rect) Target { return Target{Rect: r.Standardize()} }

func (t Target) String() string {
	if t.Full {
		return "full-screen"
	}
	return "area " + t.Rect.String()
}

// Outcome is the single result of a run. Exactly one of Bitmap and Err is set.
type Outcome struct {
	Bitmap  *Bitmap
	Err     error
	Request Request
}

// DefaultRetryDelay is how long the pipeline waits after requesting permission
// before re-checking.
const DefaultRetryDelay = 1500 * time.Millisecond

type Options struct {
	Backend    Backend
	Permission Permission
	// UI is the origin convention of incoming area rects.
	UI         geometry.Origin
	RetryDelay time.Duration
	// OnState observes every transition. Called from the pipeline goroutine.
	OnState func(State)
}

// Pipeline turns a Target into a Bitmap. One run at a time.
type Pipeline struct {
	opts    Options
	running atomic.Bool

	mu    sync.Mutex
	state State

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Pipeline {
	if opts.Permission == nil {
		opts.Permission = AllowAll{}
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Pipeline{opts: opts, sleep: sleepCtx}
}

func (p *Pipeline) Backend() Backend { return p.opts.Backend }

func (p *Pipeline) backendName() string {
	if p.opts.Backend == nil {
		return "none"
	}
	return p.opts.Backend.Name()
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Run starts a capture and returns a channel that yields exactly one Outcome.
// A second Run while one is in flight yields ErrBusy immediately.
func (p *Pipeline) Run(ctx context.Context, target Target) <-chan Outcome {
	out := make(chan Outcome, 1)
	if !p.running.CompareAndSwap(false, true) {
		out <- Outcome{Err: ErrBusy}
		close(out)
		return out
	}
	go func() {
		defer close(out)
		defer p.running.Store(false)
		out <- p.run(ctx, target)
	}()
	return out
}

// Capture runs synchronously.
func (p *Pipeline) Capture(ctx context.Context, target Target) (*Bitmap, error) {
	o := <-p.Run(ctx, target)
	return o.Bitmap, o.Err
}

func (p *Pipeline) run(ctx context.Context, target Target) (o Outcome) {
	p.setState(StateIdle)
	defer func() {
		if o.Err != nil {
			log.Printf("capture: %s via %s failed: %+v", target, p.backendName(), o.Err)
			p.setState(StateFailed)
			return
		}
		p.setState(StateSucceeded)
	}()

	backend := p.opts.Backend
	if backend == nil {
		return Outcome{Err: NewError(KindUnsupported, "select backend", nil)}
	}
	caps := backend.Capabilities()
	if !target.Full && !caps.Area {
		return Outcome{Err: NewError(KindUnsupported, fmt.Sprintf("%s area capture", backend.Name()), nil)}
	}

	if caps.Preflight {
		p.setState(StatePermissionCheck)
		if err := p.ensurePermission(ctx); err != nil {
			return Outcome{Err: err}
		}
	}

	req, err := p.resolve(target)
	if err != nil {
		return Outcome{Err: err}
	}

	p.setState(StateCapturing)
	bmp, err := backend.Capture(ctx, req)
	if err != nil {
		if KindOf(err) != 0 {
			return Outcome{Err: err, Request: req}
		}
		return Outcome{Err: NewError(KindCaptureFailed, backend.Name(), err), Request: req}
	}
	if bmp == nil || bmp.Image == nil {
		return Outcome{Err: NewError(KindCaptureFailed, backend.Name(), fmt.Errorf("no image returned")), Request: req}
	}
	log.Printf("capture: %s via %s -> %dx%d px", target, backend.Name(), bmp.Width(), bmp.Height())
	return Outcome{Bitmap: bmp, Request: req}
}

// ensurePermission checks, requests once, waits the retry delay, then checks once more.
func (p *Pipeline) ensurePermission(ctx context.Context) error {
	perm := p.opts.Permission
	if perm.Preflight() {
		return nil
	}
	log.Printf("capture: screen recording permission missing, requesting")
	perm.Request()
	if err := p.sleep(ctx, p.opts.RetryDelay); err != nil {
		return NewError(KindCaptureFailed, "permission wait", err)
	}
	if perm.Preflight() {
		return nil
	}
	return NewError(KindPermissionDenied, "", nil)
}

func (p *Pipeline) resolve(target Target) (Request, error) {
	displays, err := p.opts.Backend.Displays()
	if err != nil {
		return Request{}, NewError(KindCaptureFailed, "enumerate displays", err)
	}
	if len(displays) == 0 {
		return Request{}, NewError(KindNoDisplay, "", nil)
	}
	m := uiMapper(displays, p.opts.UI)

	var d geometry.Display
	var screen geometry.Rect
	if target.Full {
		d, _ = m.Primary()
		screen = d.Frame
	} else {
		screen = target.Rect.Standardize()
		if screen.Empty() {
			return Request{}, NewError(KindCaptureFailed, "resolve target", fmt.Errorf("empty area %s", screen))
		}
		d, _ = m.DisplayFor(screen)
	}
	return Request{
		Full:    target.Full,
		Display: d,
		Screen:  m.ToCaptureSpace(screen),
		Pixel:   m.ToPixelRect(screen, d),
	}, nil
}

// uiMapper re-expresses backend display frames (top-left, points) in the UI convention.
func uiMapper(displays []geometry.Display, ui geometry.Origin) *geometry.Mapper {
	m := &geometry.Mapper{Displays: displays, UI: ui, Capture: geometry.TopLeft}
	converted := make([]geometry.Display, len(displays))
	for i, d := range displays {
		d.Frame = m.FromCaptureSpace(d.Frame)
		converted[i] = d
	}
	m.Displays = converted
	return m
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	if p.opts.OnState != nil {
		p.opts.OnState(s)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
