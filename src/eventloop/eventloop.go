package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"snipper/src/capture"
	"snipper/src/hotkey"
	"snipper/src/overlay"
	"snipper/src/selection"
	"snipper/src/session"
	"snipper/src/settings"
	"snipper/src/singleinstance"
	"snipper/src/worker"
)

var ErrBusy = errors.New("busy, please retry")

// Selector runs the area overlay. Cancel ends an active session early.
type Selector interface {
	Select(ctx context.Context) (selection.Outcome, error)
	Cancel()
}

type Notifier interface {
	CaptureFailed(err error)
}

// Status receives the tray status line and about text.
type Status interface {
	UpdateStatus(text string)
	SetAboutExtra(text string)
}

// Options wires the loop to its collaborators. Selector, Modes and Run are required.
type Options struct {
	Selector      Selector
	Modes         selection.ModeStore
	AreaSupported bool
	Run           worker.RunFunc
	Workers       int
	Deadline      time.Duration
	Server        singleinstance.Server
	Notifier      Notifier
	Status        Status
	IdleStatus    string
}

// Loop is the single-threaded coordinator for hotkey, tray and run-once capture requests.
type Loop struct {
	opts       Options
	pool       *worker.Pool
	busy       bool
	results    chan result
	hotkeyCh   chan struct{}
	conns      chan singleinstance.Conn
	idleStatus string
	deadline   time.Duration
}

type result struct {
	res    session.Result
	err    error
	target resultTarget
	cancel context.CancelFunc
}

type resultTarget interface {
	OnSuccess(res session.Result) error
	OnProcessError(err error)
	Close()
}

// localResultTarget serves hotkey and tray captures: failures become notifications.
type localResultTarget struct {
	notifier Notifier
}

func (localResultTarget) OnSuccess(res session.Result) error { return nil }

func (t localResultTarget) OnProcessError(err error) {
	if errors.Is(err, session.ErrSelectionCancelled) || t.notifier == nil {
		return
	}
	t.notifier.CaptureFailed(err)
}

func (localResultTarget) Close() {}

type delegatedResultTarget struct {
	sink session.DelegatedTarget
	conn singleinstance.Conn
}

func newDelegatedResultTarget(conn singleinstance.Conn) delegatedResultTarget {
	return delegatedResultTarget{sink: session.DelegatedTarget{Conn: conn}, conn: conn}
}

func (t delegatedResultTarget) OnSuccess(res session.Result) error {
	return t.sink.OnSuccess(res)
}

func (t delegatedResultTarget) OnProcessError(err error) {
	_ = t.sink.OnFailure(err)
}

func (t delegatedResultTarget) Close() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
}

// New creates a loop. A zero Deadline uses session.DefaultDeadline.
func New(opts Options) *Loop {
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = session.DefaultDeadline
	}
	idle := opts.IdleStatus
	if idle == "" {
		idle = "Snipper"
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Loop{
		opts:       opts,
		pool:       worker.New(workers, opts.Run),
		results:    make(chan result, 1),
		hotkeyCh:   make(chan struct{}, 4),
		idleStatus: idle,
		deadline:   deadline,
	}
}

func (l *Loop) setBusy(b bool, status string) {
	l.busy = b
	if l.opts.Status == nil {
		return
	}
	if b {
		l.opts.Status.UpdateStatus(status)
	} else {
		l.opts.Status.UpdateStatus(l.idleStatus)
	}
}

// TriggerCapture asks the loop for one capture in the stored mode. Safe from any goroutine.
func (l *Loop) TriggerCapture() {
	select {
	case l.hotkeyCh <- struct{}{}:
	default:
		log.Printf("eventloop: capture trigger dropped, queue full")
	}
}

// StartHotkey registers a global hotkey and posts events into the loop.
func (l *Loop) StartHotkey(combo string) error {
	if combo == "" {
		return nil
	}
	return hotkey.Listen(combo, l.TriggerCapture)
}

// SetMode persists mode. Switching to full while the overlay is up cancels that session.
func (l *Loop) SetMode(mode settings.Mode) {
	if err := l.opts.Modes.SetCaptureMode(mode); err != nil {
		log.Printf("eventloop: failed to set capture mode: %v", err)
		return
	}
	if mode == settings.ModeFull && l.opts.Selector != nil {
		l.opts.Selector.Cancel()
	}
}

// Run processes requests until ctx is cancelled. With a Server set, run-once clients are
// served too.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()

	if srv := l.opts.Server; srv != nil {
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Close()
		if p := srv.Port(); p > 0 {
			log.Printf("Resident listening on 127.0.0.1:%d", p)
			if l.opts.Status != nil {
				l.opts.Status.SetAboutExtra(fmt.Sprintf("Resident TCP port: %d", p))
			}
		}

		// Accept loop in background to avoid blocking result handling
		reqCh := make(chan singleinstance.Conn, 4)
		l.conns = reqCh
		go func() {
			defer close(reqCh)
			for {
				conn, err := srv.Next(ctx)
				if err != nil {
					return
				}
				select {
				case reqCh <- conn:
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.hotkeyCh:
			l.handleTrigger(ctx)
		case conn, ok := <-l.conns:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) handleTrigger(ctx context.Context) {
	target := localResultTarget{notifier: l.opts.Notifier}
	if l.busy {
		log.Printf("eventloop: busy, ignoring capture request")
		return
	}
	l.startRequest(ctx, l.opts.Modes.CaptureMode(), target)
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	target := newDelegatedResultTarget(conn)
	if l.busy {
		target.OnProcessError(ErrBusy)
		target.Close()
		return
	}
	mode := l.opts.Modes.CaptureMode()
	if m := conn.Request().Mode; m != "" {
		mode = settings.ParseMode(m)
	}
	l.startRequest(ctx, mode, target)
}

// startRequest runs selection on the loop goroutine and hands the capture to the pool.
// Nothing else is processed while the overlay is up.
func (l *Loop) startRequest(ctx context.Context, mode settings.Mode, target resultTarget) {
	l.setBusy(true, "Selecting...")
	tgt, err := session.Plan(ctx, mode, l.opts.AreaSupported, l.opts.Selector.Select)
	l.dropQueued()
	if err != nil {
		l.setBusy(false, "")
		switch {
		case errors.Is(err, session.ErrSelectionCancelled):
			log.Printf("eventloop: selection cancelled")
		case errors.Is(err, overlay.ErrSessionActive):
			err = ErrBusy
		default:
			log.Printf("eventloop: selection failed: %v", err)
		}
		target.OnProcessError(err)
		target.Close()
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.setBusy(true, "Capturing...")
	submitted := l.pool.Submit(jobCtx, tgt, func(res session.Result, err error) {
		l.results <- result{res: res, err: err, target: target, cancel: cancel}
	})
	if !submitted {
		cancel()
		l.setBusy(false, "")
		target.OnProcessError(ErrBusy)
		target.Close()
	}
}

// dropQueued discards triggers that piled up while the overlay held the loop and turns
// away run-once clients that connected meanwhile.
func (l *Loop) dropQueued() {
	for {
		select {
		case <-l.hotkeyCh:
			log.Printf("eventloop: dropping capture trigger queued during selection")
		case conn, ok := <-l.conns:
			if !ok {
				// Run sees the close next and returns.
				return
			}
			target := newDelegatedResultTarget(conn)
			target.OnProcessError(ErrBusy)
			target.Close()
		default:
			return
		}
	}
}

func (l *Loop) handleResult(res result) {
	defer func() {
		l.setBusy(false, "")
		if res.cancel != nil {
			res.cancel()
		}
	}()
	if res.target == nil {
		log.Printf("handleResult: missing target")
		return
	}
	defer res.target.Close()

	if res.err != nil {
		log.Printf("handleResult: capture error (%s): %v", capture.KindOf(res.err), res.err)
		res.target.OnProcessError(res.err)
		return
	}
	if err := res.target.OnSuccess(res.res); err != nil {
		log.Printf("handleResult: delivery error: %v", err)
		res.target.OnProcessError(err)
		return
	}
	log.Printf("handleResult: saved %s", res.res.Path)
}

// Deadline returns the capture deadline for this loop.
func (l *Loop) Deadline() time.Duration { return l.deadline }
