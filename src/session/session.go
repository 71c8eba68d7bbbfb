package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"snipper/src/capture"
	"snipper/src/selection"
	"snipper/src/settings"
	"snipper/src/singleinstance"
)

var ErrSelectionCancelled = errors.New("selection cancelled")

// DefaultDeadline bounds capture plus delivery once a target is known.
const DefaultDeadline = 30 * time.Second

type SelectFunc func(ctx context.Context) (selection.Outcome, error)

type CaptureFunc func(ctx context.Context, target capture.Target) (*capture.Bitmap, error)

// Deliverer hands a finished bitmap to the output sinks and returns the saved path.
type Deliverer interface {
	Deliver(ctx context.Context, bmp *capture.Bitmap) (string, error)
}

type ResultTarget interface {
	OnSuccess(res Result) error
	OnFailure(err error) error
}

type Options struct {
	Mode          settings.Mode
	AreaSupported bool
	Deadline      time.Duration
	Select        SelectFunc
	Capture       CaptureFunc
	Deliver       Deliverer
	Target        ResultTarget
}

// Result describes one delivered screenshot.
type Result struct {
	SessionID string
	Target    capture.Target
	Path      string
	Width     int
	Height    int
}

// Plan turns the capture mode into a target, running the selection overlay for area mode.
// A cancelled or zero-area selection yields ErrSelectionCancelled.
func Plan(ctx context.Context, mode settings.Mode, areaSupported bool, sel SelectFunc) (capture.Target, error) {
	if mode != settings.ModeArea {
		return capture.FullScreen(), nil
	}
	if !areaSupported {
		// No overlay when the backend could not capture the selection anyway.
		return capture.Target{}, capture.NewError(capture.KindUnsupported, "select area", nil)
	}
	if sel == nil {
		return capture.Target{}, errors.New("area selection unavailable")
	}

	out, err := sel(ctx)
	if err != nil {
		return capture.Target{}, fmt.Errorf("select area: %w", err)
	}
	switch {
	case out.State == selection.FullScreen:
		return capture.FullScreen(), nil
	case out.Captures():
		return capture.Area(out.Rect), nil
	default:
		return capture.Target{}, ErrSelectionCancelled
	}
}

// Produce captures target and runs the output sinks on the bitmap.
func Produce(ctx context.Context, target capture.Target, capFn CaptureFunc, d Deliverer) (Result, error) {
	if capFn == nil {
		return Result{}, errors.New("Capture is required")
	}
	res := Result{SessionID: uuid.NewString(), Target: target}

	bmp, err := capFn(ctx, target)
	if err != nil {
		return res, err
	}
	res.Width, res.Height = bmp.Width(), bmp.Height()

	if d != nil {
		path, err := d.Deliver(ctx, bmp)
		if err != nil {
			return res, err
		}
		res.Path = path
	}
	log.Printf("session %s: %s delivered %dx%d to %q", res.SessionID, target, res.Width, res.Height, res.Path)
	return res, nil
}

// Execute runs one invocation end to end and reports the outcome to opts.Target.
func Execute(ctx context.Context, opts Options) (Result, error) {
	if opts.Target == nil {
		return Result{}, errors.New("Target is required")
	}

	target, err := Plan(ctx, opts.Mode, opts.AreaSupported, opts.Select)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return Result{}, err
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	res, err := Produce(jobCtx, target, opts.Capture, opts.Deliver)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return res, err
	}
	if err := opts.Target.OnSuccess(res); err != nil {
		_ = opts.Target.OnFailure(err)
		return res, err
	}
	return res, nil
}

// StdoutTarget prints the saved path, for standalone run-once.
type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) OnSuccess(res Result) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprintln(w, res.Path)
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	return nil
}

// DelegatedTarget answers a run-once client over its connection.
type DelegatedTarget struct {
	Conn singleinstance.Conn
}

func (t DelegatedTarget) OnSuccess(res Result) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	return t.Conn.RespondSuccess(res.Path)
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	return t.Conn.RespondError(err.Error())
}
