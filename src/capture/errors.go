package capture

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies capture failures. Every kind is terminal for the invocation.
type Kind int

const (
	KindPermissionDenied Kind = iota + 1
	KindCaptureFailed
	KindUnsupported
	KindIO
	KindNoDisplay
)

var (
	ErrPermissionDenied = errors.New("screen recording permission denied")
	ErrCaptureFailed    = errors.New("screen capture failed")
	ErrUnsupported      = errors.New("capture not supported on this platform")
	ErrIO               = errors.New("screenshot i/o failed")
	ErrNoDisplay        = errors.New("no display found")

	// ErrBusy is returned when a pipeline run is already in flight.
	ErrBusy = errors.New("capture already in progress")
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permissionDenied"
	case KindCaptureFailed:
		return "captureError"
	case KindUnsupported:
		return "unsupportedOnPlatform"
	case KindIO:
		return "ioError"
	case KindNoDisplay:
		return "noDisplayFound"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindCaptureFailed:
		return ErrCaptureFailed
	case KindUnsupported:
		return ErrUnsupported
	case KindIO:
		return ErrIO
	case KindNoDisplay:
		return ErrNoDisplay
	default:
		return nil
	}
}

// Error is a typed failure carrying the underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := "capture error"
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// NewError wraps cause with a stack trace so %+v logging shows where it surfaced.
func NewError(kind Kind, op string, cause error) error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the Kind of err, or 0 when err is not a capture error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// UserVisible reports whether err deserves an alert rather than only a log line.
func UserVisible(err error) bool {
	switch KindOf(err) {
	case KindPermissionDenied, KindCaptureFailed:
		return true
	default:
		return false
	}
}
